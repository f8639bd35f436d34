//go:build !nogui && !headless

package hotkey

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.design/x/hotkey"
)

var keyCodes = map[string]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD, "E": hotkey.KeyE,
	"F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH, "I": hotkey.KeyI, "J": hotkey.KeyJ,
	"K": hotkey.KeyK, "L": hotkey.KeyL, "M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO,
	"P": hotkey.KeyP, "Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX, "Y": hotkey.KeyY,
	"Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
	"SPACE":  hotkey.KeySpace,
	"RETURN": hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"TAB":    hotkey.KeyTab,
	"DELETE": hotkey.KeyDelete,
	"LEFT":   hotkey.KeyLeft,
	"RIGHT":  hotkey.KeyRight,
	"UP":     hotkey.KeyUp,
	"DOWN":   hotkey.KeyDown,
}

type registration struct {
	hk   *hotkey.Hotkey
	done chan struct{}
}

// SystemRegistrar registers shortcuts with the OS through golang.design/x/hotkey.
// Handlers run on a goroutine per shortcut.
type SystemRegistrar struct {
	logger *zap.Logger

	mu   sync.Mutex
	regs map[string]registration
	wg   sync.WaitGroup
}

// NewSystemRegistrar creates the OS backed registrar.
func NewSystemRegistrar(logger *zap.Logger) Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemRegistrar{logger: logger, regs: map[string]registration{}}
}

func (r *SystemRegistrar) Register(key string, handler func()) error {
	acc, err := ParseAccelerator(key, runtime.GOOS)
	if err != nil {
		return err
	}
	code, ok := keyCodes[acc.Key]
	if !ok {
		return fmt.Errorf("unsupported key %q", acc.Key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.regs[key]; exists {
		return fmt.Errorf("hotkey %s is already registered", key)
	}

	hk := hotkey.New(modifiers(acc.Mods), code)
	if err := hk.Register(); err != nil {
		return err
	}
	reg := registration{hk: hk, done: make(chan struct{})}
	r.regs[key] = reg

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-reg.done:
				return
			case <-hk.Keydown():
				r.logger.Debug("Global hotkey pressed", zap.String("key", key))
				handler()
			}
		}
	}()
	r.logger.Info("Global hotkey registered", zap.String("key", key))
	return nil
}

func (r *SystemRegistrar) UnregisterAll() error {
	r.mu.Lock()
	var firstErr error
	for key, reg := range r.regs {
		close(reg.done)
		if err := reg.hk.Unregister(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to unregister %s: %w", key, err)
		}
		delete(r.regs, key)
	}
	r.mu.Unlock()
	r.wg.Wait()
	return firstErr
}
