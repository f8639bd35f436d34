// Package hotkey parses the configured global shortcuts and binds them to actions.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Known actions
const (
	FuncOpenDashboard     = "open_dashboard"
	FuncToggleSystemProxy = "toggle_system_proxy"
)

// Binding is one "func,key" entry of the hotkeys setting.
type Binding struct {
	Func string
	Key  string
}

// Parse parses "func,key". Both parts must be non-empty.
func Parse(raw string) (Binding, error) {
	fn, key, ok := strings.Cut(raw, ",")
	fn = strings.TrimSpace(fn)
	key = strings.TrimSpace(key)
	if !ok || fn == "" || key == "" {
		return Binding{}, fmt.Errorf("invalid hotkey %q", raw)
	}
	return Binding{Func: fn, Key: key}, nil
}

// Registrar registers shortcuts with the OS.
type Registrar interface {
	Register(key string, handler func()) error
	UnregisterAll() error
}

// Manager binds configured shortcuts to actions.
type Manager struct {
	registrar Registrar
	actions   map[string]func()
	logger    *zap.Logger

	mu     sync.Mutex
	active []Binding
}

// NewManager creates a hotkey manager. actions maps function names to handlers.
func NewManager(registrar Registrar, actions map[string]func(), logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{registrar: registrar, actions: actions, logger: logger}
}

// Init replaces the registered shortcuts with hotkeys. Invalid entries are skipped and
// reported together; the valid ones stay registered.
func (m *Manager) Init(hotkeys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.registrar.UnregisterAll(); err != nil {
		return fmt.Errorf("failed to unregister hotkeys: %w", err)
	}
	m.active = nil

	var errs []error
	for _, raw := range hotkeys {
		binding, err := Parse(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		action, ok := m.actions[binding.Func]
		if !ok {
			errs = append(errs, fmt.Errorf("invalid hotkey function %q", binding.Func))
			continue
		}
		if err := m.registrar.Register(binding.Key, action); err != nil {
			errs = append(errs, fmt.Errorf("failed to register %s: %w", binding.Key, err))
			continue
		}
		m.active = append(m.active, binding)
		m.logger.Debug("Hotkey registered", zap.String("func", binding.Func), zap.String("key", binding.Key))
	}
	return errors.Join(errs...)
}

// Active returns the registered bindings.
func (m *Manager) Active() []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Binding(nil), m.active...)
}

// LogRegistrar records bindings without OS registration. It is used where no global
// shortcut backend is available; Trigger dispatches a key by hand.
type LogRegistrar struct {
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string]func()
}

// NewLogRegistrar creates a LogRegistrar
func NewLogRegistrar(logger *zap.Logger) *LogRegistrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRegistrar{logger: logger, handlers: map[string]func(){}}
}

// Register records the handler for key.
func (r *LogRegistrar) Register(key string, handler func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("hotkey %s is already registered", key)
	}
	r.handlers[key] = handler
	r.logger.Info("Global hotkey recorded", zap.String("key", key))
	return nil
}

// UnregisterAll drops every handler.
func (r *LogRegistrar) UnregisterAll() error {
	r.mu.Lock()
	r.handlers = map[string]func(){}
	r.mu.Unlock()
	return nil
}

// Trigger runs the handler bound to key.
func (r *LogRegistrar) Trigger(key string) bool {
	r.mu.Lock()
	handler, ok := r.handlers[key]
	r.mu.Unlock()
	if ok {
		handler()
	}
	return ok
}
