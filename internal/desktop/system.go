// Package desktop adapts the wails runtime to the window package. wails owns exactly
// one native window that lives for the whole process; "building" the main window
// places it, and closing it only hides it.
package desktop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"verge-go/internal/window"
)

// ErrNotStarted is returned before the wails startup callback handed over its context.
var ErrNotStarted = errors.New("window runtime not started")

// Runtime is the subset of the wails runtime the adapter drives.
type Runtime interface {
	Show()
	Hide()
	Center()
	Maximise()
	Unminimise()
	SetSize(width, height int)
	SetPosition(x, y int)
	Position() (int, int)
	Size() (int, int)
	IsMaximised() bool
	Screens() ([]runtime.Screen, error)
}

// wailsRuntime forwards to the package level runtime functions with the app context.
type wailsRuntime struct {
	ctx context.Context
}

// NewRuntime binds the wails runtime to the context passed to OnStartup.
func NewRuntime(ctx context.Context) Runtime { return wailsRuntime{ctx: ctx} }

func (r wailsRuntime) Show() { runtime.WindowShow(r.ctx) }
func (r wailsRuntime) Hide() { runtime.WindowHide(r.ctx) }
func (r wailsRuntime) Center() { runtime.WindowCenter(r.ctx) }
func (r wailsRuntime) Maximise() { runtime.WindowMaximise(r.ctx) }
func (r wailsRuntime) Unminimise() { runtime.WindowUnminimise(r.ctx) }
func (r wailsRuntime) SetSize(width, height int) { runtime.WindowSetSize(r.ctx, width, height) }
func (r wailsRuntime) SetPosition(x, y int) { runtime.WindowSetPosition(r.ctx, x, y) }
func (r wailsRuntime) Position() (int, int) { return runtime.WindowGetPosition(r.ctx) }
func (r wailsRuntime) Size() (int, int) { return runtime.WindowGetSize(r.ctx) }
func (r wailsRuntime) IsMaximised() bool { return runtime.WindowIsMaximised(r.ctx) }
func (r wailsRuntime) Screens() ([]runtime.Screen, error) {
	return runtime.ScreenGetAll(r.ctx)
}

// System implements window.System on top of the single wails window.
type System struct {
	logger *zap.Logger

	mu   sync.Mutex
	rt   Runtime
	open bool
}

// NewSystem creates an adapter. Attach must be called from OnStartup before use.
func NewSystem(logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{logger: logger}
}

// Attach hands the runtime over once wails is up.
func (s *System) Attach(rt Runtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rt = rt
}

// Get returns the main window while it is open.
func (s *System) Get(label string) (window.Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if label != window.MainLabel || !s.open || s.rt == nil {
		return nil, false
	}
	return &Window{rt: s.rt}, true
}

// Build places the wails window according to opts and marks it open. The window
// stays hidden until Show is called.
func (s *System) Build(opts window.BuildOptions) (window.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rt == nil {
		return nil, ErrNotStarted
	}
	if opts.Label != window.MainLabel {
		return nil, errors.New("only the main window is supported")
	}

	w := &Window{rt: s.rt}
	scale := w.scale()
	s.rt.SetSize(int(opts.Width), int(opts.Height))
	if opts.Center {
		s.rt.Center()
	} else {
		s.rt.SetPosition(int(opts.X), int(opts.Y))
	}
	s.open = true

	s.logger.Debug("Main window placed",
		zap.Float64("width", opts.Width),
		zap.Float64("height", opts.Height),
		zap.Bool("center", opts.Center),
		zap.Float64("scale", scale))
	return w, nil
}

// Close hides the window and marks it closed.
func (s *System) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rt != nil {
		s.rt.Hide()
	}
	s.open = false
}

// geometry is what the watcher compares between two polls.
type geometry struct {
	x, y, width, height int
	maximised           bool
}

func (s *System) geometry() (geometry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.rt == nil {
		return geometry{}, false
	}
	g := geometry{maximised: s.rt.IsMaximised()}
	g.x, g.y = s.rt.Position()
	g.width, g.height = s.rt.Size()
	return g, true
}

// watcher reports geometry changes of the open window between polls.
type watcher struct {
	system *System
	last   geometry
	have   bool
}

func (w *watcher) poll() bool {
	cur, ok := w.system.geometry()
	if !ok {
		w.have = false
		return false
	}
	changed := w.have && cur != w.last
	w.last, w.have = cur, true
	return changed
}

// Watch calls onChange whenever the open window was moved, resized, maximized or
// restored since the previous poll. wails has no move or resize events. Watch
// returns when ctx is done.
func (s *System) Watch(ctx context.Context, every time.Duration, onChange func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	w := &watcher{system: s}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.poll() {
				onChange()
			}
		}
	}
}

// Window is the live wails window. wails reports sizes and positions in logical
// units; they are converted to physical pixels with the current screen's scale.
type Window struct {
	rt Runtime
}

func (w *Window) Unminimize() error {
	w.rt.Unminimise()
	return nil
}

func (w *Window) Show() error {
	w.rt.Show()
	return nil
}

// SetFocus raises the window. wails has no separate focus call; showing a visible
// window brings it to the front.
func (w *Window) SetFocus() error {
	w.rt.Show()
	return nil
}

func (w *Window) Center() error {
	w.rt.Center()
	return nil
}

func (w *Window) Maximize() error {
	w.rt.Maximise()
	return nil
}

// SetShadow is a no-op: wails draws the frameless shadow itself.
func (w *Window) SetShadow(bool) error { return nil }

func (w *Window) CurrentMonitor() (*window.Monitor, error) {
	screen, ok, err := w.currentScreen()
	if err != nil || !ok {
		return nil, err
	}
	return &window.Monitor{
		Size:        window.PhysicalSize{Width: screen.PhysicalSize.Width, Height: screen.PhysicalSize.Height},
		ScaleFactor: screenScale(screen),
	}, nil
}

func (w *Window) OuterPosition() (window.PhysicalPosition, error) {
	x, y := w.rt.Position()
	scale := w.scale()
	return window.PhysicalPosition{X: int(float64(x) * scale), Y: int(float64(y) * scale)}, nil
}

func (w *Window) InnerSize() (window.PhysicalSize, error) {
	width, height := w.rt.Size()
	scale := w.scale()
	return window.PhysicalSize{Width: int(float64(width) * scale), Height: int(float64(height) * scale)}, nil
}

func (w *Window) ScaleFactor() (float64, error) {
	return w.scale(), nil
}

func (w *Window) IsMaximized() (bool, error) {
	return w.rt.IsMaximised(), nil
}

func (w *Window) currentScreen() (runtime.Screen, bool, error) {
	screens, err := w.rt.Screens()
	if err != nil {
		return runtime.Screen{}, false, err
	}
	for _, s := range screens {
		if s.IsCurrent {
			return s, true, nil
		}
	}
	for _, s := range screens {
		if s.IsPrimary {
			return s, true, nil
		}
	}
	return runtime.Screen{}, false, nil
}

func (w *Window) scale() float64 {
	screen, ok, err := w.currentScreen()
	if err != nil || !ok {
		return 1
	}
	return screenScale(screen)
}

func screenScale(s runtime.Screen) float64 {
	if s.Size.Width <= 0 || s.PhysicalSize.Width <= 0 {
		return 1
	}
	return float64(s.PhysicalSize.Width) / float64(s.Size.Width)
}
