package window

import (
	"errors"

	"verge-go/internal/config"
)

type fakeWindow struct {
	opts      BuildOptions
	monitor   *Monitor
	monErr    error
	pos       PhysicalPosition
	size      PhysicalSize
	scale     float64
	maximized bool

	calls []string
}

func (w *fakeWindow) record(call string) error {
	w.calls = append(w.calls, call)
	return nil
}

func (w *fakeWindow) Unminimize() error { return w.record("unminimize") }
func (w *fakeWindow) Show() error { return w.record("show") }
func (w *fakeWindow) SetFocus() error { return w.record("focus") }
func (w *fakeWindow) Maximize() error {
	w.maximized = true
	return w.record("maximize")
}
func (w *fakeWindow) SetShadow(bool) error { return w.record("shadow") }
func (w *fakeWindow) Center() error {
	if w.monitor != nil {
		w.pos = PhysicalPosition{
			X: (w.monitor.Size.Width - int(w.opts.Width)) / 2,
			Y: (w.monitor.Size.Height - int(w.opts.Height)) / 2,
		}
	}
	return w.record("center")
}
func (w *fakeWindow) CurrentMonitor() (*Monitor, error) { return w.monitor, w.monErr }
func (w *fakeWindow) OuterPosition() (PhysicalPosition, error) { return w.pos, nil }
func (w *fakeWindow) InnerSize() (PhysicalSize, error) { return w.size, nil }
func (w *fakeWindow) ScaleFactor() (float64, error) { return w.scale, nil }
func (w *fakeWindow) IsMaximized() (bool, error) { return w.maximized, nil }

func (w *fakeWindow) called(name string) bool {
	for _, c := range w.calls {
		if c == name {
			return true
		}
	}
	return false
}

type fakeSystem struct {
	windows  map[string]*fakeWindow
	monitor  *Monitor
	buildErr error
	builds   int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		windows: make(map[string]*fakeWindow),
		monitor: &Monitor{Size: PhysicalSize{Width: 1920, Height: 1080}, ScaleFactor: 1},
	}
}

func (s *fakeSystem) Get(label string) (Window, bool) {
	w, ok := s.windows[label]
	if !ok {
		return nil, false
	}
	return w, true
}

func (s *fakeSystem) Build(opts BuildOptions) (Window, error) {
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	s.builds++
	w := &fakeWindow{
		opts:    opts,
		monitor: s.monitor,
		pos:     PhysicalPosition{X: int(opts.X), Y: int(opts.Y)},
		size:    PhysicalSize{Width: int(opts.Width), Height: int(opts.Height)},
		scale:   1,
	}
	s.windows[opts.Label] = w
	return w, nil
}

type memSettings struct {
	verge   config.Verge
	saves   int
	saveErr error
}

func (m *memSettings) Latest() config.Verge { return m.verge.Clone() }
func (m *memSettings) PatchVerge(p config.Verge) { m.verge.Patch(p) }
func (m *memSettings) SaveVerge() error {
	m.saves++
	return m.saveErr
}

var errRefused = errors.New("window system refused")
