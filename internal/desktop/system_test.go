package desktop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap/zaptest"

	"verge-go/internal/config"
	"verge-go/internal/window"
)

type fakeRuntime struct {
	x, y          int
	width, height int
	maximised     bool
	visible       bool
	screens       []runtime.Screen
	screenErr     error
	calls         []string
}

func (r *fakeRuntime) Show() {
	r.visible = true
	r.calls = append(r.calls, "show")
}
func (r *fakeRuntime) Hide() {
	r.visible = false
	r.calls = append(r.calls, "hide")
}
func (r *fakeRuntime) Center() {
	r.x, r.y = (1280-r.width)/2, (800-r.height)/2
	r.calls = append(r.calls, "center")
}
func (r *fakeRuntime) Maximise() { r.maximised = true }
func (r *fakeRuntime) Unminimise() { r.calls = append(r.calls, "unminimise") }
func (r *fakeRuntime) SetSize(width, height int) { r.width, r.height = width, height }
func (r *fakeRuntime) SetPosition(x, y int) { r.x, r.y = x, y }
func (r *fakeRuntime) Position() (int, int) { return r.x, r.y }
func (r *fakeRuntime) Size() (int, int) { return r.width, r.height }
func (r *fakeRuntime) IsMaximised() bool { return r.maximised }
func (r *fakeRuntime) Screens() ([]runtime.Screen, error) { return r.screens, r.screenErr }

func screen(width, height int, scale float64, current bool) runtime.Screen {
	var s runtime.Screen
	s.IsCurrent = current
	s.IsPrimary = !current
	s.Size.Width, s.Size.Height = width, height
	s.PhysicalSize.Width, s.PhysicalSize.Height = int(float64(width)*scale), int(float64(height)*scale)
	return s
}

// hidpi puts the window on a 1280x800 logical screen at 2x.
func hidpi() []runtime.Screen {
	return []runtime.Screen{
		screen(1920, 1080, 1, false),
		screen(1280, 800, 2, true),
	}
}

func TestBuildBeforeAttachFails(t *testing.T) {
	s := NewSystem(nil)
	_, err := s.Build(window.BuildOptions{Label: window.MainLabel})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, ok := s.Get(window.MainLabel)
	assert.False(t, ok)
}

func TestBuildPlacesWindow(t *testing.T) {
	rt := &fakeRuntime{screens: hidpi()}
	s := NewSystem(zaptest.NewLogger(t))
	s.Attach(rt)

	_, ok := s.Get(window.MainLabel)
	assert.False(t, ok, "window is not open before Build")

	w, err := s.Build(window.BuildOptions{Label: window.MainLabel, Width: 900, Height: 700, X: 40, Y: 50})
	require.NoError(t, err)
	assert.Equal(t, 900, rt.width)
	assert.Equal(t, 40, rt.x)
	assert.False(t, rt.visible)

	pos, err := w.OuterPosition()
	require.NoError(t, err)
	assert.Equal(t, window.PhysicalPosition{X: 80, Y: 100}, pos)

	size, err := w.InnerSize()
	require.NoError(t, err)
	assert.Equal(t, window.PhysicalSize{Width: 1800, Height: 1400}, size)

	mon, err := w.CurrentMonitor()
	require.NoError(t, err)
	require.NotNil(t, mon)
	assert.Equal(t, window.PhysicalSize{Width: 2560, Height: 1600}, mon.Size)
	assert.Equal(t, 2.0, mon.ScaleFactor)

	_, ok = s.Get(window.MainLabel)
	assert.True(t, ok)
}

func TestBuildCentered(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewSystem(nil)
	s.Attach(rt)

	_, err := s.Build(window.BuildOptions{Label: window.MainLabel, Width: 800, Height: 600, Center: true})
	require.NoError(t, err)
	assert.Contains(t, rt.calls, "center")
	assert.Equal(t, 240, rt.x)
}

func TestBuildRejectsOtherLabels(t *testing.T) {
	s := NewSystem(nil)
	s.Attach(&fakeRuntime{})
	_, err := s.Build(window.BuildOptions{Label: "settings"})
	assert.Error(t, err)
}

func TestMonitorUnknown(t *testing.T) {
	w := &Window{rt: &fakeRuntime{}}
	mon, err := w.CurrentMonitor()
	assert.NoError(t, err)
	assert.Nil(t, mon)

	w = &Window{rt: &fakeRuntime{screenErr: errors.New("no display")}}
	_, err = w.CurrentMonitor()
	assert.Error(t, err)
	scale, err := w.ScaleFactor()
	require.NoError(t, err)
	assert.Equal(t, 1.0, scale)
}

func TestCloseHidesAndForgets(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewSystem(nil)
	s.Attach(rt)
	w, err := s.Build(window.BuildOptions{Label: window.MainLabel, Width: 800, Height: 600})
	require.NoError(t, err)
	require.NoError(t, w.Show())

	s.Close()

	assert.False(t, rt.visible)
	_, ok := s.Get(window.MainLabel)
	assert.False(t, ok)
}

type memSettings struct{ verge config.Verge }

func (m *memSettings) Latest() config.Verge { return m.verge.Clone() }
func (m *memSettings) PatchVerge(p config.Verge) { m.verge.Patch(p) }
func (m *memSettings) SaveVerge() error { return nil }

func TestManagerRoundTripThroughAdapter(t *testing.T) {
	rt := &fakeRuntime{screens: hidpi()}
	s := NewSystem(nil)
	s.Attach(rt)
	settings := &memSettings{}
	manager := window.NewManager(s, settings, window.ProfileFor("darwin"), nil)

	manager.EnsureWindow()
	assert.True(t, rt.visible)
	assert.Equal(t, 800, rt.width)
	assert.Equal(t, 642, rt.height)

	rt.x, rt.y = 100, 60
	require.NoError(t, manager.PersistGeometry(true))
	assert.Equal(t, []float64{800, 642, 100, 60}, settings.verge.WindowSizePosition)

	s.Close()
	manager.Forget()
	assert.Equal(t, window.StateNoWindow, manager.State())

	manager.EnsureWindow()
	assert.Equal(t, 100, rt.x)
	assert.Equal(t, 60, rt.y)
}

func TestWatcherReportsMovesOfOpenWindow(t *testing.T) {
	rt := &fakeRuntime{}
	s := NewSystem(nil)
	s.Attach(rt)
	w := &watcher{system: s}

	assert.False(t, w.poll(), "closed window")

	_, err := s.Build(window.BuildOptions{Label: window.MainLabel, Width: 800, Height: 600})
	require.NoError(t, err)
	assert.False(t, w.poll(), "first poll only records")
	assert.False(t, w.poll())

	rt.x = 300
	assert.True(t, w.poll())
	assert.False(t, w.poll())

	rt.maximised = true
	assert.True(t, w.poll())

	s.Close()
	assert.False(t, w.poll())
}
