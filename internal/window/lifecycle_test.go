package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"verge-go/internal/config"
)

func TestEnsureWindowPlatformDefault(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{}
	profile := ProfileFor("windows")
	m := NewManager(sys, settings, profile, zap.NewNop())

	m.EnsureWindow()

	require.Equal(t, 1, sys.builds)
	w := sys.windows[MainLabel]
	assert.True(t, w.opts.Center)
	assert.Equal(t, 800.0, w.opts.Width)
	assert.Equal(t, 636.0, w.opts.Height)
	assert.Equal(t, MinWidth, w.opts.MinWidth)
	assert.Equal(t, MinHeight, w.opts.MinHeight)
	assert.False(t, w.opts.Decorations)
	assert.True(t, w.opts.Transparent)
	assert.True(t, w.called("show"))
	assert.True(t, w.called("shadow"))
	assert.False(t, w.called("maximize"))
	assert.Equal(t, StateVisible, m.State())
}

func TestEnsureWindowRestoresPersistedGeometry(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{verge: config.Verge{WindowSizePosition: []float64{300, 700, 50, 60}}}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())

	m.EnsureWindow()

	w := sys.windows[MainLabel]
	assert.False(t, w.opts.Center)
	assert.Equal(t, 600.0, w.opts.Width, "width is clamped to the minimum")
	assert.Equal(t, 700.0, w.opts.Height)
	assert.Equal(t, 50.0, w.opts.X)
	assert.Equal(t, 60.0, w.opts.Y)
	assert.False(t, w.called("center"))
	assert.False(t, w.called("shadow"), "linux has no shadow")
}

func TestEnsureWindowRecentersOffScreen(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{verge: config.Verge{WindowSizePosition: []float64{800, 636, 5000, 100}}}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())

	m.EnsureWindow()

	w := sys.windows[MainLabel]
	assert.True(t, w.called("center"))
	assert.Equal(t, PhysicalPosition{X: 560, Y: 222}, w.pos)
}

func TestEnsureWindowRecentersWhenMonitorUnknown(t *testing.T) {
	sys := newFakeSystem()
	sys.monitor = nil
	settings := &memSettings{verge: config.Verge{WindowSizePosition: []float64{800, 636, 100, 100}}}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())

	m.EnsureWindow()

	assert.True(t, sys.windows[MainLabel].called("center"))
}

func TestEnsureWindowAppliesMaximized(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{verge: config.Verge{WindowIsMaximized: config.Ptr(true)}}
	m := NewManager(sys, settings, ProfileFor("darwin"), zap.NewNop())

	m.EnsureWindow()

	w := sys.windows[MainLabel]
	assert.True(t, w.called("maximize"))
	assert.True(t, w.opts.Decorations)
	assert.True(t, w.opts.OverlayTitleBar)
}

func TestEnsureWindowIsIdempotent(t *testing.T) {
	sys := newFakeSystem()
	m := NewManager(sys, &memSettings{}, ProfileFor("windows"), zap.NewNop())

	m.EnsureWindow()
	m.EnsureWindow()

	assert.Equal(t, 1, sys.builds, "no duplicate window")
	assert.Len(t, sys.windows, 1)
	w := sys.windows[MainLabel]
	assert.True(t, w.called("unminimize"))
	assert.True(t, w.called("focus"))
	assert.Equal(t, StateFocused, m.State())
}

func TestEnsureWindowCreationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sys := newFakeSystem()
	sys.buildErr = errRefused
	m := NewManager(sys, &memSettings{}, ProfileFor("windows"), zap.New(core))

	assert.NotPanics(t, m.EnsureWindow)
	assert.Equal(t, StateNoWindow, m.State())
	assert.Equal(t, 1, logs.FilterMessage("Failed to create window").Len())
}

func TestPersistGeometryWithoutWindow(t *testing.T) {
	m := NewManager(newFakeSystem(), &memSettings{}, ProfileFor("linux"), zap.NewNop())
	assert.ErrorIs(t, m.PersistGeometry(false), ErrNoWindow)
}

func TestPersistGeometryRoundTrip(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{verge: config.Verge{WindowSizePosition: []float64{800, 636, 100, 100}}}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())
	m.EnsureWindow()

	require.NoError(t, m.PersistGeometry(true))

	assert.Equal(t, 1, settings.saves)
	assert.Equal(t, []float64{800, 636, 100, 100}, settings.verge.WindowSizePosition)
	assert.Equal(t, Placement{Persisted: true, Rect: Rect{800, 636, 100, 100}}, Validate(settings.verge.WindowSizePosition))
	assert.False(t, config.Value(settings.verge.WindowIsMaximized, true))
}

func TestPersistGeometryConvertsScale(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())
	m.EnsureWindow()

	w := sys.windows[MainLabel]
	w.scale = 2
	w.size = PhysicalSize{Width: 1600, Height: 1272}
	w.pos = PhysicalPosition{X: 200, Y: 400}

	require.NoError(t, m.PersistGeometry(false))
	assert.Equal(t, []float64{800, 636, 100, 200}, settings.verge.WindowSizePosition)
	assert.Equal(t, 0, settings.saves)
}

func TestPersistGeometrySkipsMaximizedAndUndersized(t *testing.T) {
	sys := newFakeSystem()
	settings := &memSettings{verge: config.Verge{WindowSizePosition: []float64{900, 700, 1, 2}}}
	m := NewManager(sys, settings, ProfileFor("linux"), zap.NewNop())
	m.EnsureWindow()
	w := sys.windows[MainLabel]

	w.maximized = true
	require.NoError(t, m.PersistGeometry(false))
	assert.True(t, config.Value(settings.verge.WindowIsMaximized, false))
	assert.Equal(t, []float64{900, 700, 1, 2}, settings.verge.WindowSizePosition)

	w.maximized = false
	w.size = PhysicalSize{Width: 500, Height: 700}
	require.NoError(t, m.PersistGeometry(false))
	assert.False(t, config.Value(settings.verge.WindowIsMaximized, true))
	assert.Equal(t, []float64{900, 700, 1, 2}, settings.verge.WindowSizePosition)
}

func TestForgetResetsState(t *testing.T) {
	sys := newFakeSystem()
	m := NewManager(sys, &memSettings{}, ProfileFor("linux"), zap.NewNop())
	m.EnsureWindow()

	delete(sys.windows, MainLabel)
	m.Forget()
	assert.Equal(t, StateNoWindow, m.State())

	m.EnsureWindow()
	assert.Equal(t, 2, sys.builds)
}
