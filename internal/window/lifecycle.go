// Package window owns the single main window: placement recovery, creation,
// refocusing and geometry persistence.
package window

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"verge-go/internal/config"
)

const (
	// MainLabel identifies the main window in the window system.
	MainLabel = "main"
	// Title is the main window title.
	Title = "Clash Verge"
)

// ErrNoWindow is returned when an operation requires the main window and none exists.
var ErrNoWindow = errors.New("main window does not exist")

// State of the main window as seen by the Manager.
type State int

// Window states.
const (
	StateNoWindow State = iota
	StateHidden
	StateVisible
	StateFocused
)

func (s State) String() string {
	switch s {
	case StateNoWindow:
		return "no_window"
	case StateHidden:
		return "hidden"
	case StateVisible:
		return "visible"
	case StateFocused:
		return "focused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BuildOptions describes the window to create. Sizes and positions are logical units.
type BuildOptions struct {
	Label     string
	Title     string
	Width     float64
	Height    float64
	X         float64
	Y         float64
	Center    bool
	MinWidth  float64
	MinHeight float64

	Decorations     bool
	Transparent     bool
	OverlayTitleBar bool
}

// Monitor describes the display a window is on.
type Monitor struct {
	Size        PhysicalSize
	ScaleFactor float64
}

// Window is a live native window.
type Window interface {
	Unminimize() error
	Show() error
	SetFocus() error
	Center() error
	Maximize() error
	SetShadow(enable bool) error
	// CurrentMonitor returns nil without error when the monitor cannot be determined.
	CurrentMonitor() (*Monitor, error)
	OuterPosition() (PhysicalPosition, error)
	InnerSize() (PhysicalSize, error)
	ScaleFactor() (float64, error)
	IsMaximized() (bool, error)
}

// System creates and looks up native windows.
type System interface {
	Get(label string) (Window, bool)
	Build(opts BuildOptions) (Window, error)
}

// Settings is the part of the settings store the window manager reads and writes.
type Settings interface {
	Latest() config.Verge
	PatchVerge(p config.Verge)
	SaveVerge() error
}

// Manager enforces a single main window per process. Calls are expected from the UI thread;
// the mutex only protects the tracked state.
type Manager struct {
	system   System
	settings Settings
	profile  PlatformProfile
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

// NewManager creates a window manager
func NewManager(system System, settings Settings, profile PlatformProfile, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		system:   system,
		settings: settings,
		profile:  profile,
		logger:   logger,
		state:    StateNoWindow,
	}
}

// State returns the tracked state of the main window.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.system.Get(MainLabel); !ok {
		return StateNoWindow
	}
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Forget is called by the window backend after the user closed the main window.
func (m *Manager) Forget() {
	m.setState(StateNoWindow)
}

// EnsureWindow focuses the existing main window, or creates it from the persisted
// geometry when there is none. Creation failure is logged, not returned: the process
// keeps running with only the tray.
func (m *Manager) EnsureWindow() {
	if win, ok := m.system.Get(MainLabel); ok {
		m.trace(win.Unminimize(), "set win unminimize")
		m.trace(win.Show(), "set win visible")
		m.trace(win.SetFocus(), "set win focus")
		m.setState(StateFocused)
		return
	}

	verge := m.settings.Latest()
	opts := m.buildOptions(Validate(verge.WindowSizePosition))

	win, err := m.system.Build(opts)
	if err != nil {
		m.logger.Error("Failed to create window", zap.Error(err))
		m.setState(StateNoWindow)
		return
	}
	m.setState(StateHidden)

	if m.shouldCenter(win) {
		m.trace(win.Center(), "set win center")
	}

	if m.profile.Shadow {
		m.trace(win.SetShadow(true), "set win shadow")
	}

	if config.Value(verge.WindowIsMaximized, false) {
		m.trace(win.Maximize(), "set win maximize")
	}

	m.trace(win.Show(), "set win visible")
	m.setState(StateVisible)
}

func (m *Manager) buildOptions(placement Placement) BuildOptions {
	opts := BuildOptions{
		Label:           MainLabel,
		Title:           Title,
		MinWidth:        MinWidth,
		MinHeight:       MinHeight,
		Decorations:     m.profile.Decorations,
		Transparent:     m.profile.Transparent,
		OverlayTitleBar: m.profile.OverlayTitleBar,
	}

	if placement.Persisted {
		opts.Width = placement.Rect.Width
		opts.Height = placement.Rect.Height
		opts.X = placement.Rect.X
		opts.Y = placement.Rect.Y
	} else {
		opts.Width = m.profile.DefaultWidth
		opts.Height = m.profile.DefaultHeight
		opts.Center = true
	}
	return opts
}

// shouldCenter runs the off-screen heuristic. Any lookup failure means re-center.
func (m *Manager) shouldCenter(win Window) bool {
	m.logger.Debug("Calculating monitor size for off-screen check")

	monitor, err := win.CurrentMonitor()
	if err != nil || monitor == nil {
		return true
	}
	pos, err := win.OuterPosition()
	if err != nil {
		return true
	}
	return IsOffScreen(pos, monitor.Size)
}

// PersistGeometry records the live size, position and maximized state of the main
// window into the settings, optionally flushing them to disk. Geometry is only
// recorded for a non-maximized window that satisfies the minimum size.
func (m *Manager) PersistGeometry(saveToDisk bool) error {
	win, ok := m.system.Get(MainLabel)
	if !ok {
		return ErrNoWindow
	}

	scale, err := win.ScaleFactor()
	if err != nil {
		return fmt.Errorf("failed to read scale factor: %w", err)
	}
	size, err := win.InnerSize()
	if err != nil {
		return fmt.Errorf("failed to read inner size: %w", err)
	}
	pos, err := win.OuterPosition()
	if err != nil {
		return fmt.Errorf("failed to read outer position: %w", err)
	}
	maximized, err := win.IsMaximized()
	if err != nil {
		return fmt.Errorf("failed to read maximized state: %w", err)
	}

	rect := Rect{
		Width:  toLogical(size.Width, scale),
		Height: toLogical(size.Height, scale),
		X:      toLogical(pos.X, scale),
		Y:      toLogical(pos.Y, scale),
	}

	patch := config.Verge{WindowIsMaximized: config.Ptr(maximized)}
	if !maximized && rect.Width >= MinWidth && rect.Height >= MinHeight {
		patch.WindowSizePosition = rect.Slice()
	}
	m.settings.PatchVerge(patch)

	if saveToDisk {
		if err := m.settings.SaveVerge(); err != nil {
			return fmt.Errorf("failed to save window geometry: %w", err)
		}
	}
	return nil
}

func (m *Manager) trace(err error, action string) {
	if err != nil {
		m.logger.Debug("Window operation failed", zap.String("action", action), zap.Error(err))
	}
}
