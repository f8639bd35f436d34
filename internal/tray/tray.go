//go:build !nogui && !headless

package tray

import (
	_ "embed"
	"runtime"
	"sync"

	"fyne.io/systray"
	"go.uber.org/zap"
)

//go:embed icon.png
var iconData []byte

// App is the system tray icon. It runs on an external event loop next to the window system.
type App struct {
	ctrl    Controller
	dataDir string
	version string
	logger  *zap.SugaredLogger

	mu            sync.Mutex
	started       bool
	ready         bool
	end           func()
	systemProxy   *systray.MenuItem
	launchAtLogin *systray.MenuItem
	done          chan struct{}
}

// New creates a new tray application
func New(ctrl Controller, dataDir, version string, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{ctrl: ctrl, dataDir: dataDir, version: version, logger: logger, done: make(chan struct{})}
}

// UpdateSystray creates the tray icon on first use and refreshes it afterwards.
func (a *App) UpdateSystray() error {
	a.mu.Lock()
	if !a.started {
		a.started = true
		start, end := systray.RunWithExternalLoop(a.onReady, a.onExit)
		a.end = end
		a.mu.Unlock()
		start()
		return nil
	}
	a.mu.Unlock()

	a.UpdatePart()
	return nil
}

// UpdatePart refreshes the check marks and the tooltip.
func (a *App) UpdatePart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready {
		return
	}

	state := BuildState(a.ctrl, a.version)
	setChecked(a.systemProxy, state.SystemProxy)
	setChecked(a.launchAtLogin, state.LaunchAtLogin)
	systray.SetTooltip(state.Tooltip)
}

// Stop removes the tray icon.
func (a *App) Stop() {
	a.mu.Lock()
	end := a.end
	a.end = nil
	a.mu.Unlock()

	if end != nil {
		end()
	}
}

func (a *App) onReady() {
	a.logger.Info("System tray ready")

	if runtime.GOOS == "darwin" {
		systray.SetTemplateIcon(iconData, iconData)
	} else {
		systray.SetIcon(iconData)
	}

	state := BuildState(a.ctrl, a.version)
	systray.SetTooltip(state.Tooltip)

	dashboard := systray.AddMenuItem("Dashboard", "Open the main window")
	systray.AddSeparator()
	systemProxy := systray.AddMenuItemCheckbox("System Proxy", "Route system traffic through the core", state.SystemProxy)
	launchAtLogin := systray.AddMenuItemCheckbox("Launch at Login", "Start with the desktop session", state.LaunchAtLogin)
	systray.AddSeparator()
	restart := systray.AddMenuItem("Restart Core", "Restart the proxy core")
	openDir := systray.AddMenuItem("Open Config Dir", "Open the data directory")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit Clash Verge")

	a.mu.Lock()
	a.systemProxy = systemProxy
	a.launchAtLogin = launchAtLogin
	a.ready = true
	a.mu.Unlock()

	go func() {
		for {
			select {
			case <-dashboard.ClickedCh:
				a.ctrl.ShowWindow()
			case <-systemProxy.ClickedCh:
				if err := a.ctrl.SetSystemProxy(!systemProxy.Checked()); err != nil {
					a.logger.Errorw("Failed to toggle system proxy", "error", err)
				}
				a.UpdatePart()
			case <-launchAtLogin.ClickedCh:
				if err := a.ctrl.SetLaunchAtLogin(!launchAtLogin.Checked()); err != nil {
					a.logger.Errorw("Failed to toggle launch at login", "error", err)
				}
				a.UpdatePart()
			case <-restart.ClickedCh:
				if err := a.ctrl.RestartCore(); err != nil {
					a.logger.Errorw("Failed to restart core", "error", err)
				}
				a.UpdatePart()
			case <-openDir.ClickedCh:
				if err := openPath(a.dataDir); err != nil {
					a.logger.Errorw("Failed to open data directory", "path", a.dataDir, "error", err)
				}
			case <-quit.ClickedCh:
				a.logger.Info("Quit selected from tray menu")
				a.ctrl.Quit()
				return
			case <-a.done:
				return
			}
		}
	}()
}

func (a *App) onExit() {
	a.logger.Info("System tray exiting")
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()
	close(a.done)
}

func setChecked(item *systray.MenuItem, checked bool) {
	if item == nil || item.Checked() == checked {
		return
	}
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}
