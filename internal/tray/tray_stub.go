//go:build nogui || headless

package tray

import "go.uber.org/zap"

// App is the tray stub for builds without a GUI.
type App struct {
	logger *zap.SugaredLogger
}

// New creates the tray stub
func New(_ Controller, _, _ string, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{logger: logger}
}

// UpdateSystray logs that the tray is disabled.
func (a *App) UpdateSystray() error {
	a.logger.Info("Tray functionality disabled (nogui/headless build)")
	return nil
}

// UpdatePart does nothing.
func (a *App) UpdatePart() {}

// Stop does nothing.
func (a *App) Stop() {}
