//go:build nogui || headless

package hotkey

import "go.uber.org/zap"

// NewSystemRegistrar returns a LogRegistrar in builds without a desktop session.
func NewSystemRegistrar(logger *zap.Logger) Registrar {
	return NewLogRegistrar(logger)
}
