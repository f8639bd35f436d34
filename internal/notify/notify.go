// Package notify shows desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier delivers a user-visible notification.
type Notifier interface {
	Notify(title, body string)
}

// Desktop sends notifications through the OS notification center.
type Desktop struct {
	logger *zap.Logger
	send   func(title, body string, icon any) error
}

// NewDesktop creates a desktop notifier. Delivery errors are logged.
func NewDesktop(logger *zap.Logger) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desktop{logger: logger, send: beeep.Notify}
}

// Notify shows a notification.
func (d *Desktop) Notify(title, body string) {
	if err := d.send(title, body, ""); err != nil {
		d.logger.Warn("Failed to show notification", zap.String("title", title), zap.Error(err))
	}
}

// Func adapts a plain function to Notifier.
type Func func(title, body string)

// Notify calls f.
func (f Func) Notify(title, body string) { f(title, body) }
