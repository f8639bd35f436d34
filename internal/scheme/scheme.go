// Package scheme imports remote profiles from clash://install-config links.
package scheme

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"verge-go/internal/config"
	"verge-go/internal/notify"
	"verge-go/internal/profiles"
)

// Notification texts
const (
	NotifyTitle   = "Clash Verge"
	NotifySuccess = "Import profile success"
	NotifyFailure = "Import profile failed"
)

var prefixes = []string{
	"clash://install-config/?url=",
	"clash://install-config?url=",
}

// Fetcher downloads a remote profile.
type Fetcher interface {
	FromURL(ctx context.Context, rawURL string, name, desc *string, opt *profiles.Option) (*profiles.Item, error)
}

// Appender adds a profile to the collection.
type Appender interface {
	AppendItem(item *profiles.Item) error
}

// Outcome of one import.
type Outcome struct {
	Err error
}

// Success reports whether the profile was fetched and stored.
func (o Outcome) Success() bool { return o.Err == nil }

// Importer runs the import pipeline: strip prefix, fetch, append, notify.
type Importer struct {
	fetcher  Fetcher
	appender Appender
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewImporter creates an importer
func NewImporter(fetcher Fetcher, appender Appender, notifier notify.Notifier, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{fetcher: fetcher, appender: appender, notifier: notifier, logger: logger}
}

// StripPrefix removes a recognised install-config prefix. Other input is returned as is.
func StripPrefix(raw string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p) {
			return strings.TrimPrefix(raw, p)
		}
	}
	return raw
}

// Import fetches the profile behind request and appends it. Exactly one notification
// is shown per call.
func (i *Importer) Import(ctx context.Context, request string) Outcome {
	target := StripPrefix(request)
	i.logger.Info("Importing profile from scheme", zap.String("url", target))

	out := Outcome{Err: i.run(ctx, target)}
	if out.Success() {
		i.notifier.Notify(NotifyTitle, NotifySuccess)
	} else {
		i.notifier.Notify(NotifyTitle, NotifyFailure)
	}
	return out
}

func (i *Importer) run(ctx context.Context, target string) error {
	opt := &profiles.Option{WithProxy: config.Ptr(true)}

	item, err := i.fetcher.FromURL(ctx, target, nil, nil, opt)
	if err != nil {
		i.logger.Error("Failed to parse url", zap.String("url", target), zap.Error(err))
		return fmt.Errorf("failed to import %s: %w", target, err)
	}

	if err := i.appender.AppendItem(item); err != nil {
		i.logger.Error("Failed to append profile", zap.String("uid", item.UID), zap.String("url", target), zap.Error(err))
		return fmt.Errorf("failed to append profile: %w", err)
	}

	i.logger.Info("Imported profile", zap.String("uid", item.UID), zap.String("name", item.Name))
	return nil
}
