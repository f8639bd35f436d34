// Package updatecheck looks for newer releases of the shell in the background and
// tells the user once per new version.
package updatecheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"verge-go/internal/notify"
)

// DefaultInterval between two checks.
const DefaultInterval = 4 * time.Hour

// Source returns the newest release.
type Source interface {
	Latest(ctx context.Context, prerelease bool) (*Release, error)
}

// Info is the outcome of the last check.
type Info struct {
	Current         string
	Latest          string
	UpdateAvailable bool
	ReleaseURL      string
	CheckedAt       time.Time
	Err             error
}

// Checker compares the running version with the newest release.
type Checker struct {
	version    string
	source     Source
	notifier   notify.Notifier
	prerelease bool
	logger     *zap.Logger

	mu       sync.RWMutex
	info     Info
	notified string
}

// New creates a checker. A nil source uses the GitHub API.
func New(version string, source Source, notifier notify.Notifier, logger *zap.Logger) *Checker {
	if source == nil {
		source = NewGitHubClient()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		version:  version,
		source:   source,
		notifier: notifier,
		logger:   logger,
		info:     Info{Current: version},
	}
}

// Enabled reports whether the running version can be compared at all. Development
// builds are not.
func (c *Checker) Enabled() bool {
	return semver.IsValid(ensureVPrefix(c.version))
}

// Start checks immediately and then every interval until ctx is done.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	if !c.Enabled() {
		c.logger.Info("Update checker disabled for non-semver version", zap.String("version", c.version))
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	c.logger.Info("Starting update checker", zap.String("version", c.version), zap.Duration("interval", interval))
	c.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check runs one comparison. A failed lookup keeps the last known release.
func (c *Checker) Check(ctx context.Context) Info {
	release, err := c.source.Latest(ctx, c.prerelease)

	c.mu.Lock()
	c.info.CheckedAt = time.Now()
	c.info.Err = err
	if err != nil {
		info := c.info
		c.mu.Unlock()
		c.logger.Debug("Update check failed", zap.Error(err))
		return info
	}

	c.info.Latest = release.TagName
	c.info.ReleaseURL = release.HTMLURL
	c.info.UpdateAvailable = newer(c.version, release.TagName)

	notifyNow := c.info.UpdateAvailable && c.notified != release.TagName
	if notifyNow {
		c.notified = release.TagName
	}
	info := c.info
	c.mu.Unlock()

	if info.UpdateAvailable {
		c.logger.Info("Update available",
			zap.String("current", info.Current),
			zap.String("latest", info.Latest),
			zap.String("url", info.ReleaseURL))
	}
	if notifyNow && c.notifier != nil {
		c.notifier.Notify("Clash Verge", "New version "+info.Latest+" is available")
	}
	return info
}

// Info returns the outcome of the last check.
func (c *Checker) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// newer reports whether latest is a higher semver than current.
func newer(current, latest string) bool {
	cur, lat := ensureVPrefix(current), ensureVPrefix(latest)
	if !semver.IsValid(cur) || !semver.IsValid(lat) {
		return false
	}
	return semver.Compare(cur, lat) < 0
}

func ensureVPrefix(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}
	return version
}
