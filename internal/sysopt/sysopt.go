// Package sysopt applies the system proxy and launch-at-login settings and restores
// the user's previous proxy on exit.
package sysopt

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"verge-go/internal/config"
)

// ErrUnsupported is returned on platforms without a system proxy or autostart backend.
var ErrUnsupported = errors.New("not supported on this platform")

const proxyHost = "127.0.0.1"

// Proxy is the system proxy state.
type Proxy struct {
	Enable bool
	Host   string
	Port   uint16
	// Bypass is the platform's own list syntax (comma or semicolon separated).
	Bypass string
}

// ProxyBackend reads and writes the OS proxy settings.
type ProxyBackend interface {
	Get() (Proxy, error)
	Set(p Proxy) error
}

// Launcher toggles launch at login.
type Launcher interface {
	Enabled() (bool, error)
	Enable() error
	Disable() error
}

// Settings is the part of the settings store sysopt reads.
type Settings interface {
	Latest() config.Verge
}

// DefaultBypass returns the bypass list used when the user has not configured one.
func DefaultBypass(goos string) string {
	switch goos {
	case "windows":
		return "localhost;127.*;192.168.*;10.*;172.16.*;172.17.*;172.18.*;172.19.*;172.20.*;172.21.*;172.22.*;172.23.*;172.24.*;172.25.*;172.26.*;172.27.*;172.28.*;172.29.*;172.30.*;172.31.*;<local>"
	case "darwin":
		return "127.0.0.1,192.168.0.0/16,10.0.0.0/8,172.16.0.0/12,localhost,*.local,*.crashlytics.com,<local>"
	default:
		return "localhost,127.0.0.1,192.168.0.0/16,10.0.0.0/8,172.16.0.0/12,::1"
	}
}

// Sysopt owns the system proxy and autostart state of the process.
type Sysopt struct {
	backend   ProxyBackend
	launcher  Launcher
	settings  Settings
	mixedPort func() uint16
	logger    *zap.Logger

	mu      sync.Mutex
	old     *Proxy
	applied *Proxy
}

// New creates a Sysopt with the backends of the running platform.
func New(settings Settings, mixedPort func() uint16, logger *zap.Logger) *Sysopt {
	return NewWithBackends(newProxyBackend(), newLauncher(), settings, mixedPort, logger)
}

// NewWithBackends creates a Sysopt with explicit backends.
func NewWithBackends(backend ProxyBackend, launcher Launcher, settings Settings, mixedPort func() uint16, logger *zap.Logger) *Sysopt {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sysopt{
		backend:   backend,
		launcher:  launcher,
		settings:  settings,
		mixedPort: mixedPort,
		logger:    logger,
	}
}

// InitSysproxy captures the current system proxy and, when enabled in the settings,
// points it at the mixed port.
func (s *Sysopt) InitSysproxy() error {
	verge := s.settings.Latest()

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.backend.Get()
	if err != nil {
		return fmt.Errorf("failed to read system proxy: %w", err)
	}
	s.old = &old

	if !config.Value(verge.EnableSystemProxy, false) {
		return nil
	}
	return s.applyLocked(true, verge)
}

// UpdateSysproxy turns the system proxy on or off.
func (s *Sysopt) UpdateSysproxy(enable bool) error {
	verge := s.settings.Latest()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.old == nil {
		old, err := s.backend.Get()
		if err != nil {
			return fmt.Errorf("failed to read system proxy: %w", err)
		}
		s.old = &old
	}
	return s.applyLocked(enable, verge)
}

func (s *Sysopt) applyLocked(enable bool, verge config.Verge) error {
	bypass := config.Value(verge.SystemProxyBypass, "")
	if bypass == "" {
		bypass = DefaultBypass(runtime.GOOS)
	}

	p := Proxy{Enable: enable, Host: proxyHost, Port: s.mixedPort(), Bypass: bypass}
	if err := s.backend.Set(p); err != nil {
		return fmt.Errorf("failed to set system proxy: %w", err)
	}
	s.applied = &p

	s.logger.Info("System proxy updated", zap.Bool("enable", enable), zap.Uint16("port", p.Port))
	return nil
}

// ResetSysproxy restores the proxy captured by InitSysproxy. Nothing is touched
// when the shell never applied a proxy.
func (s *Sysopt) ResetSysproxy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied == nil {
		return nil
	}

	restore := Proxy{Enable: false, Host: s.applied.Host, Port: s.applied.Port, Bypass: s.applied.Bypass}
	if s.old != nil {
		restore = *s.old
	}
	if err := s.backend.Set(restore); err != nil {
		return fmt.Errorf("failed to restore system proxy: %w", err)
	}
	s.applied = nil
	return nil
}

// ProxyEnabled reports whether the shell has turned the system proxy on.
func (s *Sysopt) ProxyEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied != nil && s.applied.Enable
}

// InitLaunch brings launch at login in line with the settings.
func (s *Sysopt) InitLaunch() error {
	return s.UpdateLaunch(config.Value(s.settings.Latest().EnableAutoLaunch, false))
}

// UpdateLaunch enables or disables launch at login.
func (s *Sysopt) UpdateLaunch(enable bool) error {
	enabled, err := s.launcher.Enabled()
	if err != nil {
		return fmt.Errorf("failed to read launch at login: %w", err)
	}
	if enabled == enable {
		return nil
	}
	if enable {
		err = s.launcher.Enable()
	} else {
		err = s.launcher.Disable()
	}
	if err != nil {
		return fmt.Errorf("failed to update launch at login: %w", err)
	}
	s.logger.Info("Launch at login updated", zap.Bool("enable", enable))
	return nil
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %v: %w", name, args, err)
	}
	return out, nil
}

type unsupportedProxy struct{}

func (unsupportedProxy) Get() (Proxy, error) { return Proxy{}, ErrUnsupported }
func (unsupportedProxy) Set(Proxy) error { return ErrUnsupported }

type unsupportedLauncher struct{}

func (unsupportedLauncher) Enabled() (bool, error) { return false, ErrUnsupported }
func (unsupportedLauncher) Enable() error { return ErrUnsupported }
func (unsupportedLauncher) Disable() error { return ErrUnsupported }
