package sysopt

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verge-go/internal/config"
)

type fakeBackend struct {
	current Proxy
	sets    []Proxy
	getErr  error
	setErr  error
}

func (f *fakeBackend) Get() (Proxy, error) { return f.current, f.getErr }

func (f *fakeBackend) Set(p Proxy) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets = append(f.sets, p)
	f.current = p
	return nil
}

type fakeLauncher struct {
	enabled bool
	calls   []string
}

func (f *fakeLauncher) Enabled() (bool, error) { return f.enabled, nil }
func (f *fakeLauncher) Enable() error {
	f.calls = append(f.calls, "enable")
	f.enabled = true
	return nil
}
func (f *fakeLauncher) Disable() error {
	f.calls = append(f.calls, "disable")
	f.enabled = false
	return nil
}

type staticSettings config.Verge

func (s staticSettings) Latest() config.Verge { return config.Verge(s) }

func port7897() uint16 { return 7897 }

func TestInitSysproxyDisabledOnlyCaptures(t *testing.T) {
	backend := &fakeBackend{current: Proxy{Enable: true, Host: "10.0.0.1", Port: 3128}}
	s := NewWithBackends(backend, &fakeLauncher{}, staticSettings{}, port7897, nil)

	require.NoError(t, s.InitSysproxy())
	assert.Empty(t, backend.sets)
	assert.False(t, s.ProxyEnabled())

	require.NoError(t, s.ResetSysproxy())
	assert.Empty(t, backend.sets, "nothing applied, nothing restored")
}

func TestInitSysproxyAppliesAndResetRestores(t *testing.T) {
	old := Proxy{Enable: true, Host: "10.0.0.1", Port: 3128, Bypass: "corp"}
	backend := &fakeBackend{current: old}
	settings := staticSettings{EnableSystemProxy: config.Ptr(true), SystemProxyBypass: config.Ptr("localhost,*.lan")}
	s := NewWithBackends(backend, &fakeLauncher{}, settings, port7897, nil)

	require.NoError(t, s.InitSysproxy())
	require.Len(t, backend.sets, 1)
	assert.Equal(t, Proxy{Enable: true, Host: "127.0.0.1", Port: 7897, Bypass: "localhost,*.lan"}, backend.sets[0])
	assert.True(t, s.ProxyEnabled())

	require.NoError(t, s.ResetSysproxy())
	assert.Equal(t, old, backend.current)
	assert.False(t, s.ProxyEnabled())
}

func TestDefaultBypassUsedWhenUnset(t *testing.T) {
	backend := &fakeBackend{}
	s := NewWithBackends(backend, &fakeLauncher{}, staticSettings{EnableSystemProxy: config.Ptr(true)}, port7897, nil)

	require.NoError(t, s.InitSysproxy())
	assert.Equal(t, DefaultBypass(runtime.GOOS), backend.sets[0].Bypass)
}

func TestInitSysproxyReadFailure(t *testing.T) {
	backend := &fakeBackend{getErr: ErrUnsupported}
	s := NewWithBackends(backend, &fakeLauncher{}, staticSettings{EnableSystemProxy: config.Ptr(true)}, port7897, nil)

	err := s.InitSysproxy()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Empty(t, backend.sets)
}

func TestUpdateSysproxyToggle(t *testing.T) {
	backend := &fakeBackend{}
	s := NewWithBackends(backend, &fakeLauncher{}, staticSettings{}, port7897, nil)

	require.NoError(t, s.UpdateSysproxy(true))
	assert.True(t, s.ProxyEnabled())
	require.NoError(t, s.UpdateSysproxy(false))
	assert.False(t, s.ProxyEnabled())

	backend.setErr = errors.New("denied")
	assert.Error(t, s.UpdateSysproxy(true))
}

func TestInitLaunch(t *testing.T) {
	launcher := &fakeLauncher{}
	s := NewWithBackends(&fakeBackend{}, launcher, staticSettings{EnableAutoLaunch: config.Ptr(true)}, port7897, nil)

	require.NoError(t, s.InitLaunch())
	require.NoError(t, s.InitLaunch())
	assert.Equal(t, []string{"enable"}, launcher.calls, "already in the desired state")

	require.NoError(t, s.UpdateLaunch(false))
	assert.Equal(t, []string{"enable", "disable"}, launcher.calls)
}

func TestInitLaunchUnsupported(t *testing.T) {
	s := NewWithBackends(&fakeBackend{}, unsupportedLauncher{}, staticSettings{}, port7897, nil)
	assert.ErrorIs(t, s.InitLaunch(), ErrUnsupported)
}

func TestSplitBypass(t *testing.T) {
	assert.Equal(t, []string{"localhost", "127.*", "<local>"}, splitBypass("localhost; 127.*;;<local>"))
	assert.Equal(t, []string{"a", "b"}, splitBypass(" a , b ,"))
	assert.Empty(t, splitBypass(""))
}
