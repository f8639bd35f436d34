package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"verge-go/internal/config"
	"verge-go/internal/scheme"
)

// callLog is shared by every fake so the test can assert the global order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeSettings struct {
	log     *callLog
	verge   config.Verge
	clash   config.ClashDoc
	saveErr error
	saves   int
}

func newFakeSettings(log *callLog) *fakeSettings {
	return &fakeSettings{log: log, verge: config.DefaultVerge(), clash: config.DefaultClash()}
}

func (s *fakeSettings) Latest() config.Verge { return s.verge.Clone() }
func (s *fakeSettings) Clash() config.ClashDoc { return s.clash.Clone() }
func (s *fakeSettings) PatchVerge(p config.Verge) { s.verge.Patch(p) }
func (s *fakeSettings) PatchClash(m map[string]any) { s.clash.Patch(m) }
func (s *fakeSettings) SaveVerge() error {
	s.saves++
	s.log.add("save_verge")
	return s.saveErr
}
func (s *fakeSettings) SaveClash() error {
	s.saves++
	s.log.add("save_clash")
	return s.saveErr
}

type fakePort struct {
	log  *callLog
	port uint16
}

func (p *fakePort) Resolve(bool, *uint16, uint16) uint16 {
	p.log.add("resolve_port")
	return p.port
}

type fakeService struct {
	log  *callLog
	errs map[string]error
}

func (f *fakeService) do(call string) error {
	f.log.add(call)
	return f.errs[call]
}

func (f *fakeService) Generate() (map[string]any, error) { return nil, f.do("generate") }
func (f *fakeService) Init(context.Context) error { return f.do("core_init") }
func (f *fakeService) Stop() error { return f.do("core_stop") }
func (f *fakeService) Start() error { return f.do("server_start") }
func (f *fakeService) UpdateSystray() error { return f.do("systray") }
func (f *fakeService) UpdatePart() { _ = f.do("systray_part") }
func (f *fakeService) EnsureWindow() { _ = f.do("window") }
func (f *fakeService) InitLaunch() error { return f.do("launch") }
func (f *fakeService) InitSysproxy() error { return f.do("sysproxy") }
func (f *fakeService) ResetSysproxy() error { return f.do("reset_sysproxy") }

type fakeHotkeys struct {
	svc *fakeService
	got []string
}

func (h *fakeHotkeys) Init(hotkeys []string) error {
	h.got = hotkeys
	return h.svc.do("hotkeys")
}

type fakeTimer struct{ svc *fakeService }

func (t fakeTimer) Init(context.Context) error { return t.svc.do("timer") }

type fakeImporter struct {
	svc      *fakeService
	requests []string
	err      error
}

func (i *fakeImporter) Import(_ context.Context, request string) scheme.Outcome {
	i.requests = append(i.requests, request)
	_ = i.svc.do("import")
	return scheme.Outcome{Err: i.err}
}

type stepCall struct {
	step     string
	critical bool
	failed   bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	steps []stepCall
}

func (r *fakeRecorder) RecordStep(step string, critical bool, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, stepCall{step: step, critical: critical, failed: err != nil})
}

type harness struct {
	log      *callLog
	settings *fakeSettings
	svc      *fakeService
	hotkeys  *fakeHotkeys
	importer *fakeImporter
	recorder *fakeRecorder
	deps     Deps
}

func newHarness() *harness {
	log := &callLog{}
	svc := &fakeService{log: log, errs: map[string]error{}}
	h := &harness{
		log:      log,
		settings: newFakeSettings(log),
		svc:      svc,
		hotkeys:  &fakeHotkeys{svc: svc},
		importer: &fakeImporter{svc: svc},
		recorder: &fakeRecorder{},
	}
	h.deps = Deps{
		Settings: h.settings,
		Port:     &fakePort{log: log, port: 7897},
		Config:   svc,
		Core:     svc,
		Server:   svc,
		Tray:     svc,
		Window:   svc,
		Sysopt:   svc,
		Hotkeys:  h.hotkeys,
		Timer:    fakeTimer{svc: svc},
		Importer: h.importer,

		InitResources: func() error { log.add("resources"); return nil },
		InitScheme:    func() error { log.add("scheme"); return nil },
		RunScript: func(context.Context, string) error {
			log.add("script")
			return nil
		},
		Recorder: h.recorder,
	}
	return h
}

func stepNames(steps []StepRecord) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Name)
	}
	return names
}

func TestSetupRunsStepsInOrder(t *testing.T) {
	h := newHarness()
	h.settings.verge.StartupScript = config.Ptr("/opt/verge/init.sh")

	o := New(h.deps, zaptest.NewLogger(t))
	report := o.Setup(context.Background(), nil)

	assert.Equal(t, []string{
		"resources", "scheme", "script",
		"resolve_port", "save_verge", "save_clash",
		"generate", "core_init", "server_start", "systray",
		"window",
		"launch", "sysproxy",
		"systray_part", "hotkeys", "timer",
	}, h.log.list())

	assert.Equal(t, []string{
		StepInitResources, StepInitScheme, StepStartupScript, StepResolvePort,
		StepInitConfig, StepLaunchCore, StepEmbedServer, StepUpdateSystray,
		StepCreateWindow, StepInitLaunch, StepInitSysproxy,
		StepUpdateSystrayPart, StepInitHotkey, StepInitTimer,
	}, stepNames(report.Steps))

	assert.Equal(t, PhaseReady, report.Phase)
	assert.Equal(t, PhaseReady, o.Phase())
	assert.Empty(t, report.Failed())
	assert.Nil(t, report.Import)
	assert.Len(t, h.recorder.steps, len(report.Steps))
}

func TestSetupSkipsScriptWhenNotConfigured(t *testing.T) {
	h := newHarness()

	New(h.deps, zap.NewNop()).Setup(context.Background(), nil)

	assert.NotContains(t, h.log.list(), "script")
}

func TestSetupSilentStartCreatesNoWindow(t *testing.T) {
	h := newHarness()
	h.settings.verge.EnableSilentStart = config.Ptr(true)

	report := New(h.deps, zap.NewNop()).Setup(context.Background(), nil)

	assert.NotContains(t, h.log.list(), "window")
	assert.NotContains(t, stepNames(report.Steps), StepCreateWindow)
	assert.Equal(t, PhaseReady, report.Phase)
}

func TestSetupPersistsResolvedPort(t *testing.T) {
	h := newHarness()

	report := New(h.deps, zap.NewNop()).Setup(context.Background(), nil)

	assert.Equal(t, uint16(7897), report.MixedPort)
	require.NotNil(t, h.settings.verge.VergeMixedPort)
	assert.Equal(t, uint16(7897), *h.settings.verge.VergeMixedPort)
	assert.Equal(t, uint16(7897), h.settings.clash.MixedPort())
	assert.Equal(t, 2, h.settings.saves)
}

func TestSetupCoreFailureDegradesButContinues(t *testing.T) {
	h := newHarness()
	h.svc.errs["core_init"] = errors.New("config check failed")

	core, logs := observer.New(zapcore.InfoLevel)
	o := New(h.deps, zap.New(core))
	report := o.Setup(context.Background(), nil)

	assert.Equal(t, PhaseDegraded, report.Phase)
	assert.Equal(t, PhaseDegraded, o.Phase())

	calls := h.log.list()
	for _, later := range []string{"server_start", "systray", "window", "launch", "sysproxy", "systray_part", "hotkeys", "timer"} {
		assert.Contains(t, calls, later)
	}

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, StepLaunchCore, failed[0].Name)
	assert.True(t, failed[0].Critical)

	entries := logs.FilterMessage("Critical bootstrap step failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, StepLaunchCore, entries[0].ContextMap()["step"])

	var recorded stepCall
	for _, s := range h.recorder.steps {
		if s.step == StepLaunchCore {
			recorded = s
		}
	}
	assert.True(t, recorded.critical)
	assert.True(t, recorded.failed)
}

func TestSetupLoggedFailuresKeepReady(t *testing.T) {
	h := newHarness()
	h.svc.errs["server_start"] = errors.New("address in use")
	h.svc.errs["sysproxy"] = errors.New("gsettings missing")
	h.svc.errs["hotkeys"] = errors.New("bad binding")
	h.settings.saveErr = errors.New("read-only filesystem")

	core, logs := observer.New(zapcore.ErrorLevel)
	report := New(h.deps, zap.New(core)).Setup(context.Background(), nil)

	assert.Equal(t, PhaseReady, report.Phase)
	assert.Equal(t, []string{StepResolvePort, StepEmbedServer, StepInitSysproxy, StepInitHotkey}, stepNames(report.Failed()))
	assert.Equal(t, 4, logs.FilterMessage("Bootstrap step failed").Len())
	// the port is still used for the rest of the run
	assert.Equal(t, uint16(7897), report.MixedPort)
	assert.Contains(t, h.log.list(), "timer")
}

func TestSetupPassesHotkeysFromSettings(t *testing.T) {
	h := newHarness()
	h.settings.verge.Hotkeys = []string{"open_dashboard,CmdOrControl+Shift+D"}

	New(h.deps, zap.NewNop()).Setup(context.Background(), nil)

	assert.Equal(t, []string{"open_dashboard,CmdOrControl+Shift+D"}, h.hotkeys.got)
}

func TestSetupImportsSingleArgumentLast(t *testing.T) {
	h := newHarness()
	const request = "clash://install-config?url=https://example.com/sub"

	report := New(h.deps, zap.NewNop()).Setup(context.Background(), []string{request})

	calls := h.log.list()
	assert.Equal(t, "import", calls[len(calls)-1])
	assert.Equal(t, []string{request}, h.importer.requests)
	require.NotNil(t, report.Import)
	assert.True(t, report.Import.Success())
	assert.Equal(t, StepSchemeImport, report.Steps[len(report.Steps)-1].Name)
}

func TestSetupIgnoresExtraArguments(t *testing.T) {
	for _, args := range [][]string{nil, {}, {"a", "b"}} {
		h := newHarness()
		report := New(h.deps, zap.NewNop()).Setup(context.Background(), args)

		assert.Empty(t, h.importer.requests)
		assert.Nil(t, report.Import)
	}
}

func TestSetupImportFailureIsNotCritical(t *testing.T) {
	h := newHarness()
	h.importer.err = errors.New("fetch failed")

	report := New(h.deps, zap.NewNop()).Setup(context.Background(), []string{"clash://install-config?url=x"})

	assert.Equal(t, PhaseReady, report.Phase)
	require.NotNil(t, report.Import)
	assert.False(t, report.Import.Success())
}

func TestSetupWithNoServices(t *testing.T) {
	report := New(Deps{}, nil).Setup(context.Background(), []string{"clash://x"})

	assert.Equal(t, PhaseReady, report.Phase)
	assert.Empty(t, report.Failed())
	assert.Zero(t, report.MixedPort)
}

func TestResetContinuesAfterSysproxyFailure(t *testing.T) {
	h := newHarness()
	h.svc.errs["reset_sysproxy"] = errors.New("registry locked")

	o := New(h.deps, zap.NewNop())
	o.Setup(context.Background(), nil)
	steps := o.Reset()

	assert.Equal(t, []string{StepResetSysproxy, StepStopCore}, stepNames(steps))
	assert.Error(t, steps[0].Err)
	assert.NoError(t, steps[1].Err)

	calls := h.log.list()
	assert.Equal(t, []string{"reset_sysproxy", "core_stop"}, calls[len(calls)-2:])
	assert.Equal(t, PhaseStopped, o.Phase())
}

func TestResetTwiceStaysStopped(t *testing.T) {
	h := newHarness()
	o := New(h.deps, zap.NewNop())

	o.Reset()
	o.Reset()

	assert.Equal(t, PhaseStopped, o.Phase())
}
