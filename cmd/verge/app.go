package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"verge-go/internal/appinit"
	"verge-go/internal/bootstrap"
	"verge-go/internal/config"
	"verge-go/internal/core"
	"verge-go/internal/desktop"
	"verge-go/internal/enhance"
	"verge-go/internal/hotkey"
	"verge-go/internal/notify"
	"verge-go/internal/observability"
	"verge-go/internal/port"
	"verge-go/internal/profiles"
	"verge-go/internal/scheme"
	"verge-go/internal/server"
	"verge-go/internal/sysopt"
	"verge-go/internal/timer"
	"verge-go/internal/tray"
	"verge-go/internal/updatecheck"
	"verge-go/internal/window"
)

const shutdownTimeout = 5 * time.Second

// app wires the services together and acts as the tray controller.
type app struct {
	cfg    *config.Config
	args   []string
	logger *zap.Logger
	start  time.Time

	store      *config.Store
	collection *profiles.Collection
	metrics    *observability.MetricsManager
	importer   *scheme.Importer
	generator  *enhance.Generator
	core       *core.Manager
	sysopt     *sysopt.Sysopt
	windows    *desktop.System
	window     *window.Manager
	server     *server.Server
	tray       *tray.App
	hotkeys    *hotkey.Manager
	timer      *timer.Timer
	updates    *updatecheck.Checker
	bootstrap  *bootstrap.Orchestrator

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	quitting bool
}

func newApp(cfg *config.Config, args []string, logger *zap.Logger) (*app, error) {
	store, err := config.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	collection, err := profiles.Open(store.ProfilesPath(), store.ProfilesDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open profiles: %w", err)
	}

	a := &app{
		cfg:        cfg,
		args:       args,
		logger:     logger,
		start:      time.Now(),
		store:      store,
		collection: collection,
		metrics:    observability.NewMetricsManager(),
		ctx:        context.Background(),
	}
	sugar := logger.Sugar()

	notifier := notify.NewDesktop(logger)
	fetcher := profiles.NewFetcher(version, a.MixedPort)
	a.importer = scheme.NewImporter(fetcher, collection, notifier, logger.Named("scheme"))
	a.generator = enhance.NewGenerator(store, collection, store.RuntimePath())

	coreName := config.Value(store.Latest().ClashCore, "verge-mihomo")
	binary, err := core.ResolveBinary(coreName)
	if err != nil {
		logger.Warn("Core binary not found, launch will fail", zap.String("core", coreName), zap.Error(err))
		binary = coreName
	}
	a.core = core.NewManager(core.Config{
		Binary:        binary,
		DataDir:       cfg.DataDir,
		RuntimeConfig: store.RuntimePath(),
	}, sugar.Named("core"))
	a.core.OnStatus(func(s core.Status) {
		a.metrics.SetCoreRunning(s == core.StatusRunning)
		// the callback holds the core lock; the tray reads core status
		go a.refreshTray()
	})

	a.sysopt = sysopt.New(store, a.MixedPort, logger.Named("sysopt"))
	a.windows = desktop.NewSystem(logger.Named("desktop"))
	a.window = window.NewManager(a.windows, store, window.CurrentProfile(), logger.Named("window"))
	a.server = server.New(cfg.SingletonPort, server.Commands{
		ShowWindow: a.ShowWindow,
		ImportScheme: func(ctx context.Context, request string) {
			a.Import(ctx, request)
		},
	}, a.metrics, sugar.Named("server"))
	a.tray = tray.New(a, cfg.DataDir, version, sugar.Named("tray"))
	a.hotkeys = hotkey.NewManager(hotkey.NewSystemRegistrar(logger.Named("hotkey")), map[string]func(){
		hotkey.FuncOpenDashboard:     a.ShowWindow,
		hotkey.FuncToggleSystemProxy: a.toggleSystemProxy,
	}, logger.Named("hotkey"))
	a.timer = timer.New(fetcher, collection, a.profileUpdated, logger.Named("timer"))
	a.updates = updatecheck.New(version, nil, notifier, logger.Named("update"))

	a.bootstrap = bootstrap.New(bootstrap.Deps{
		Settings: store,
		Port:     port.NewResolver(nil, logger.Named("port")),
		Config:   a.generator,
		Core:     a.core,
		Server:   a.server,
		Tray:     a.tray,
		Window:   a.window,
		Sysopt:   a.sysopt,
		Hotkeys:  a.hotkeys,
		Timer:    a.timer,
		Importer: a,

		InitResources: func() error {
			return appinit.InitResources(cfg.ResourcesDir, cfg.DataDir, logger.Named("resources"))
		},
		InitScheme: appinit.InitScheme,
		RunScript: func(ctx context.Context, path string) error {
			return appinit.RunStartupScript(ctx, path, cfg.DataDir)
		},
		Recorder: a.metrics,
	}, logger)

	return a, nil
}

func (a *app) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

// startup is the wails OnStartup hook.
func (a *app) startup(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.ctx = runCtx
	a.cancel = cancel
	a.mu.Unlock()

	a.windows.Attach(desktop.NewRuntime(ctx))
	go a.trackUptime(runCtx)
	go a.windows.Watch(runCtx, time.Second, func() {
		if err := a.window.PersistGeometry(false); err != nil && !errors.Is(err, window.ErrNoWindow) {
			a.logger.Debug("Failed to record window geometry", zap.Error(err))
		}
	})
	if a.cfg.CheckUpdates {
		go a.updates.Start(runCtx, updatecheck.DefaultInterval)
	}

	report := a.bootstrap.Setup(runCtx, a.args)
	if report.Phase == bootstrap.PhaseDegraded {
		a.logger.Warn("Running without the proxy core", zap.String("output", a.core.Output()))
	}
}

// beforeClose hides the window instead of closing it unless the user chose Quit.
func (a *app) beforeClose(_ context.Context) bool {
	if err := a.window.PersistGeometry(true); err != nil && !errors.Is(err, window.ErrNoWindow) {
		a.logger.Warn("Failed to persist window geometry", zap.Error(err))
	}

	a.mu.Lock()
	quitting := a.quitting
	a.mu.Unlock()
	if quitting {
		return false
	}

	a.windows.Close()
	a.window.Forget()
	return true
}

// shutdown is the wails OnShutdown hook.
func (a *app) shutdown(_ context.Context) {
	a.logger.Info("Shutting down")

	for _, step := range a.bootstrap.Reset() {
		if step.Err != nil && !errors.Is(step.Err, core.ErrNotRunning) {
			a.logger.Warn("Shutdown step failed", zap.String("step", step.Name), zap.Error(step.Err))
		}
	}

	a.timer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to stop embed server", zap.Error(err))
	}
	a.tray.Stop()

	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to flush settings", zap.Error(err))
	}

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()
}

func (a *app) trackUptime(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		a.metrics.SetUptime(a.start)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *app) refreshTray() {
	a.tray.UpdatePart()
}

// Import runs a scheme import and refreshes the timers for the new profile.
func (a *app) Import(ctx context.Context, request string) scheme.Outcome {
	outcome := a.importer.Import(ctx, request)
	a.metrics.RecordImport(outcome.Success())
	if outcome.Success() {
		if err := a.timer.Refresh(); err != nil {
			a.logger.Warn("Failed to refresh profile timers", zap.Error(err))
		}
	}
	return outcome
}

// profileUpdated reloads the core when the refreshed profile is the active one.
func (a *app) profileUpdated(uid string) {
	current, ok := a.collection.Current()
	if !ok || current.UID != uid {
		return
	}
	if err := a.RestartCore(); err != nil {
		a.logger.Error("Failed to reload core after profile update", zap.String("uid", uid), zap.Error(err))
	}
}

func (a *app) toggleSystemProxy() {
	if err := a.SetSystemProxy(!a.SystemProxyEnabled()); err != nil {
		a.logger.Error("Failed to toggle system proxy", zap.Error(err))
	}
	a.refreshTray()
}

// ShowWindow creates or refocuses the main window.
func (a *app) ShowWindow() {
	a.window.EnsureWindow()
}

func (a *app) SystemProxyEnabled() bool {
	return a.sysopt.ProxyEnabled()
}

func (a *app) SetSystemProxy(enable bool) error {
	a.store.PatchVerge(config.Verge{EnableSystemProxy: config.Ptr(enable)})
	if err := a.store.SaveVerge(); err != nil {
		return err
	}
	return a.sysopt.UpdateSysproxy(enable)
}

func (a *app) LaunchAtLoginEnabled() bool {
	return config.Value(a.store.Latest().EnableAutoLaunch, false)
}

func (a *app) SetLaunchAtLogin(enable bool) error {
	if err := a.sysopt.UpdateLaunch(enable); err != nil {
		return err
	}
	a.store.PatchVerge(config.Verge{EnableAutoLaunch: config.Ptr(enable)})
	return a.store.SaveVerge()
}

func (a *app) CoreRunning() bool {
	return a.core.Status() == core.StatusRunning
}

// RestartCore regenerates the runtime config and restarts the core.
func (a *app) RestartCore() error {
	if _, err := a.generator.Generate(); err != nil {
		return fmt.Errorf("failed to generate runtime config: %w", err)
	}
	return a.core.Restart(a.context())
}

// MixedPort is the port the core's mixed listener uses.
func (a *app) MixedPort() uint16 {
	verge := a.store.Latest()
	if verge.VergeMixedPort != nil {
		return *verge.VergeMixedPort
	}
	return a.store.Clash().MixedPort()
}

// Quit closes the window for real and stops the wails loop.
func (a *app) Quit() {
	a.mu.Lock()
	a.quitting = true
	ctx := a.ctx
	a.mu.Unlock()
	wailsruntime.Quit(ctx)
}
