// Package bootstrap runs the ordered startup sequence of the shell and the matching
// teardown. Every step is logged and recorded; only a failed core launch changes the
// outcome, and even then the remaining steps still run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"verge-go/internal/config"
	"verge-go/internal/scheme"
)

// Step names, in execution order.
const (
	StepInitResources     = "init_resources"
	StepInitScheme        = "init_scheme"
	StepStartupScript     = "startup_script"
	StepResolvePort       = "resolve_port"
	StepInitConfig        = "init_config"
	StepLaunchCore        = "launch_core"
	StepEmbedServer       = "embed_server"
	StepUpdateSystray     = "update_systray"
	StepCreateWindow      = "create_window"
	StepInitLaunch        = "init_launch"
	StepInitSysproxy      = "init_sysproxy"
	StepUpdateSystrayPart = "update_systray_part"
	StepInitHotkey        = "init_hotkey"
	StepInitTimer         = "init_timer"
	StepSchemeImport      = "scheme_import"

	StepResetSysproxy = "reset_sysproxy"
	StepStopCore      = "stop_core"
)

// Settings is the persisted configuration the orchestrator reads and patches.
type Settings interface {
	Latest() config.Verge
	Clash() config.ClashDoc
	PatchVerge(p config.Verge)
	PatchClash(m map[string]any)
	SaveVerge() error
	SaveClash() error
}

// PortResolver picks the mixed port.
type PortResolver interface {
	Resolve(enableRandom bool, configured *uint16, clashDefault uint16) uint16
}

// Core is the proxy core process manager.
type Core interface {
	Init(ctx context.Context) error
	Stop() error
}

// ConfigGenerator writes the runtime config the core loads.
type ConfigGenerator interface {
	Generate() (map[string]any, error)
}

// EmbedServer is the local control server.
type EmbedServer interface {
	Start() error
}

// Tray is the system tray menu.
type Tray interface {
	UpdateSystray() error
	UpdatePart()
}

// Window creates or refocuses the main window.
type Window interface {
	EnsureWindow()
}

// Sysopt applies system proxy and launch-at-login settings.
type Sysopt interface {
	InitLaunch() error
	InitSysproxy() error
	ResetSysproxy() error
}

// Hotkeys registers the configured global shortcuts.
type Hotkeys interface {
	Init(hotkeys []string) error
}

// Timer starts the profile refresh loops.
type Timer interface {
	Init(ctx context.Context) error
}

// Importer handles a clash:// install request.
type Importer interface {
	Import(ctx context.Context, request string) scheme.Outcome
}

// Deps are the services the orchestrator drives. Nil services and funcs are skipped
// and recorded as successful no-ops.
type Deps struct {
	Settings Settings
	Port     PortResolver
	Config   ConfigGenerator
	Core     Core
	Server   EmbedServer
	Tray     Tray
	Window   Window
	Sysopt   Sysopt
	Hotkeys  Hotkeys
	Timer    Timer
	Importer Importer

	InitResources func() error
	InitScheme    func() error
	RunScript     func(ctx context.Context, path string) error

	Recorder StepRecorder
}

// Report summarises one Setup run.
type Report struct {
	Phase     Phase
	Steps     []StepRecord
	MixedPort uint16
	// Import is set when a scheme request was handed over on the command line.
	Import *scheme.Outcome
	Total  time.Duration
}

// Failed returns the steps that returned an error.
func (r Report) Failed() []StepRecord {
	var out []StepRecord
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Orchestrator owns the startup and shutdown sequence.
type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
	phase  *phaseMachine
}

// New creates an orchestrator in the Booting phase.
func New(deps Deps, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		deps:   deps,
		logger: logger.Named("bootstrap"),
		phase:  newPhaseMachine(PhaseBooting),
	}
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase.Current()
}

// Setup runs every startup step in order. args are the positional command line
// arguments; exactly one is treated as a scheme request and imported synchronously
// after everything else. Setup never fails: problems end up in the report.
func (o *Orchestrator) Setup(ctx context.Context, args []string) Report {
	start := time.Now()
	ex := newExecutor(o.logger, o.deps.Recorder)
	report := Report{}

	ex.run(StepInitResources, optional(o.deps.InitResources))
	ex.run(StepInitScheme, optional(o.deps.InitScheme))
	ex.run(StepStartupScript, func() error { return o.runScript(ctx) })

	ex.run(StepResolvePort, func() error {
		port, err := o.resolvePort()
		report.MixedPort = port
		return err
	})

	ex.run(StepInitConfig, func() error {
		if o.deps.Config == nil {
			return nil
		}
		_, err := o.deps.Config.Generate()
		return err
	})

	ex.runCritical(StepLaunchCore, func() error {
		if o.deps.Core == nil {
			return nil
		}
		return o.deps.Core.Init(ctx)
	})

	ex.run(StepEmbedServer, func() error {
		if o.deps.Server == nil {
			return nil
		}
		return o.deps.Server.Start()
	})

	ex.run(StepUpdateSystray, func() error {
		if o.deps.Tray == nil {
			return nil
		}
		return o.deps.Tray.UpdateSystray()
	})

	silent := o.deps.Settings != nil && config.Value(o.deps.Settings.Latest().EnableSilentStart, false)
	if !silent && o.deps.Window != nil {
		ex.run(StepCreateWindow, func() error {
			o.deps.Window.EnsureWindow()
			return nil
		})
	}

	if o.deps.Sysopt != nil {
		ex.run(StepInitLaunch, o.deps.Sysopt.InitLaunch)
		ex.run(StepInitSysproxy, o.deps.Sysopt.InitSysproxy)
	}

	ex.run(StepUpdateSystrayPart, func() error {
		if o.deps.Tray != nil {
			o.deps.Tray.UpdatePart()
		}
		return nil
	})

	ex.run(StepInitHotkey, func() error {
		if o.deps.Hotkeys == nil || o.deps.Settings == nil {
			return nil
		}
		return o.deps.Hotkeys.Init(o.deps.Settings.Latest().Hotkeys)
	})

	ex.run(StepInitTimer, func() error {
		if o.deps.Timer == nil {
			return nil
		}
		return o.deps.Timer.Init(ctx)
	})

	if len(args) == 1 && o.deps.Importer != nil {
		ex.run(StepSchemeImport, func() error {
			outcome := o.deps.Importer.Import(ctx, args[0])
			report.Import = &outcome
			return outcome.Err
		})
	}

	steps, degraded := ex.snapshot()
	report.Steps = steps
	report.Total = time.Since(start)

	next := PhaseReady
	if degraded {
		next = PhaseDegraded
	}
	if !o.phase.Transition(next) {
		o.logger.Warn("Ignoring phase transition", zap.String("from", string(o.phase.Current())), zap.String("to", string(next)))
	}
	report.Phase = o.phase.Current()

	ex.logTiming(report.Total)
	o.logger.Info("Bootstrap finished",
		zap.String("phase", string(report.Phase)),
		zap.Int("failed_steps", len(report.Failed())),
		zap.Uint16("mixed_port", report.MixedPort))
	return report
}

func (o *Orchestrator) runScript(ctx context.Context) error {
	if o.deps.RunScript == nil || o.deps.Settings == nil {
		return nil
	}
	path := config.Value(o.deps.Settings.Latest().StartupScript, "")
	if path == "" {
		return nil
	}
	return o.deps.RunScript(ctx, path)
}

// resolvePort picks the mixed port and writes it to both documents. The chosen port
// is returned even when persisting it fails.
func (o *Orchestrator) resolvePort() (uint16, error) {
	if o.deps.Settings == nil || o.deps.Port == nil {
		return 0, nil
	}

	verge := o.deps.Settings.Latest()
	port := o.deps.Port.Resolve(
		config.Value(verge.EnableRandomPort, false),
		verge.VergeMixedPort,
		o.deps.Settings.Clash().MixedPort(),
	)

	o.deps.Settings.PatchVerge(config.Verge{VergeMixedPort: config.Ptr(port)})
	o.deps.Settings.PatchClash(map[string]any{config.MixedPortKey: int(port)})

	var errs []error
	if err := o.deps.Settings.SaveVerge(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save verge settings: %w", err))
	}
	if err := o.deps.Settings.SaveClash(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save clash config: %w", err))
	}
	return port, errors.Join(errs...)
}

// Reset restores the system proxy and stops the core. Both steps run even if the
// first fails.
func (o *Orchestrator) Reset() []StepRecord {
	if !o.phase.Transition(PhaseStopping) {
		o.logger.Warn("Reset called twice", zap.String("phase", string(o.phase.Current())))
	}

	ex := newExecutor(o.logger, o.deps.Recorder)
	ex.run(StepResetSysproxy, func() error {
		if o.deps.Sysopt == nil {
			return nil
		}
		return o.deps.Sysopt.ResetSysproxy()
	})
	ex.run(StepStopCore, func() error {
		if o.deps.Core == nil {
			return nil
		}
		return o.deps.Core.Stop()
	})

	o.phase.Transition(PhaseStopped)
	steps, _ := ex.snapshot()
	return steps
}

func optional(fn func() error) func() error {
	if fn == nil {
		return func() error { return nil }
	}
	return fn
}
