package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wailsapp/wails/v2"
	"go.uber.org/zap"

	"verge-go/internal/config"
	"verge-go/internal/desktop"
	"verge-go/internal/logs"
	"verge-go/internal/server"
	"verge-go/internal/window"
)

//go:embed all:frontend/dist
var assets embed.FS

var version = "v0.1.0" // This will be injected by -ldflags during build

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "verge [scheme-url]",
		Short:        "Clash Verge - desktop shell for the clash proxy core",
		Version:      version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: run,
	}

	addFlags(rootCmd.PersistentFlags())
	return rootCmd
}

// addFlags declares the app config flags. Names match the viper keys.
func addFlags(flags *pflag.FlagSet) {
	flags.StringP("data-dir", "d", "", "Data directory path (default: user config dir/clash-verge)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-to-file", true, "Enable logging to file in standard OS location")
	flags.String("log-dir", "", "Custom log directory path (overrides standard OS location)")
	flags.Bool("check-updates", true, "Check for new releases in the background")
}

// schemeArgument returns the single positional argument, if any.
func schemeArgument(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func run(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting Clash Verge",
		zap.String("version", version),
		zap.String("data_dir", cfg.DataDir),
		zap.Uint16("singleton_port", cfg.SingletonPort),
		zap.Int("args", len(args)))

	checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	running, err := server.CheckSingleton(checkCtx, cfg.SingletonPort, schemeArgument(args))
	cancel()
	if running {
		if err != nil {
			logger.Warn("Another instance is running but did not take the request", zap.Error(err))
		}
		logger.Info("Another instance is running, handing over")
		return nil
	}

	a, err := newApp(cfg, args, logger)
	if err != nil {
		return err
	}

	dist, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		return fmt.Errorf("failed to load frontend assets: %w", err)
	}

	opts := desktop.AppOptions(window.CurrentProfile(), dist, desktop.Hooks{
		OnStartup:     a.startup,
		OnBeforeClose: a.beforeClose,
		OnShutdown:    a.shutdown,
	})
	if err := wails.Run(opts); err != nil {
		return fmt.Errorf("window runtime failed: %w", err)
	}
	return nil
}
