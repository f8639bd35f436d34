package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppDirName is the directory under the user config dir that holds all persisted documents.
	AppDirName = "clash-verge"

	envPrefix = "VERGE"
)

// Load resolves the configuration from defaults, environment and any flags bound to viper.
func Load() (*Config, error) {
	setupViper()

	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Flat logging keys are what the CLI binds; fold them into the nested struct.
	cfg.Logging.Level = viper.GetString("log-level")
	cfg.Logging.EnableFile = viper.GetBool("log-to-file")
	if dir := viper.GetString("log-dir"); dir != "" {
		cfg.Logging.LogDir = dir
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	if cfg.ResourcesDir == "" {
		cfg.ResourcesDir = defaultResourcesDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViper configures viper with environment variable handling
func setupViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	// Replace - with _ for environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.SetDefault("data-dir", "")
	viper.SetDefault("resources-dir", "")
	viper.SetDefault("singleton-port", defaultSingletonPort)
	viper.SetDefault("check-updates", true)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-to-file", true)
	viper.SetDefault("log-dir", "")
}

// DefaultDataDir returns the per-user application directory
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to get user config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppDirName), nil
}

// defaultResourcesDir is the resources directory shipped next to the executable.
func defaultResourcesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}
