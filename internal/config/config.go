package config

import (
	"fmt"
)

const (
	defaultSingletonPort = 33331
)

// Config represents the shell's own configuration. It is resolved once per process from
// defaults, VERGE_* environment variables and command line flags.
type Config struct {
	DataDir       string `json:"data_dir" mapstructure:"data-dir"`
	ResourcesDir  string `json:"resources_dir" mapstructure:"resources-dir"`
	SingletonPort uint16 `json:"singleton_port" mapstructure:"singleton-port"`
	CheckUpdates  bool   `json:"check_updates" mapstructure:"check-updates"`

	// Logging configuration
	Logging *LogConfig `json:"logging,omitempty" mapstructure:"logging"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		SingletonPort: defaultSingletonPort,
		CheckUpdates:  true,
		Logging: &LogConfig{
			Level:         "info",
			EnableFile:    true,
			EnableConsole: true,
			Filename:      "verge.log",
			MaxSize:       10,
			MaxBackups:    5,
			MaxAge:        30,
			Compress:      true,
		},
	}
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.SingletonPort == 0 {
		return fmt.Errorf("singleton port cannot be 0")
	}
	if c.Logging == nil {
		return fmt.Errorf("logging configuration is missing")
	}
	return nil
}

// Ptr returns a pointer to v. Optional settings fields are pointers so that an
// absent value can be told apart from a zero value.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences p, returning def when p is nil.
func Value[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
