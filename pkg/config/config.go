package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete dfsck configuration.
//
// This structure captures all configurable aspects of a checker invocation:
//   - Logging configuration
//   - Checker behavior (retry policy for convergence polling)
//   - Namespace backend selection and configuration (backend-specific)
//   - Report archive selection and configuration (sink-specific)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DFSCK_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each backend defines its own configuration shape and factory function.
// The Config struct contains type-specific sections (e.g., namespace.memory,
// namespace.badger) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Checker contains checker-wide settings
	Checker CheckerConfig `mapstructure:"checker" yaml:"checker"`

	// Namespace specifies the namespace backend type and type-specific
	// configuration
	Namespace NamespaceConfig `mapstructure:"namespace" yaml:"namespace"`

	// Archive specifies where rendered reports are persisted
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized
	// to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stderr, stdout, or a file path. Defaults to stderr so
	// log lines never interleave with the report on stdout.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// CheckerConfig contains checker-wide settings.
type CheckerConfig struct {
	// Retry is the convergence-polling policy handed to callers that
	// re-run the walk while replica state settles
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig shapes the bounded-retry helper.
type RetryConfig struct {
	// Interval is the delay before the first retry
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"required,gt=0"`

	// Multiplier scales the delay after each attempt (1 = fixed interval)
	Multiplier float64 `mapstructure:"multiplier" yaml:"multiplier" validate:"gte=1"`

	// MaxInterval caps the backoff delay (0 = no cap)
	MaxInterval time.Duration `mapstructure:"max_interval" yaml:"max_interval" validate:"gte=0"`

	// MaxAttempts bounds polling (0 = until the context is cancelled)
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`
}

// NamespaceConfig specifies the namespace backend.
//
// The Type field determines which backend is used. Only the corresponding
// type-specific configuration section is consulted.
type NamespaceConfig struct {
	// Type specifies which namespace backend to query
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Image is an optional XDR namespace image loaded into the backend
	// before the check runs (captured from a live cluster)
	Image string `mapstructure:"image" yaml:"image"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ArchiveConfig specifies report archival.
type ArchiveConfig struct {
	// Type specifies which archive sink to use
	// Valid values: none, filesystem, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=none filesystem s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// Load loads, defaults and validates the configuration.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DFSCK_ prefix and underscores
	// Example: DFSCK_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DFSCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dfsck")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dfsck")
}
