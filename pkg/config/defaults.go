package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend constructors
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCheckerDefaults(&cfg.Checker)
	applyNamespaceDefaults(&cfg.Namespace)
	applyArchiveDefaults(&cfg.Archive)
}

// GetDefaultConfig returns a fully defaulted configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// WriteDefault writes the fully defaulted configuration as YAML, giving new
// deployments a starting config file with every key spelled out.
func WriteDefault(w io.Writer) error {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyCheckerDefaults sets checker defaults.
//
// The 100ms polling interval matches the convergence lag normally observed
// between a corruption being detected by a reader and the metadata
// service's replica view reflecting it.
func applyCheckerDefaults(cfg *CheckerConfig) {
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = 100 * time.Millisecond
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 1
	}
}

// applyNamespaceDefaults sets namespace backend defaults.
func applyNamespaceDefaults(cfg *NamespaceConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	// Initialize maps if nil
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Apply defaults for all backend types (for config file generation)
	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = "/tmp/dfsck-snapshot"
	}
}

// applyArchiveDefaults sets archive sink defaults.
func applyArchiveDefaults(cfg *ArchiveConfig) {
	if cfg.Type == "" {
		cfg.Type = "none"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "/var/log/dfsck"
	}
}
