package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, 100*time.Millisecond, cfg.Checker.Retry.Interval)
	assert.Equal(t, float64(1), cfg.Checker.Retry.Multiplier)
	assert.Equal(t, "memory", cfg.Namespace.Type)
	assert.Equal(t, "none", cfg.Archive.Type)

	require.NoError(t, Validate(cfg))
}

func TestApplyDefaultsNormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Checker.Retry.Interval = time.Second
	cfg.Namespace.Type = "badger"
	ApplyDefaults(cfg)

	assert.Equal(t, time.Second, cfg.Checker.Retry.Interval)
	assert.Equal(t, "badger", cfg.Namespace.Type)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Namespace.Type = "etcd"

	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	assert.Error(t, Validate(cfg))

	// A CLI -log-level override lands after defaulting, so lowercase values
	// must still validate on their own.
	cfg.Logging.Level = "warn"
	assert.NoError(t, Validate(cfg))
}

func TestValidateBadgerRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Namespace.Type = "badger"
	cfg.Namespace.Badger = map[string]any{"path": ""}

	assert.Error(t, Validate(cfg))

	cfg.Namespace.Badger = map[string]any{"in_memory": true}
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsCapWithoutBackoffGrowth(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Checker.Retry.MaxInterval = time.Second
	// Multiplier defaulted to 1: nothing to cap.
	assert.Error(t, Validate(cfg))

	cfg.Checker.Retry.Multiplier = 2
	assert.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  output: stdout
checker:
  retry:
    interval: 250ms
    multiplier: 2
    max_interval: 5s
    max_attempts: 8
namespace:
  type: badger
  badger:
    in_memory: true
archive:
  type: filesystem
  filesystem:
    path: /tmp/dfsck-reports
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 250*time.Millisecond, cfg.Checker.Retry.Interval)
	assert.Equal(t, float64(2), cfg.Checker.Retry.Multiplier)
	assert.Equal(t, 5*time.Second, cfg.Checker.Retry.MaxInterval)
	assert.Equal(t, 8, cfg.Checker.Retry.MaxAttempts)
	assert.Equal(t, "badger", cfg.Namespace.Type)
	assert.Equal(t, true, cfg.Namespace.Badger["in_memory"])
	assert.Equal(t, "filesystem", cfg.Archive.Type)
	assert.Equal(t, "/tmp/dfsck-reports", cfg.Archive.Filesystem["path"])
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Namespace.Type)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
namespace:
  type: etcd
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefault(&buf))

	// The exported file must load back as a valid configuration.
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Namespace.Type, cfg.Namespace.Type)
	assert.Equal(t, GetDefaultConfig().Checker.Retry.Interval, cfg.Checker.Retry.Interval)
}

func TestCreateRetryPolicy(t *testing.T) {
	cfg := &RetryConfig{
		Interval:    time.Second,
		Multiplier:  1.5,
		MaxInterval: 10 * time.Second,
		MaxAttempts: 3,
	}

	policy := CreateRetryPolicy(cfg)
	assert.Equal(t, time.Second, policy.Interval)
	assert.Equal(t, 1.5, policy.Multiplier)
	assert.Equal(t, 10*time.Second, policy.MaxInterval)
	assert.Equal(t, 3, policy.MaxAttempts)
}
