package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasNonzeroGrainAndPositivePollInterval(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	require.Greater(t, cfg.Grain, uint64(0))
	require.Equal(t, 50*time.Millisecond, cfg.PollInterval)
}

func TestLoadConfigOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mpsctl.yaml")
	contents := "grain: 8192\ncommit_limit: 1048576\nmetrics_addr: \":9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, uint64(8192), cfg.Grain)
	require.Equal(t, uint64(1048576), cfg.CommitLimit)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	// Fields absent from the file keep Default()'s values.
	require.Equal(t, 50*time.Millisecond, cfg.PollInterval)
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mpsctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grain: 0\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
