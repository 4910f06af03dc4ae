package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultAppliesSaneValues(t *testing.T) {
	cfg := Default()
	require.NotEmpty(t, cfg.Device.Name)
	require.NotEmpty(t, cfg.Device.AppDataDir)
	require.Equal(t, DefaultPort, cfg.Transfer.Port)
	require.NotEmpty(t, cfg.Transfer.SaveDir)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device:\n  name: test-device\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test-device", cfg.Device.Name)
	require.Equal(t, DefaultPort, cfg.Transfer.Port)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transfer:\n  port: 70000\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: extremely-verbose\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnsureDirsCreatesConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Device.AppDataDir = filepath.Join(dir, "appdata")
	cfg.Transfer.SaveDir = filepath.Join(dir, "downloads")

	require.NoError(t, cfg.EnsureDirs())

	info, err := os.Stat(cfg.Device.AppDataDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	info, err = os.Stat(cfg.Transfer.SaveDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
