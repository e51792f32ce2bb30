package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	app := New()
	app.rootCmd.SetArgs([]string{"init", "--config", path})
	require.NoError(t, app.rootCmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "disk_space_monitor:")
	assert.Contains(t, string(data), "sync_jobs:")
}

func TestInitRefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing: true\n"), 0o644))

	app := New()
	app.rootCmd.SetArgs([]string{"init", "--config", path})
	err := app.rootCmd.Execute()
	assert.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "existing: true\n", string(data))
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing: true\n"), 0o644))

	app := New()
	app.rootCmd.SetArgs([]string{"init", "--config", path, "--force"})
	require.NoError(t, app.rootCmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "btrfs_snapshots:")
}
