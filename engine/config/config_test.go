package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	c := DefaultConfig()
	c.Paused = true
	c.Speed = 2.5
	c.SaveInterval = 60 * time.Second
	c.FixedDelta = true
	c.Delta = 16 * time.Millisecond
	c.Gui = false
	c.VSync = false
	c.PhysicalDevice = 1
	require.NoError(t, c.Save(path))

	loaded := DefaultConfig()
	loaded.Load(path)
	assert.True(t, loaded.Paused)
	assert.Equal(t, 2.5, loaded.Speed)
	assert.Equal(t, 60*time.Second, loaded.SaveInterval)
	assert.True(t, loaded.FixedDelta)
	assert.Equal(t, 16*time.Millisecond, loaded.Delta)
	assert.False(t, loaded.Gui)
	assert.False(t, loaded.VSync)
	assert.Equal(t, 1, loaded.PhysicalDevice)
}

func TestConfigLoadPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("speed = 0.5\nv_sync = false\n"), 0o644))

	c := DefaultConfig()
	c.Load(path)
	assert.Equal(t, 0.5, c.Speed)
	assert.False(t, c.VSync)
	// Untouched fields keep defaults.
	assert.True(t, c.AutoSave)
	assert.Equal(t, 300*time.Second, c.SaveInterval)
}

func TestConfigLoadMissingFile(t *testing.T) {
	c := DefaultConfig()
	c.Load(filepath.Join(t.TempDir(), "config.toml"))
	assert.Equal(t, DefaultConfig(), c)
}

func TestConfigSavePreservesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("custom_key = \"keep me\"\n"), 0o644))

	require.NoError(t, DefaultConfig().Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "custom_key")
	assert.Contains(t, string(data), "v_sync")
}

func TestApplyCommandLine(t *testing.T) {
	c := DefaultConfig()
	c.VSync = true
	c.PhysicalDevice = 0

	require.NoError(t, c.ApplyCommandLine([]string{"-vs=false", "-pd", "2"}))
	assert.False(t, c.VSync)
	assert.Equal(t, 2, c.PhysicalDevice)
}

func TestApplyCommandLineLongNames(t *testing.T) {
	c := DefaultConfig()
	c.VSync = false

	require.NoError(t, c.ApplyCommandLine([]string{"--v_sync", "--physical_device=3"}))
	assert.True(t, c.VSync)
	assert.Equal(t, 3, c.PhysicalDevice)
}

func TestApplyCommandLineNoFlagsKeepsRecord(t *testing.T) {
	c := DefaultConfig()
	c.VSync = false
	c.PhysicalDevice = 7

	require.NoError(t, c.ApplyCommandLine(nil))
	assert.False(t, c.VSync)
	assert.Equal(t, 7, c.PhysicalDevice)
}
