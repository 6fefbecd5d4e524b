package engine

import (
	"testing"
	"time"

	"github.com/spaghettifunk/magma/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppDefaults(t *testing.T) {
	app := NewApp(AppConfig{Name: "demo"})

	assert.Equal(t, "demo", app.Name)
	assert.Equal(t, "default", app.appConfig.SaveName)
	assert.Equal(t, "config.toml", app.appConfig.ConfigPath)
	assert.Equal(t, "window.toml", app.appConfig.WindowStatePath)
	require.NotNil(t, app.Config)
	require.NotNil(t, app.Loop)
	require.NotNil(t, app.Run)
	assert.True(t, app.Config.VSync)
}

func TestAutoSaveIntervalGate(t *testing.T) {
	app := NewApp(AppConfig{Name: "demo"})
	app.Config.AutoSave = false

	// Disabled autosave never fires.
	app.lastSave = time.Now().Add(-time.Hour)
	require.NoError(t, app.stepAutoSave())
	assert.True(t, time.Since(app.lastSave) > time.Minute)
}

func TestShaderChangeRaisesTargetReload(t *testing.T) {
	app := NewApp(AppConfig{Name: "demo"})
	app.renderer = &vulkan.Renderer{Target: vulkan.NewTarget(true)}

	var seen []string
	app.OnShaderReload = func(_ *App, paths []string) error {
		seen = paths
		return nil
	}

	require.NoError(t, app.reloadShaders([]string{"triangle.frag.spv"}))
	assert.Equal(t, []string{"triangle.frag.spv"}, seen)

	// The reload flag routes the next render step through the full
	// teardown, not the swapchain-only resize.
	requests := app.renderer.Target.TakeRequests()
	assert.True(t, requests.Reload)
	assert.False(t, requests.Resize)
}
