package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.toml")

	state := WindowState{
		X:          100,
		Y:          50,
		Width:      800,
		Height:     600,
		Fullscreen: false,
		Floating:   true,
		Resizable:  true,
		Decorated:  true,
		Maximized:  false,
		Monitor:    0,
	}
	require.NoError(t, SaveWindowState(path, "main", state))

	loaded, found := LoadWindowState(path, "main")
	require.True(t, found)
	assert.Equal(t, state, *loaded)

	_, found = LoadWindowState(path, "secondary")
	assert.False(t, found, "absent save-name must report not found")
}

func TestWindowStateMissingFile(t *testing.T) {
	_, found := LoadWindowState(filepath.Join(t.TempDir(), "window.toml"), "main")
	assert.False(t, found)
}

func TestWindowStateMergeIsNonDestructive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.toml")

	b := WindowState{X: 1, Y: 2, Width: 640, Height: 480, Monitor: 1}
	require.NoError(t, SaveWindowState(path, "B", b))

	a := WindowState{X: 10, Y: 20, Width: 1920, Height: 1080, Fullscreen: true}
	require.NoError(t, SaveWindowState(path, "A", a))

	loadedB, found := LoadWindowState(path, "B")
	require.True(t, found)
	assert.Equal(t, b, *loadedB)

	loadedA, found := LoadWindowState(path, "A")
	require.True(t, found)
	assert.Equal(t, a, *loadedA)
}

func TestWindowStatePartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.toml")
	doc := "[main]\nwidth = 1024\nheight = 768\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	loaded, found := LoadWindowState(path, "main")
	require.True(t, found)

	def := DefaultWindowState()
	assert.Equal(t, 1024, loaded.Width)
	assert.Equal(t, 768, loaded.Height)
	assert.Equal(t, def.X, loaded.X)
	assert.Equal(t, def.Resizable, loaded.Resizable)
	assert.Equal(t, def.Decorated, loaded.Decorated)
}

func TestWindowStateInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, found := LoadWindowState(path, "main")
	assert.False(t, found)

	// Saving over a broken file rewrites it.
	require.NoError(t, SaveWindowState(path, "main", DefaultWindowState()))
	_, found = LoadWindowState(path, "main")
	assert.True(t, found)
}
