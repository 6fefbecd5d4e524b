package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/magma/engine/core"
)

// WindowState is the persisted placement of one window, keyed by save-name
// inside the window file. One file holds the states of any number of windows.
type WindowState struct {
	X          int  `toml:"x"`
	Y          int  `toml:"y"`
	Width      int  `toml:"width"`
	Height     int  `toml:"height"`
	Fullscreen bool `toml:"fullscreen"`
	Floating   bool `toml:"floating"`
	Resizable  bool `toml:"resizable"`
	Decorated  bool `toml:"decorated"`
	Maximized  bool `toml:"maximized"`
	Monitor    int  `toml:"monitor"`
}

func DefaultWindowState() WindowState {
	return WindowState{
		X:         100,
		Y:         100,
		Width:     1280,
		Height:    720,
		Resizable: true,
		Decorated: true,
	}
}

// LoadWindowState reads the save-name's entry from the window file. A missing
// file or absent save-name reports not found; fields absent from the entry
// keep their defaults.
func LoadWindowState(path, saveName string) (*WindowState, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	doc := map[string]map[string]interface{}{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		core.LogWarn("window file %s is not valid: %s", path, err)
		return nil, false
	}

	entry, ok := doc[saveName]
	if !ok {
		return nil, false
	}

	state := DefaultWindowState()
	applyWindowEntry(entry, &state)

	core.LogDebug("loaded window state %s from %s", saveName, path)
	return &state, true
}

// SaveWindowState writes the state under its save-name, preserving every
// other entry already present in the file.
func SaveWindowState(path, saveName string, state WindowState) error {
	doc := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			core.LogWarn("window file %s is not valid, rewriting: %s", path, err)
			doc = map[string]interface{}{}
		}
	}

	doc[saveName] = state

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode window state %s: %w", saveName, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write window file %s: %w", path, err)
	}

	core.LogDebug("saved window state %s to %s", saveName, path)
	return nil
}

func applyWindowEntry(entry map[string]interface{}, state *WindowState) {
	if v, ok := entry["x"]; ok {
		state.X = toInt(v, state.X)
	}
	if v, ok := entry["y"]; ok {
		state.Y = toInt(v, state.Y)
	}
	if v, ok := entry["width"]; ok {
		state.Width = toInt(v, state.Width)
	}
	if v, ok := entry["height"]; ok {
		state.Height = toInt(v, state.Height)
	}
	if v, ok := entry["fullscreen"]; ok {
		state.Fullscreen = toBool(v, state.Fullscreen)
	}
	if v, ok := entry["floating"]; ok {
		state.Floating = toBool(v, state.Floating)
	}
	if v, ok := entry["resizable"]; ok {
		state.Resizable = toBool(v, state.Resizable)
	}
	if v, ok := entry["decorated"]; ok {
		state.Decorated = toBool(v, state.Decorated)
	}
	if v, ok := entry["maximized"]; ok {
		state.Maximized = toBool(v, state.Maximized)
	}
	if v, ok := entry["monitor"]; ok {
		state.Monitor = toInt(v, state.Monitor)
	}
}

func toInt(v interface{}, fallback int) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func toBool(v interface{}, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func toFloat(v interface{}, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return fallback
	}
}
