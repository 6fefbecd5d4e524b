package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/magma/engine/core"
)

// Config is the persisted runtime record: simulation stepping, auto-save
// policy, v-sync and device choice, overlay activation. Load is tolerant of
// partial documents and Save merges into whatever else lives in the file.
type Config struct {
	Paused         bool
	Speed          float64
	AutoSave       bool
	SaveInterval   time.Duration
	AutoLoad       bool
	FixedDelta     bool
	Delta          time.Duration
	Gui            bool
	VSync          bool
	PhysicalDevice int

	// SaveWindow controls whether window placement is persisted at shutdown
	// and on mode switch.
	SaveWindow bool
}

func DefaultConfig() *Config {
	return &Config{
		Speed:        1.0,
		AutoSave:     true,
		SaveInterval: 300 * time.Second,
		AutoLoad:     true,
		Delta:        20 * time.Millisecond,
		Gui:          true,
		VSync:        true,
		SaveWindow:   true,
	}
}

// Load merges the document at path onto the current values. A missing or
// unreadable file is logged and leaves the defaults untouched.
func (c *Config) Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		core.LogDebug("no config file at %s, using defaults", path)
		return
	}

	doc := map[string]interface{}{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		core.LogWarn("config file %s is not valid, using defaults: %s", path, err)
		return
	}

	if v, ok := doc["paused"]; ok {
		c.Paused = toBool(v, c.Paused)
	}
	if v, ok := doc["speed"]; ok {
		c.Speed = toFloat(v, c.Speed)
	}
	if v, ok := doc["auto_save"]; ok {
		c.AutoSave = toBool(v, c.AutoSave)
	}
	if v, ok := doc["save_interval"]; ok {
		c.SaveInterval = time.Duration(toInt(v, int(c.SaveInterval/time.Second))) * time.Second
	}
	if v, ok := doc["auto_load"]; ok {
		c.AutoLoad = toBool(v, c.AutoLoad)
	}
	if v, ok := doc["fixed_delta"]; ok {
		c.FixedDelta = toBool(v, c.FixedDelta)
	}
	if v, ok := doc["delta"]; ok {
		c.Delta = time.Duration(toInt(v, int(c.Delta/time.Millisecond))) * time.Millisecond
	}
	if v, ok := doc["gui"]; ok {
		c.Gui = toBool(v, c.Gui)
	}
	if v, ok := doc["v_sync"]; ok {
		c.VSync = toBool(v, c.VSync)
	}
	if v, ok := doc["physical_device"]; ok {
		c.PhysicalDevice = toInt(v, c.PhysicalDevice)
	}
}

// Save writes the record to path, preserving unrelated keys already present
// in the document.
func (c *Config) Save(path string) error {
	doc := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			core.LogWarn("config file %s is not valid, rewriting: %s", path, err)
			doc = map[string]interface{}{}
		}
	}

	doc["paused"] = c.Paused
	doc["speed"] = c.Speed
	doc["auto_save"] = c.AutoSave
	doc["save_interval"] = int64(c.SaveInterval / time.Second)
	doc["auto_load"] = c.AutoLoad
	doc["fixed_delta"] = c.FixedDelta
	doc["delta"] = int64(c.Delta / time.Millisecond)
	doc["gui"] = c.Gui
	doc["v_sync"] = c.VSync
	doc["physical_device"] = c.PhysicalDevice

	out, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ApplyCommandLine applies the -vs/--v_sync and -pd/--physical_device
// overrides on top of whatever the file load produced. Only flags actually
// given on the command line override the record.
func (c *Config) ApplyCommandLine(args []string) error {
	fs := flag.NewFlagSet("magma", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	vsync := c.VSync
	device := c.PhysicalDevice
	fs.BoolVar(&vsync, "vs", vsync, "enable v-sync")
	fs.BoolVar(&vsync, "v_sync", vsync, "enable v-sync")
	fs.IntVar(&device, "pd", device, "physical device index")
	fs.IntVar(&device, "physical_device", device, "physical device index")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command line: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vs", "v_sync":
			c.VSync = vsync
		case "pd", "physical_device":
			c.PhysicalDevice = device
		}
	})

	return nil
}
