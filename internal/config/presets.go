package config

import "sort"

// Presets are named run profiles.
var Presets = map[string]*Config{
	"preview": profile(func(c *Config) {
		c.Size = "320x160"
		c.Bins = 20
		c.Stride = 5
	}),
	"default": DefaultConfig(),
	"final": profile(func(c *Config) {
		c.Size = "1920x960"
		c.Colorbar = true
		c.Mask = true
		c.Concurrency = "parallel"
		c.Workers = 4
		c.PointSize = 2
	}),
	"hot": profile(func(c *Config) {
		c.Preset = "temperature-hot"
		c.Cut = true
	}),
	"pressure": profile(func(c *Config) {
		c.Variable = "pressure"
		c.Colormap = "viridis"
	}),
}

func profile(mod func(*Config)) *Config {
	c := DefaultConfig()
	mod(c)
	return c
}

// GetPreset returns a copy of the named profile, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Camera.Location = append([]float64(nil), cfg.Camera.Location...)
	c.Camera.Rotation = append([]float64(nil), cfg.Camera.Rotation...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
