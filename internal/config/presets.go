package config

import "sort"

// DefaultPreset is the configuration used when no preset is named.
const DefaultPreset = "smoke"

var Presets = map[string]func(*Config){
	"smoke": func(*Config) {},
	"ink": func(c *Config) {
		c.Sim.Buoyancy = 0
		c.Sim.Vorticity = 2
		c.Sim.Diffusion = 0.0001
		c.Sim.Source.Velocity = -5
		c.View.Palette = "ocean"
	},
	"plume": func(c *Config) {
		c.Sim.Buoyancy = 8
		c.Sim.Vorticity = 10
		c.Sim.Source.Velocity = -1
		c.View.Palette = "fire"
	},
	"small": func(c *Config) {
		c.Grid = 24
		c.Sim.Iterations = 10
		c.Sim.Source = SourceConfig{X: 22, Y: 4, Z: 9, Size: 6, Velocity: DefaultVelocity}
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
