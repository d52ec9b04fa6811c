package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluidviz/internal/dynamo"
	"github.com/san-kum/fluidviz/internal/physics"
)

const (
	DefaultGrid       = 64
	DefaultDt         = 0.1
	DefaultDiffusion  = 0.00001
	DefaultBuoyancy   = 4.0
	DefaultVorticity  = 5.0
	DefaultIterations = 20
	DefaultVelocity   = -3.0
	DefaultWidth      = 500
	DefaultHeight     = 500
	DefaultResolution = 160
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Grid   int         `yaml:"grid"`
	Sim    SimConfig   `yaml:"sim"`
	Timers TimerConfig `yaml:"timers"`
	View   ViewConfig  `yaml:"view"`
	Log    LogConfig   `yaml:"log"`
}

type SimConfig struct {
	Dt         float64      `yaml:"dt"`
	Diffusion  float64      `yaml:"diffusion"`
	Viscosity  float64      `yaml:"viscosity"`
	Buoyancy   float64      `yaml:"buoyancy"`
	Vorticity  float64      `yaml:"vorticity"`
	Iterations int          `yaml:"iterations"`
	Seed       int64        `yaml:"seed"`
	MaxSteps   uint64       `yaml:"max_steps"`
	Source     SourceConfig `yaml:"source"`
}

type SourceConfig struct {
	X        int     `yaml:"x"`
	Y        int     `yaml:"y"`
	Z        int     `yaml:"z"`
	Size     int     `yaml:"size"`
	Velocity float64 `yaml:"velocity"`
}

type TimerConfig struct {
	Stats    time.Duration `yaml:"stats"`
	Playback time.Duration `yaml:"playback"`
}

type ViewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Resolution caps the longest side of the rendered image in pixels.
	Resolution int    `yaml:"resolution"`
	Loop       bool   `yaml:"loop"`
	Palette    string `yaml:"palette"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Grid: DefaultGrid,
		Sim: SimConfig{
			Dt:         DefaultDt,
			Diffusion:  DefaultDiffusion,
			Buoyancy:   DefaultBuoyancy,
			Vorticity:  DefaultVorticity,
			Iterations: DefaultIterations,
			Seed:       1,
			Source: SourceConfig{
				X: 60, Y: 50, Z: 28, Size: 8,
				Velocity: DefaultVelocity,
			},
		},
		Timers: TimerConfig{
			Stats:    time.Second,
			Playback: time.Second / 16,
		},
		View: ViewConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			Resolution: DefaultResolution,
			Loop:       true,
			Palette:    "smoke",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads path over base.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	if c.Grid < 4 {
		return fmt.Errorf("%w: grid %d is smaller than 4", ErrInvalid, c.Grid)
	}
	if c.Grid > dynamo.MaxGrid {
		return fmt.Errorf("%w: grid %d is larger than %d", ErrInvalid, c.Grid, dynamo.MaxGrid)
	}
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Sim.Dt)
	}
	if c.Sim.Iterations <= 0 {
		return fmt.Errorf("%w: solver iterations must be positive, got %d", ErrInvalid, c.Sim.Iterations)
	}
	if c.Sim.Diffusion < 0 || c.Sim.Viscosity < 0 {
		return fmt.Errorf("%w: negative diffusion or viscosity", ErrInvalid)
	}
	if p := c.Patch(); !p.Fits(dynamo.NewGrid(c.Grid)) {
		return fmt.Errorf("%w: source %+v does not fit a %d grid", ErrInvalid, c.Sim.Source, c.Grid)
	}
	if c.Timers.Stats <= 0 || c.Timers.Playback <= 0 {
		return fmt.Errorf("%w: timer intervals must be positive", ErrInvalid)
	}
	if c.View.Width <= 0 || c.View.Height <= 0 || c.View.Resolution <= 0 {
		return fmt.Errorf("%w: view %dx%d at %d px", ErrInvalid, c.View.Width, c.View.Height, c.View.Resolution)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Fluid builds a solver with the configured grid and coefficients.
func (c *Config) Fluid() *physics.Fluid {
	f := physics.NewFluid(c.Grid)
	f.Diffusion = float32(c.Sim.Diffusion)
	f.Viscosity = float32(c.Sim.Viscosity)
	f.Buoyancy = float32(c.Sim.Buoyancy)
	f.VortEps = float32(c.Sim.Vorticity)
	f.Iterations = c.Sim.Iterations
	return f
}

func (c *Config) Patch() physics.Patch {
	s := c.Sim.Source
	return physics.Patch{X: s.X, Y: s.Y, Z: s.Z, Size: s.Size, Velocity: float32(s.Velocity)}
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return lvl, nil
}
