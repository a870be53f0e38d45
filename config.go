package rainfx

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/rainfx/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid rain config")

// Config holds every tunable of the rain effect. Zero DropCount disables it.
type Config struct {
	DropCount      int                `yaml:"drop_count"`
	EmitterPos     mgl32.Vec3         `yaml:"emitter_position"`
	EmitterRadius  float32            `yaml:"emitter_radius"`
	SeaLevel       float32            `yaml:"sea_level"`
	MinSpeed       float32            `yaml:"min_speed"`
	MaxSpeed       float32            `yaml:"max_speed"`
	RaindropLength float32            `yaml:"raindrop_length"`
	RaindropColor  mgl32.Vec3         `yaml:"raindrop_color"`
	SplashLifetime core.LifetimeRange `yaml:"splash_lifetime"`
	SplashSize     float32            `yaml:"splash_size"`
	Atlas          core.AtlasLayout   `yaml:"atlas"`
	AtlasPath      string             `yaml:"atlas_path"`
	Seed           int64              `yaml:"seed"`
	Debug          bool               `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		DropCount:      0,
		EmitterPos:     mgl32.Vec3{-60, 100, -60},
		EmitterRadius:  86,
		SeaLevel:       -8.8,
		MinSpeed:       11.5,
		MaxSpeed:       17.1,
		RaindropLength: 0.8,
		RaindropColor:  mgl32.Vec3{0.635, 0.863, 0.949},
		SplashLifetime: core.DefaultSplashLifetime,
		SplashSize:     1.0,
		Atlas:          core.DefaultAtlasLayout,
		Seed:           1,
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path or a missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.DropCount < 0:
		return fmt.Errorf("%w: drop_count %d is negative", ErrInvalidConfig, c.DropCount)
	case c.EmitterRadius < 0:
		return fmt.Errorf("%w: emitter_radius %g is negative", ErrInvalidConfig, c.EmitterRadius)
	case c.MinSpeed < 0 || c.MaxSpeed < 0:
		return fmt.Errorf("%w: speeds must be non-negative", ErrInvalidConfig)
	case c.MinSpeed > c.MaxSpeed:
		return fmt.Errorf("%w: min_speed %g exceeds max_speed %g", ErrInvalidConfig, c.MinSpeed, c.MaxSpeed)
	case c.SplashLifetime.Min <= 0 || c.SplashLifetime.Min > c.SplashLifetime.Max:
		return fmt.Errorf("%w: splash_lifetime [%g,%g]", ErrInvalidConfig, c.SplashLifetime.Min, c.SplashLifetime.Max)
	case c.Atlas.Columns < 1 || c.Atlas.Rows < 1:
		return fmt.Errorf("%w: atlas %dx%d", ErrInvalidConfig, c.Atlas.Columns, c.Atlas.Rows)
	case c.EmitterPos.Y() < c.SeaLevel:
		return fmt.Errorf("%w: emitter height %g below sea level %g", ErrInvalidConfig, c.EmitterPos.Y(), c.SeaLevel)
	}
	return nil
}

// Emitter extracts the simulation volume.
func (c Config) Emitter() core.Emitter {
	return core.Emitter{
		Position: c.EmitterPos,
		Radius:   c.EmitterRadius,
		MinSpeed: c.MinSpeed,
		MaxSpeed: c.MaxSpeed,
		SeaLevel: c.SeaLevel,
	}
}
