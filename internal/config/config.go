package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultParticleCount      = 600
	DefaultRadiusScale        = 1.0
	DefaultGravity            = 1800.0
	DefaultDamping            = 0.015
	DefaultJitter             = 40.0
	DefaultSettleKeep         = 0.9
	DefaultSleepThreshold     = 0.05
	DefaultMaxReleasePerFrame = 12
	DefaultFriction           = 0.35
	DefaultStabilization      = 0.8
	DefaultRestitution        = 0.05
	DefaultSeed               = 1

	DefaultDuration = 60.0
	DefaultWidth    = 400.0
	DefaultHeight   = 800.0
	DefaultFPS      = 60
	DefaultDataDir  = ".sandglass"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

type Config struct {
	Physics   Physics         `yaml:"physics"`
	Timer     TimerConfig     `yaml:"timer"`
	Container ContainerConfig `yaml:"container"`
	Run       RunConfig       `yaml:"run"`
}

// Physics holds every tunable of the grain engine. Values outside their
// documented range are pulled back by Sanitize rather than rejected.
type Physics struct {
	ParticleCount      int     `yaml:"particle_count"`
	RadiusScale        float64 `yaml:"radius_scale"`
	Gravity            float64 `yaml:"gravity"`
	Damping            float64 `yaml:"damping"`
	Jitter             float64 `yaml:"jitter"`
	SettleKeep         float64 `yaml:"settle_keep"`
	SleepThreshold     float64 `yaml:"sleep_threshold"`
	MaxReleasePerFrame int     `yaml:"max_release_per_frame"`
	Friction           float64 `yaml:"friction"`
	Stabilization      float64 `yaml:"stabilization"`
	Restitution        float64 `yaml:"restitution"`
	Seed               int64   `yaml:"seed"`
}

type TimerConfig struct {
	Duration float64 `yaml:"duration"`
}

type ContainerConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type RunConfig struct {
	FPS     int    `yaml:"fps"`
	DataDir string `yaml:"data_dir"`
}

// Range is the closed interval a parameter is clamped to.
type Range struct {
	Min, Max float64
}

var Ranges = map[string]Range{
	"particle_count":        {1, 5000},
	"radius_scale":          {0.5, 2.5},
	"gravity":               {0, 6000},
	"damping":               {0, 0.5},
	"jitter":                {0, 400},
	"settle_keep":           {0, 1},
	"sleep_threshold":       {0, 2},
	"max_release_per_frame": {1, 64},
	"friction":              {0, 1},
	"stabilization":         {0, 1},
	"restitution":           {0, 1},
}

func DefaultPhysics() Physics {
	return Physics{
		ParticleCount:      DefaultParticleCount,
		RadiusScale:        DefaultRadiusScale,
		Gravity:            DefaultGravity,
		Damping:            DefaultDamping,
		Jitter:             DefaultJitter,
		SettleKeep:         DefaultSettleKeep,
		SleepThreshold:     DefaultSleepThreshold,
		MaxReleasePerFrame: DefaultMaxReleasePerFrame,
		Friction:           DefaultFriction,
		Stabilization:      DefaultStabilization,
		Restitution:        DefaultRestitution,
		Seed:               DefaultSeed,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Physics: DefaultPhysics(),
		Timer:   TimerConfig{Duration: DefaultDuration},
		Container: ContainerConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Run: RunConfig{
			FPS:     DefaultFPS,
			DataDir: DefaultDataDir,
		},
	}
}

func clampFloat(v float64, r Range, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

func clampInt(v int, r Range) int {
	if v < int(r.Min) {
		return int(r.Min)
	}
	if v > int(r.Max) {
		return int(r.Max)
	}
	return v
}

// Sanitize returns a copy of p with every field inside its range. NaN falls
// back to the default value; infinities go to the nearest bound.
func (p Physics) Sanitize() Physics {
	p.ParticleCount = clampInt(p.ParticleCount, Ranges["particle_count"])
	p.RadiusScale = clampFloat(p.RadiusScale, Ranges["radius_scale"], DefaultRadiusScale)
	p.Gravity = clampFloat(p.Gravity, Ranges["gravity"], DefaultGravity)
	p.Damping = clampFloat(p.Damping, Ranges["damping"], DefaultDamping)
	p.Jitter = clampFloat(p.Jitter, Ranges["jitter"], DefaultJitter)
	p.SettleKeep = clampFloat(p.SettleKeep, Ranges["settle_keep"], DefaultSettleKeep)
	p.SleepThreshold = clampFloat(p.SleepThreshold, Ranges["sleep_threshold"], DefaultSleepThreshold)
	p.MaxReleasePerFrame = clampInt(p.MaxReleasePerFrame, Ranges["max_release_per_frame"])
	p.Friction = clampFloat(p.Friction, Ranges["friction"], DefaultFriction)
	p.Stabilization = clampFloat(p.Stabilization, Ranges["stabilization"], DefaultStabilization)
	p.Restitution = clampFloat(p.Restitution, Ranges["restitution"], DefaultRestitution)
	return p
}

func (p *Physics) GetParams() map[string]float64 {
	return map[string]float64{
		"particle_count":        float64(p.ParticleCount),
		"radius_scale":          p.RadiusScale,
		"gravity":               p.Gravity,
		"damping":               p.Damping,
		"jitter":                p.Jitter,
		"settle_keep":           p.SettleKeep,
		"sleep_threshold":       p.SleepThreshold,
		"max_release_per_frame": float64(p.MaxReleasePerFrame),
		"friction":              p.Friction,
		"stabilization":         p.Stabilization,
		"restitution":           p.Restitution,
	}
}

// SetParam assigns a named parameter and re-sanitizes the whole set.
func (p *Physics) SetParam(name string, value float64) error {
	switch name {
	case "particle_count":
		p.ParticleCount = int(math.Round(clampFloat(value, Ranges[name], DefaultParticleCount)))
	case "radius_scale":
		p.RadiusScale = value
	case "gravity":
		p.Gravity = value
	case "damping":
		p.Damping = value
	case "jitter":
		p.Jitter = value
	case "settle_keep":
		p.SettleKeep = value
	case "sleep_threshold":
		p.SleepThreshold = value
	case "max_release_per_frame":
		p.MaxReleasePerFrame = int(math.Round(clampFloat(value, Ranges[name], DefaultMaxReleasePerFrame)))
	case "friction":
		p.Friction = value
	case "stabilization":
		p.Stabilization = value
	case "restitution":
		p.Restitution = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	*p = p.Sanitize()
	return nil
}

// Load reads a YAML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Physics = cfg.Physics.Sanitize()
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
