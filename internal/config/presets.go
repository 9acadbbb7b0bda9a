package config

import (
	"fmt"
	"sort"
)

func preset(mod func(c *Config)) *Config {
	c := DefaultConfig()
	mod(c)
	c.Physics = c.Physics.Sanitize()
	return c
}

var Presets = map[string]*Config{
	"classic": preset(func(c *Config) {}),
	"fine": preset(func(c *Config) {
		c.Physics.ParticleCount = 1400
		c.Physics.RadiusScale = 0.6
	}),
	"coarse": preset(func(c *Config) {
		c.Physics.ParticleCount = 180
		c.Physics.RadiusScale = 2.0
		c.Physics.Friction = 0.5
	}),
	"molasses": preset(func(c *Config) {
		c.Physics.Gravity = 900
		c.Physics.Damping = 0.04
		c.Physics.Jitter = 10
		c.Timer.Duration = 90
	}),
	"stress": preset(func(c *Config) {
		c.Physics.ParticleCount = 3000
		c.Physics.RadiusScale = 0.5
		c.Physics.MaxReleasePerFrame = 32
		c.Timer.Duration = 60
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// MustPreset is GetPreset with an error for unknown names.
func MustPreset(name string) (*Config, error) {
	c := GetPreset(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	return c, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
