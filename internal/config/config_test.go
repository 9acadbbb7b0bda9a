package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultParticleCount, cfg.Physics.ParticleCount)
	assert.Greater(t, cfg.Timer.Duration, 0.0)
	assert.Greater(t, cfg.Container.Width, 0.0)
	assert.Equal(t, cfg.Physics, cfg.Physics.Sanitize(), "defaults should already be in range")
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(p *Physics)
		check func(t *testing.T, p Physics)
	}{
		{"negative count", func(p *Physics) { p.ParticleCount = -4 }, func(t *testing.T, p Physics) {
			assert.Equal(t, 1, p.ParticleCount)
		}},
		{"huge count", func(p *Physics) { p.ParticleCount = 1 << 30 }, func(t *testing.T, p Physics) {
			assert.Equal(t, 5000, p.ParticleCount)
		}},
		{"NaN gravity", func(p *Physics) { p.Gravity = math.NaN() }, func(t *testing.T, p Physics) {
			assert.Equal(t, DefaultGravity, p.Gravity)
		}},
		{"infinite jitter", func(p *Physics) { p.Jitter = math.Inf(1) }, func(t *testing.T, p Physics) {
			assert.Equal(t, 400.0, p.Jitter)
		}},
		{"negative damping", func(p *Physics) { p.Damping = -1 }, func(t *testing.T, p Physics) {
			assert.Equal(t, 0.0, p.Damping)
		}},
		{"tiny radius scale", func(p *Physics) { p.RadiusScale = 0.01 }, func(t *testing.T, p Physics) {
			assert.Equal(t, 0.5, p.RadiusScale)
		}},
		{"zero release", func(p *Physics) { p.MaxReleasePerFrame = 0 }, func(t *testing.T, p Physics) {
			assert.Equal(t, 1, p.MaxReleasePerFrame)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPhysics()
			tt.mod(&p)
			tt.check(t, p.Sanitize())
		})
	}
}

func TestSetParam(t *testing.T) {
	p := DefaultPhysics()

	require.NoError(t, p.SetParam("gravity", 9000))
	assert.Equal(t, 6000.0, p.Gravity)

	require.NoError(t, p.SetParam("particle_count", 123.6))
	assert.Equal(t, 124, p.ParticleCount)

	err := p.SetParam("warp_factor", 1)
	assert.Error(t, err)

	params := p.GetParams()
	assert.Len(t, params, len(Ranges))
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sandglass.yaml")

	cfg := DefaultConfig()
	cfg.Physics.ParticleCount = 250
	cfg.Timer.Duration = 12
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, loaded.Physics.ParticleCount)
	assert.Equal(t, 12.0, loaded.Timer.Duration)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("physics:\n  gravity: -50\n  friction: 0.9\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Physics.Gravity)
	assert.Equal(t, 0.9, cfg.Physics.Friction)
	assert.Equal(t, DefaultParticleCount, cfg.Physics.ParticleCount)
	assert.Equal(t, DefaultFPS, cfg.Run.FPS)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("physics: [unclosed"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)

	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Equal(t, cfg.Physics, cfg.Physics.Sanitize(), "preset %s out of range", name)
	}

	assert.Nil(t, GetPreset("nonexistent"))

	_, err := MustPreset("nonexistent")
	assert.True(t, errors.Is(err, ErrUnknownPreset))

	fine := GetPreset("fine")
	fine.Physics.ParticleCount = 1
	assert.NotEqual(t, 1, GetPreset("fine").Physics.ParticleCount, "GetPreset must return a copy")
}
