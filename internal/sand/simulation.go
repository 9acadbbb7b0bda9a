package sand

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/spatial"
)

const (
	resizeTolerance  = 0.5
	resetHysteresis  = 0.02
	scaleTolerance   = 1e-9
	initialGrainsCap = 1024
)

// Input is what the frame-loop driver hands the engine each step.
type Input struct {
	Width    float64
	Height   float64
	Progress float64
	Running  bool
}

// layout is the signature a population was packed for.
type layout struct {
	width, height float64
	radiusScale   float64
	count         int
	valid         bool
}

type Option func(*Simulation)

// WithLogger routes reseed and drain events to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

// Simulation is the whole mutable state of one hourglass.
type Simulation struct {
	cfg    config.Physics
	grains []Grain
	geo    Geometry
	grid   *spatial.Grid
	cellX  []int
	cellY  []int
	rng    *rand.Rand
	logger *slog.Logger

	progress float64
	carry    float64
	running  bool
	layout   layout
	stats    Stats
}

func New(cfg config.Physics, opts ...Option) *Simulation {
	cfg = cfg.Sanitize()
	s := &Simulation{
		cfg:      cfg,
		grains:   make([]Grain, 0, initialGrainsCap),
		grid:     spatial.NewGrid(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   slog.New(slog.DiscardHandler),
		progress: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig replaces the tunables. A new particle count or radius scale
// repacks the population on the next step; everything else applies at once.
func (s *Simulation) SetConfig(cfg config.Physics) {
	s.cfg = cfg.Sanitize()
}

func (s *Simulation) Config() config.Physics { return s.cfg }

// Reset forces a repack on the next step.
func (s *Simulation) Reset() {
	s.layout.valid = false
}

func (s *Simulation) Grains() []Grain      { return s.grains }
func (s *Simulation) Geometry() Geometry   { return s.geo }
func (s *Simulation) Stats() Stats         { return s.stats }
func (s *Simulation) Progress() float64    { return s.progress }
func (s *Simulation) Running() bool        { return s.running }
func (s *Simulation) Carry() float64       { return s.carry }
func (s *Simulation) Logger() *slog.Logger { return s.logger }

// Snapshot copies the grain list into dst, growing it if needed.
func (s *Simulation) Snapshot(dst []Grain) []Grain {
	return append(dst[:0], s.grains...)
}

func (s *Simulation) countInactive() int {
	n := 0
	for i := range s.grains {
		if !s.grains[i].Active {
			n++
		}
	}
	return n
}

func (s *Simulation) needsReseed(in Input) bool {
	l := s.layout
	switch {
	case !l.valid:
		return true
	case math.Abs(in.Width-l.width) > resizeTolerance, math.Abs(in.Height-l.height) > resizeTolerance:
		return true
	case l.count != s.cfg.ParticleCount:
		return true
	case math.Abs(l.radiusScale-s.cfg.RadiusScale) > scaleTolerance:
		return true
	case !in.Running && in.Progress > s.progress+resetHysteresis:
		return true
	}
	return false
}

// reseed replaces the population with a fresh packing split by progress,
// relaxes it and freezes every grain.
func (s *Simulation) reseed(geo Geometry, in Input) {
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	grains, sampled := Pack(geo, s.cfg.ParticleCount, in.Progress, s.rng)
	s.grains = grains
	s.solve(geo, relaxPasses)
	for i := range s.grains {
		s.grains[i].Freeze()
	}

	s.carry = 0
	s.layout = layout{
		width:       in.Width,
		height:      in.Height,
		radiusScale: s.cfg.RadiusScale,
		count:       s.cfg.ParticleCount,
		valid:       true,
	}
	s.stats.Reseeds++
	s.stats.Sampled = sampled

	s.logger.Debug("reseed",
		"width", in.Width,
		"height", in.Height,
		"count", len(s.grains),
		"radius", geo.Radius,
		"progress", in.Progress,
		"sampled", sampled,
	)
	if sampled > 0 {
		s.logger.Warn("packing shortfall", "sampled", sampled, "count", len(s.grains))
	}
}

// Step advances the simulation by dt seconds.
func (s *Simulation) Step(in Input, dt float64) {
	in.Width = finiteNonNegative(in.Width)
	in.Height = finiteNonNegative(in.Height)
	in.Progress = sanitizeProgress(in.Progress)
	dt = clampDt(dt)

	geo := BuildGeometry(in.Width, in.Height, s.cfg.RadiusScale)
	s.geo = geo
	s.stats.Released = 0
	s.stats.Drained = 0

	if s.needsReseed(in) {
		s.reseed(geo, in)
	}

	wasRunning := s.running
	switch {
	case in.Running:
		s.stats.Released = s.govern(geo, in.Progress, dt)
	case wasRunning && in.Progress <= 0:
		s.stats.Drained = s.drain(geo)
		s.logger.Info("drain", "moved", s.stats.Drained)
	}
	s.progress = in.Progress
	s.running = in.Running

	s.integrate(dt)
	s.solve(geo, s.iterations())
	s.stats.Sleeping = s.settle(geo)

	s.stats.Steps++
	s.refresh()
}

func (s *Simulation) refresh() {
	inactive := s.countInactive()
	s.stats.Total = len(s.grains)
	s.stats.Inactive = inactive
	s.stats.Active = len(s.grains) - inactive
}
