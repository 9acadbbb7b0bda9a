package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/sandglass/internal/sim"
)

// PeakRelease is the largest number of grains released in one step.
type PeakRelease struct {
	peak int
}

func NewPeakRelease() *PeakRelease { return &PeakRelease{} }

func (p *PeakRelease) Name() string { return "peak_release" }

func (p *PeakRelease) Observe(f *sim.Frame) {
	if f.Stats.Released > p.peak {
		p.peak = f.Stats.Released
	}
}

func (p *PeakRelease) Value() float64 { return float64(p.peak) }
func (p *PeakRelease) Reset()         { p.peak = 0 }

// FinalPassed is the passed count at the last observed step.
type FinalPassed struct {
	passed int
}

func NewFinalPassed() *FinalPassed { return &FinalPassed{} }

func (p *FinalPassed) Name() string         { return "final_passed" }
func (p *FinalPassed) Observe(f *sim.Frame) { p.passed = f.Stats.Passed() }
func (p *FinalPassed) Value() float64       { return float64(p.passed) }
func (p *FinalPassed) Reset()               { p.passed = 0 }

// ReleaseRate is the mean release rate in grains per second while the
// countdown runs.
type ReleaseRate struct {
	rates    []float64
	lastTime float64
}

func NewReleaseRate() *ReleaseRate { return &ReleaseRate{} }

func (r *ReleaseRate) Name() string { return "release_rate" }

func (r *ReleaseRate) Observe(f *sim.Frame) {
	dt := f.Time - r.lastTime
	r.lastTime = f.Time
	if !f.Input.Running || dt <= 0 {
		return
	}
	r.rates = append(r.rates, float64(f.Stats.Released)/dt)
}

func (r *ReleaseRate) Value() float64 {
	if len(r.rates) == 0 {
		return 0
	}
	return stat.Mean(r.rates, nil)
}

func (r *ReleaseRate) Reset() {
	r.rates = r.rates[:0]
	r.lastTime = 0
}

// Lag is the worst gap between the grains the countdown asks for and the
// grains that have passed.
type Lag struct {
	lags []float64
}

func NewLag() *Lag { return &Lag{} }

func (l *Lag) Name() string { return "max_lag" }

func (l *Lag) Observe(f *sim.Frame) {
	if !f.Input.Running {
		return
	}
	l.lags = append(l.lags, math.Abs(f.Target-float64(f.Stats.Passed())))
}

func (l *Lag) Value() float64 {
	if len(l.lags) == 0 {
		return 0
	}
	return floats.Max(l.lags)
}

func (l *Lag) Reset() { l.lags = l.lags[:0] }
