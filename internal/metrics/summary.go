package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/sandglass/internal/sim"
)

// Summary describes a recorded run from its samples alone.
type Summary struct {
	Steps        int
	Duration     float64
	FinalPassed  int
	PeakRelease  int
	MeanRelease  float64
	StdRelease   float64
	MeanLag      float64
	MaxLag       float64
	EmptyAt      float64
	Reseeds      int
	PeakGate     int
	DrainedTotal int
	PulseHz      float64
}

// Summarize computes release and lag statistics over the running part of a
// run. EmptyAt is the first time the top chamber was empty, or -1.
func Summarize(samples []sim.Sample) Summary {
	s := Summary{Steps: len(samples), EmptyAt: -1}
	if len(samples) == 0 {
		return s
	}

	released := make([]float64, 0, len(samples))
	lags := make([]float64, 0, len(samples))
	for _, smp := range samples {
		if smp.Released > s.PeakRelease {
			s.PeakRelease = smp.Released
		}
		if smp.Occupancy > s.PeakGate {
			s.PeakGate = smp.Occupancy
		}
		s.DrainedTotal += smp.Drained
		if s.EmptyAt < 0 && smp.Inactive == 0 {
			s.EmptyAt = smp.Time
		}
		if !smp.Running {
			continue
		}
		released = append(released, float64(smp.Released))
		lags = append(lags, math.Abs(smp.Target-float64(smp.Passed)))
	}

	last := samples[len(samples)-1]
	s.Duration = last.Time
	s.FinalPassed = last.Passed
	s.Reseeds = last.Reseeds

	if len(released) > 0 {
		s.MeanRelease, s.StdRelease = stat.MeanStdDev(released, nil)
		if len(released) == 1 {
			s.StdRelease = 0
		}
		s.MeanLag = stat.Mean(lags, nil)
		s.MaxLag = floats.Max(lags)
	}
	s.PulseHz = PulseFrequency(samples)
	return s
}

// Series pulls one column out of samples for plotting.
func Series(samples []sim.Sample, field string) []float64 {
	out := make([]float64, len(samples))
	for i, smp := range samples {
		switch field {
		case "passed":
			out[i] = float64(smp.Passed)
		case "target":
			out[i] = smp.Target
		case "released":
			out[i] = float64(smp.Released)
		case "inactive":
			out[i] = float64(smp.Inactive)
		case "sleeping":
			out[i] = float64(smp.Sleeping)
		case "progress":
			out[i] = smp.Progress
		}
	}
	return out
}
