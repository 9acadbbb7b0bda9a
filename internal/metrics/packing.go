package metrics

import (
	"math"

	"github.com/san-kum/sandglass/internal/sim"
	"github.com/san-kum/sandglass/internal/spatial"
)

// contactSlop matches the engine's contact distance factor.
const contactSlop = 1.02

// MaxOverlap tracks the deepest penetration past the contact distance,
// checked every nth frame.
type MaxOverlap struct {
	every  int
	frames int
	worst  float64
	grid   *spatial.Grid
	xs, ys []float64
}

func NewMaxOverlap(every int) *MaxOverlap {
	if every < 1 {
		every = 1
	}
	return &MaxOverlap{every: every, grid: spatial.NewGrid()}
}

func (m *MaxOverlap) Name() string { return "max_overlap" }

func (m *MaxOverlap) Observe(f *sim.Frame) {
	m.frames++
	if (m.frames-1)%m.every != 0 || len(f.Grains) < 2 {
		return
	}

	m.xs, m.ys = m.xs[:0], m.ys[:0]
	for i := range f.Grains {
		m.xs = append(m.xs, f.Grains[i].X)
		m.ys = append(m.ys, f.Grains[i].Y)
	}

	geo := f.Geometry
	m.grid.Reset(math.Max(geo.Width, geo.CenterX*2), math.Max(geo.Height, geo.BottomY), geo.CellSize())
	for i := range m.xs {
		m.grid.Insert(i, m.xs[i], m.ys[i])
	}
	m.grid.ForEachPair(m.xs, m.ys, func(i, j int) {
		a, b := &f.Grains[i], &f.Grains[j]
		d := math.Hypot(b.X-a.X, b.Y-a.Y)
		if o := (a.Radius+b.Radius)*contactSlop - d; o > m.worst {
			m.worst = o
		}
	})
}

func (m *MaxOverlap) Value() float64 { return m.worst }

func (m *MaxOverlap) Reset() {
	m.frames = 0
	m.worst = 0
}

// GateOccupancy is the most active grains ever seen in the neck entrance
// band at once.
type GateOccupancy struct {
	peak int
}

func NewGateOccupancy() *GateOccupancy { return &GateOccupancy{} }

func (g *GateOccupancy) Name() string { return "gate_occupancy" }

func (g *GateOccupancy) Observe(f *sim.Frame) {
	if f.Occupancy > g.peak {
		g.peak = f.Occupancy
	}
}

func (g *GateOccupancy) Value() float64 { return float64(g.peak) }
func (g *GateOccupancy) Reset()         { g.peak = 0 }

// Default returns the metric set recorded for every headless run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewPeakRelease(),
		NewFinalPassed(),
		NewReleaseRate(),
		NewLag(),
		NewGateOccupancy(),
		NewMaxOverlap(30),
	}
}
