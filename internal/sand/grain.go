package sand

import (
	"log/slog"
	"math"
)

// Grain is one sand particle. Velocity is implied by X-PrevX, Y-PrevY.
type Grain struct {
	X, Y         float64
	PrevX, PrevY float64
	Radius       float64
	Active       bool
	Shade        float64
}

func (g *Grain) Velocity() (float64, float64) {
	return g.X - g.PrevX, g.Y - g.PrevY
}

func (g *Grain) Speed() float64 {
	vx, vy := g.Velocity()
	return math.Sqrt(vx*vx + vy*vy)
}

// Freeze zeroes the implied velocity.
func (g *Grain) Freeze() {
	g.PrevX, g.PrevY = g.X, g.Y
}

// Stats are counters refreshed at the end of every step.
type Stats struct {
	Total    int
	Active   int
	Inactive int
	Released int
	Drained  int
	Sleeping int
	Reseeds  int
	Steps    int
	Sampled  int
}

// Passed is the number of grains that have gone through the neck. It counts
// every active grain, so grains a reseed packs straight into the bottom
// chamber are included.
func (s Stats) Passed() int { return s.Active }

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("active", s.Active),
		slog.Int("inactive", s.Inactive),
		slog.Int("released", s.Released),
		slog.Int("drained", s.Drained),
		slog.Int("sleeping", s.Sleeping),
		slog.Int("reseeds", s.Reseeds),
		slog.Int("steps", s.Steps),
	)
}
