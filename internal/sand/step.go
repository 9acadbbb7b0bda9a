package sand

import "math"

const (
	inactiveBaseMobility = 0.02
	inactiveMobilityGain = 0.78
	solverIterations     = 12
	largePopulation      = 600
	largeIterations      = 14
)

// inactiveMobility scales gravity and jitter for grains still in the top
// pile. It starts near zero so a full pile stays put and grows as the pile
// drains so the remainder can slump into a funnel.
func (s *Simulation) inactiveMobility() float64 {
	total := len(s.grains)
	if total == 0 {
		return inactiveBaseMobility
	}
	activity := 1 - float64(s.countInactive())/float64(total)
	return inactiveBaseMobility + inactiveMobilityGain*activity
}

func (s *Simulation) integrate(dt float64) {
	dt2 := dt * dt
	keep := 1 - s.cfg.Damping
	mobility := s.inactiveMobility()

	for i := range s.grains {
		g := &s.grains[i]
		vx := (g.X - g.PrevX) * keep
		vy := (g.Y - g.PrevY) * keep
		g.PrevX, g.PrevY = g.X, g.Y

		jitter, gravity := s.cfg.Jitter, s.cfg.Gravity
		if !g.Active {
			jitter *= mobility
			gravity *= mobility
		}
		ax := jitter * (s.rng.Float64()*2 - 1)

		g.X += vx + ax*dt2
		g.Y += vy + gravity*dt2
	}
}

func (s *Simulation) constrain(geo Geometry) {
	for i := range s.grains {
		geo.Clamp(&s.grains[i])
	}
}

func (s *Simulation) iterations() int {
	if len(s.grains) > largePopulation {
		return largeIterations
	}
	return solverIterations
}

// solve interleaves envelope clamps and collision passes, finishing on a
// clamp so every grain ends the step inside the glass.
func (s *Simulation) solve(geo Geometry, passes int) {
	for k := 0; k < passes; k++ {
		s.constrain(geo)
		s.collide(geo)
	}
	s.constrain(geo)
}

// settle damps active grains below the settle line and freezes the ones
// slower than the sleep threshold. It returns the number frozen.
func (s *Simulation) settle(geo Geometry) int {
	line := geo.SettleLine()
	thr2 := s.cfg.SleepThreshold * s.cfg.SleepThreshold
	keep := s.cfg.SettleKeep

	sleeping := 0
	for i := range s.grains {
		g := &s.grains[i]
		if !g.Active || g.Y < line {
			continue
		}
		vx, vy := g.Velocity()
		if vx*vx+vy*vy < thr2 {
			g.Freeze()
			sleeping++
			continue
		}
		g.PrevX = g.X - vx*keep
		g.PrevY = g.Y - vy*keep
	}
	return sleeping
}

func sanitizeProgress(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return clamp(f, 0, 1)
}

const maxDt = 0.25

func clampDt(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	if dt > maxDt {
		return maxDt
	}
	return dt
}
