package sand

import "math"

const (
	burstCeiling      = 24
	baseFlowPerSecond = 12.0
	flowGain          = 30.0
	releaseSpeed      = 2.2
)

// govern converts the gap between the progress target and the grains that
// have already passed into releases through the neck gate. It returns the
// number of grains released this step.
func (s *Simulation) govern(geo Geometry, progress, dt float64) int {
	total := len(s.grains)
	passed := total - s.countInactive()
	target := (1 - progress) * float64(total)
	needed := target - float64(passed)
	if needed <= 0 {
		return 0
	}

	flow := math.Max(baseFlowPerSecond, needed*flowGain)
	budget := flow*dt + s.carry
	whole := math.Floor(budget)
	s.carry = budget - whole

	limit := int(whole)
	if n := int(math.Floor(needed)); n < limit {
		limit = n
	}
	if s.cfg.MaxReleasePerFrame < limit {
		limit = s.cfg.MaxReleasePerFrame
	}
	if burstCeiling < limit {
		limit = burstCeiling
	}

	if s.occupancy(geo) > 0 {
		return 0
	}
	slots := geo.ReleaseSlots()
	released := 0
	for k := 0; k < slots && released < limit; k++ {
		x, y := s.dropPoint(geo, k)
		if !s.slotClear(geo, x, y) {
			break
		}
		idx := s.nextInactive(geo)
		if idx < 0 {
			break
		}
		s.release(idx, x, y)
		released++
	}
	return released
}

// EntranceOccupancy counts active grains inside the neck entrance band.
func (s *Simulation) EntranceOccupancy() int {
	return s.occupancy(s.geo)
}

func (s *Simulation) occupancy(geo Geometry) int {
	n := 0
	for i := range s.grains {
		g := &s.grains[i]
		if g.Active && geo.InEntrance(g.X, g.Y) {
			n++
		}
	}
	return n
}

// nextInactive picks the inactive grain closest to the neck: largest y,
// ties broken toward the centre line.
func (s *Simulation) nextInactive(geo Geometry) int {
	best := -1
	bestY, bestDX := math.Inf(-1), math.Inf(1)
	for i := range s.grains {
		g := &s.grains[i]
		if g.Active {
			continue
		}
		dx := math.Abs(g.X - geo.CenterX)
		if g.Y > bestY+1e-9 || (math.Abs(g.Y-bestY) <= 1e-9 && dx < bestDX) {
			best, bestY, bestDX = i, g.Y, dx
		}
	}
	return best
}

// dropPoint places slot k on the corridor axis with a small sideways offset.
func (s *Simulation) dropPoint(geo Geometry, k int) (float64, float64) {
	lim := math.Max(0, geo.FlowHalfWidth-geo.Radius)
	return geo.CenterX + (s.rng.Float64()*2-1)*lim*0.5, geo.ReleaseSlot(k)
}

// slotClear reports whether a grain dropped at (x, y) would touch no active
// grain.
func (s *Simulation) slotClear(geo Geometry, x, y float64) bool {
	minD := 2 * geo.Radius * contactSlop
	min2 := minD * minD
	for i := range s.grains {
		g := &s.grains[i]
		if !g.Active {
			continue
		}
		dx, dy := g.X-x, g.Y-y
		if dx*dx+dy*dy < min2 {
			return false
		}
	}
	return true
}

// release activates grain idx at (x, y) moving down a little more than one
// slot per step, encoded in its previous position. The grain clears its slot
// before the next step's releases are checked.
func (s *Simulation) release(idx int, x, y float64) {
	g := &s.grains[idx]
	g.X, g.Y = x, y
	g.PrevX, g.PrevY = x, y-releaseSpeed*g.Radius
	g.Active = true
}

// drain moves every grain still above the bottom chamber into it, bypassing
// the gate. Used when the timer stops at zero so the top empties at once.
func (s *Simulation) drain(geo Geometry) int {
	moved := 0
	for i := range s.grains {
		g := &s.grains[i]
		if g.Active && g.Y >= geo.NeckBottom {
			continue
		}
		g.X, g.Y = sampleFree(geo, false, s.grains, s.rng)
		g.Freeze()
		g.Active = true
		moved++
	}
	s.carry = 0
	return moved
}
