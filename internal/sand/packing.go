package sand

import (
	"math"
	"math/rand"
	"sort"
)

const (
	packPitch      = 2.06
	packEpsilon    = 1e-6
	relaxPasses    = 40
	sampleAttempts = 60
	shadeSpread    = 0.06
)

// Pack lays out total grains with round(total*fraction) of them resting in
// the top chamber (inactive) and the rest in the bottom chamber (active).
// The second result counts grains that did not fit the row layout and were
// placed by random sampling instead.
func Pack(geo Geometry, total int, fraction float64, rng *rand.Rand) ([]Grain, int) {
	if total < 0 {
		total = 0
	}
	topCount := int(math.Round(float64(total) * clamp(fraction, 0, 1)))
	if topCount > total {
		topCount = total
	}

	grains := make([]Grain, 0, total)
	var sampledTop, sampledBottom int
	grains, sampledTop = fillChamber(grains, geo, topCount, true, rng)
	grains, sampledBottom = fillChamber(grains, geo, total-topCount, false, rng)
	return grains, sampledTop + sampledBottom
}

func fillChamber(dst []Grain, geo Geometry, n int, top bool, rng *rand.Rand) ([]Grain, int) {
	start := len(dst)
	for _, p := range rowPositions(geo, n, top) {
		dst = append(dst, newGrain(p[0], p[1], geo.Radius, !top, rng))
	}
	sampled := 0
	for len(dst)-start < n {
		x, y := sampleFree(geo, top, dst[start:], rng)
		dst = append(dst, newGrain(x, y, geo.Radius, !top, rng))
		sampled++
	}
	return dst, sampled
}

func newGrain(x, y, r float64, active bool, rng *rand.Rand) Grain {
	return Grain{
		X: x, Y: y,
		PrevX: x, PrevY: y,
		Radius: r,
		Active: active,
		Shade:  (rng.Float64()*2 - 1) * shadeSpread,
	}
}

// chamberHalfWidthAt picks the trapezoid of the top or bottom chamber.
func (g Geometry) chamberHalfWidthAt(y float64, top bool) float64 {
	if top {
		return g.TopHalfWidthAt(y)
	}
	return g.BottomHalfWidthAt(y)
}

// rowPositions returns up to n grain centres on rows 2.06r apart. The top
// chamber fills from the neck upward, the bottom chamber from the floor
// upward. Each row fills from the centre out and odd rows are offset by
// half a pitch.
func rowPositions(geo Geometry, n int, top bool) [][2]float64 {
	r := geo.Radius
	pitch := packPitch * r
	out := make([][2]float64, 0, n)
	offsets := make([]float64, 0, 64)

	for row := 0; len(out) < n; row++ {
		var y float64
		if top {
			y = geo.NeckTop - r - packEpsilon - float64(row)*pitch
			if y < geo.TopY+r {
				break
			}
		} else {
			y = geo.BottomY - r - packEpsilon - float64(row)*pitch
			if y < geo.NeckBottom+r {
				break
			}
		}

		usable := geo.chamberHalfWidthAt(y, top) - r - packEpsilon
		if usable < 0 {
			continue
		}
		shift := 0.0
		if row%2 == 1 {
			shift = pitch / 2
		}

		offsets = offsets[:0]
		kMin := int(math.Ceil((-usable - shift) / pitch))
		kMax := int(math.Floor((usable - shift) / pitch))
		for k := kMin; k <= kMax; k++ {
			offsets = append(offsets, shift+float64(k)*pitch)
		}
		sort.Slice(offsets, func(i, j int) bool {
			ai, aj := math.Abs(offsets[i]), math.Abs(offsets[j])
			if ai != aj {
				return ai < aj
			}
			return offsets[i] < offsets[j]
		})

		for _, dx := range offsets {
			if len(out) == n {
				break
			}
			out = append(out, [2]float64{geo.CenterX + dx, y})
		}
	}
	return out
}

// sampleChamber draws a uniform point inside the legal region of a chamber.
func sampleChamber(geo Geometry, top bool, rng *rand.Rand) (float64, float64) {
	r := geo.Radius
	var y0, y1 float64
	if top {
		y0, y1 = geo.TopY+r, geo.NeckTop-r
	} else {
		y0, y1 = geo.NeckBottom+r, geo.BottomY-r
	}
	if y1 < y0 {
		y1 = y0
	}
	y := y0 + rng.Float64()*(y1-y0)
	lim := math.Max(0, geo.chamberHalfWidthAt(y, top)-r)
	x := geo.CenterX + (rng.Float64()*2-1)*lim
	return x, y
}

// sampleFree tries a bounded number of random points and returns the first
// that clears every grain in others. When none does the last candidate is
// used and the solver separates it later.
func sampleFree(geo Geometry, top bool, others []Grain, rng *rand.Rand) (float64, float64) {
	minD := 2 * geo.Radius * contactSlop
	minD2 := minD * minD
	var x, y float64
	for attempt := 0; attempt < sampleAttempts; attempt++ {
		x, y = sampleChamber(geo, top, rng)
		free := true
		for i := range others {
			dx, dy := others[i].X-x, others[i].Y-y
			if dx*dx+dy*dy < minD2 {
				free = false
				break
			}
		}
		if free {
			break
		}
	}
	return x, y
}
