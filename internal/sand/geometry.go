package sand

import "math"

const (
	radiusFactor     = 0.0085
	MinRadius        = 1.5
	MaxRadius        = 6.0
	minMargin        = 6.0
	minNeckHeight    = 10.0
	minChamberHeight = 8.0
	neckRadii        = 2.6
	neckWidthFactor  = 0.035
	flowRadii        = 1.15
	cellRadii        = 2.6
	settleRadii      = 2.0
	gateDepthRadii   = 1.8
	releaseDepth     = 1.1
	slotPitch        = 2.1
)

// Geometry is the hourglass outline for one container size. Y grows
// downward; the top chamber spans [TopY, NeckTop], the neck
// [NeckTop, NeckBottom] and the bottom chamber [NeckBottom, BottomY].
type Geometry struct {
	Width, Height   float64
	CenterX         float64
	Margin          float64
	ChamberHeight   float64
	NeckHeight      float64
	TopY            float64
	NeckTop         float64
	NeckBottom      float64
	BottomY         float64
	TopHalfWidth    float64
	NeckHalfWidth   float64
	BottomHalfWidth float64
	FlowHalfWidth   float64
	Radius          float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finiteNonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// BuildGeometry derives the outline and grain radius for a w x h container.
// Tiny containers fall back to the minimum sizes instead of failing.
func BuildGeometry(w, h, radiusScale float64) Geometry {
	w, h = finiteNonNegative(w), finiteNonNegative(h)
	if math.IsNaN(radiusScale) || radiusScale <= 0 {
		radiusScale = 1
	}
	minSide := math.Min(w, h)

	margin := math.Max(minMargin, minSide*0.06)
	neckH := math.Max(minNeckHeight, h*0.10)
	chamberH := math.Max(minChamberHeight, (h-neckH-2*margin)/2)
	r := clamp(minSide*radiusFactor*radiusScale, MinRadius, MaxRadius)

	neckHW := math.Max(r*neckRadii, w*neckWidthFactor)
	flowHW := math.Min(neckHW, r*flowRadii)
	chamberHW := math.Max(w/2-margin, neckHW)

	topY := margin
	neckTop := topY + chamberH
	neckBottom := neckTop + neckH

	return Geometry{
		Width:           w,
		Height:          h,
		CenterX:         w / 2,
		Margin:          margin,
		ChamberHeight:   chamberH,
		NeckHeight:      neckH,
		TopY:            topY,
		NeckTop:         neckTop,
		NeckBottom:      neckBottom,
		BottomY:         neckBottom + chamberH,
		TopHalfWidth:    chamberHW,
		NeckHalfWidth:   neckHW,
		BottomHalfWidth: chamberHW,
		FlowHalfWidth:   flowHW,
		Radius:          r,
	}
}

// TopHalfWidthAt narrows linearly from TopHalfWidth at TopY to NeckHalfWidth
// at NeckTop.
func (g Geometry) TopHalfWidthAt(y float64) float64 {
	t := clamp((y-g.TopY)/(g.NeckTop-g.TopY), 0, 1)
	return g.TopHalfWidth + (g.NeckHalfWidth-g.TopHalfWidth)*t
}

// BottomHalfWidthAt widens linearly from NeckHalfWidth at NeckBottom to
// BottomHalfWidth at BottomY.
func (g Geometry) BottomHalfWidthAt(y float64) float64 {
	t := clamp((y-g.NeckBottom)/(g.BottomY-g.NeckBottom), 0, 1)
	return g.NeckHalfWidth + (g.BottomHalfWidth-g.NeckHalfWidth)*t
}

// HalfWidthAt is the envelope half-width at y. Active grains in the neck are
// held to the flow corridor.
func (g Geometry) HalfWidthAt(y float64, active bool) float64 {
	switch {
	case y < g.NeckTop:
		return g.TopHalfWidthAt(y)
	case y <= g.NeckBottom:
		if active {
			return g.FlowHalfWidth
		}
		return g.NeckHalfWidth
	default:
		return g.BottomHalfWidthAt(y)
	}
}

// Clamp moves a grain back inside its envelope. Inactive grains may not
// enter the neck.
func (g Geometry) Clamp(gr *Grain) {
	r := gr.Radius
	minY := g.TopY + r
	maxY := g.BottomY - r
	if !gr.Active {
		maxY = math.Min(maxY, g.NeckTop-r)
	}
	if maxY < minY {
		maxY = minY
	}
	gr.Y = clamp(gr.Y, minY, maxY)

	lim := math.Max(0, g.HalfWidthAt(gr.Y, gr.Active)-r)
	gr.X = clamp(gr.X, g.CenterX-lim, g.CenterX+lim)
}

// Outline returns the left and right walls as polylines from TopY down to
// BottomY.
func (g Geometry) Outline() (left, right [4][2]float64) {
	ys := [4]float64{g.TopY, g.NeckTop, g.NeckBottom, g.BottomY}
	hws := [4]float64{g.TopHalfWidth, g.NeckHalfWidth, g.NeckHalfWidth, g.BottomHalfWidth}
	for i := range ys {
		left[i] = [2]float64{g.CenterX - hws[i], ys[i]}
		right[i] = [2]float64{g.CenterX + hws[i], ys[i]}
	}
	return left, right
}

func (g Geometry) CellSize() float64 { return g.Radius * cellRadii }

// SettleLine is the y below which resting grains are damped and put to sleep.
func (g Geometry) SettleLine() float64 { return g.NeckBottom + g.Radius*settleRadii }

// InEntrance reports whether a point lies in the band at the top of the neck
// that the release gate watches. The band is shorter than a grain diameter,
// so two separated grains in the corridor cannot share it.
func (g Geometry) InEntrance(x, y float64) bool {
	r := g.Radius
	if math.Abs(x-g.CenterX) >= g.NeckHalfWidth+r {
		return false
	}
	return y >= g.NeckTop && y < g.NeckTop+r*gateDepthRadii
}

// ReleaseSlot is the drop height of release slot k. Slot 0 sits in the
// entrance band; later slots stack down the corridor one grain apart.
func (g Geometry) ReleaseSlot(k int) float64 {
	return g.NeckTop + g.Radius*(releaseDepth+float64(k)*slotPitch)
}

// ReleaseSlots is the number of slots that fit inside the neck, at least one.
func (g Geometry) ReleaseSlots() int {
	if g.Radius <= 0 {
		return 1
	}
	room := g.NeckBottom - g.Radius - g.ReleaseSlot(0)
	if room < 0 {
		return 1
	}
	return 1 + int(room/(g.Radius*slotPitch))
}
