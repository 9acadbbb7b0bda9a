package stream

import (
	"math"

	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/sim"
)

// Outline is the glass shape sent to viewers, in container pixels.
type Outline struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	CenterX         float64 `json:"center_x"`
	TopY            float64 `json:"top_y"`
	NeckTop         float64 `json:"neck_top"`
	NeckBottom      float64 `json:"neck_bottom"`
	BottomY         float64 `json:"bottom_y"`
	TopHalfWidth    float64 `json:"top_half_width"`
	NeckHalfWidth   float64 `json:"neck_half_width"`
	BottomHalfWidth float64 `json:"bottom_half_width"`
	Radius          float64 `json:"radius"`
}

func outlineOf(g sand.Geometry) Outline {
	return Outline{
		Width:           g.Width,
		Height:          g.Height,
		CenterX:         g.CenterX,
		TopY:            g.TopY,
		NeckTop:         g.NeckTop,
		NeckBottom:      g.NeckBottom,
		BottomY:         g.BottomY,
		TopHalfWidth:    g.TopHalfWidth,
		NeckHalfWidth:   g.NeckHalfWidth,
		BottomHalfWidth: g.BottomHalfWidth,
		Radius:          g.Radius,
	}
}

// Message is one broadcast frame. Grains are packed as x, y, active triples
// with positions in tenths of a pixel.
type Message struct {
	Step    int        `json:"step"`
	Time    float64    `json:"time"`
	Sample  sim.Sample `json:"sample"`
	Outline Outline    `json:"outline"`
	Grains  []int32    `json:"grains"`
}

const positionScale = 10

func packGrains(dst []int32, grains []sand.Grain) []int32 {
	dst = dst[:0]
	for i := range grains {
		g := &grains[i]
		active := int32(0)
		if g.Active {
			active = 1
		}
		dst = append(dst,
			int32(math.Round(g.X*positionScale)),
			int32(math.Round(g.Y*positionScale)),
			active,
		)
	}
	return dst
}

// Unpack returns the positions and active flags carried by m.
func (m *Message) Unpack() (xs, ys []float64, active []bool) {
	n := len(m.Grains) / 3
	xs, ys, active = make([]float64, n), make([]float64, n), make([]bool, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(m.Grains[i*3]) / positionScale
		ys[i] = float64(m.Grains[i*3+1]) / positionScale
		active[i] = m.Grains[i*3+2] == 1
	}
	return xs, ys, active
}
