package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

const wallThickness = 2

func vec(p [2]float64) rl.Vector2 {
	return rl.NewVector2(float32(p[0]), float32(p[1]))
}

func (a *App) drawGlass() {
	geo := a.Engine.Geometry()
	if geo.Width <= 0 || geo.Height <= 0 {
		return
	}
	left, right := geo.Outline()
	for i := 1; i < len(left); i++ {
		rl.DrawLineEx(vec(left[i-1]), vec(left[i]), wallThickness, ColGlass)
		rl.DrawLineEx(vec(right[i-1]), vec(right[i]), wallThickness, ColGlass)
	}
	rl.DrawLineEx(vec(left[0]), vec(right[0]), wallThickness, ColGlass)
	rl.DrawLineEx(vec(left[3]), vec(right[3]), wallThickness, ColGlass)
}

// drawGrains draws every grain as a square of its diameter, tinted by its
// shade.
func (a *App) drawGrains() {
	for _, g := range a.Engine.Grains() {
		d := float32(g.Radius * 2)
		rect := rl.Rectangle{
			X:      float32(g.X - g.Radius),
			Y:      float32(g.Y - g.Radius),
			Width:  d,
			Height: d,
		}
		rl.DrawRectangleRec(rect, shade(ColAccent, g.Shade))
	}
}

// shade brightens or darkens c by a signed fraction.
func shade(c rl.Color, s float64) rl.Color {
	f := 1 + s
	scale := func(v uint8) uint8 {
		return uint8(min(255, max(0, float64(v)*f)))
	}
	return rl.NewColor(scale(c.R), scale(c.G), scale(c.B), c.A)
}

func (a *App) DrawTelemetry(r rl.Rectangle) {
	rl.DrawRectangleLinesEx(r, 1, ColTextDim)
	rl.DrawText("passed", int32(r.X+4), int32(r.Y+4), 12, ColTextDim)
	if len(a.Telemetry) < 2 {
		return
	}

	total := float64(a.Engine.Stats().Total)
	if total <= 0 {
		return
	}

	points := make([]rl.Vector2, len(a.Telemetry))
	step := r.Width / float32(historySize-1)
	for i, v := range a.Telemetry {
		norm := float32(v / total)
		points[i] = rl.NewVector2(r.X+float32(i)*step, r.Y+r.Height-norm*r.Height)
	}
	rl.DrawLineStrip(points, ColAccent)
}
