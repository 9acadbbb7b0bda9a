package sand

import (
	"math"

	"github.com/san-kum/sandglass/internal/spatial"
)

// contactSlop widens the contact distance so resting grains keep a hairline
// gap instead of touching.
const contactSlop = 1.02

// collide runs one broad phase + narrow phase pass over all grains.
func (s *Simulation) collide(geo Geometry) int {
	n := len(s.grains)
	if n < 2 {
		return 0
	}

	s.grid.Reset(math.Max(geo.Width, geo.CenterX*2), math.Max(geo.Height, geo.BottomY), geo.CellSize())
	if cap(s.cellX) < n {
		s.cellX = make([]int, n)
		s.cellY = make([]int, n)
	}
	s.cellX, s.cellY = s.cellX[:n], s.cellY[:n]

	for i := range s.grains {
		g := &s.grains[i]
		s.cellX[i], s.cellY[i] = s.grid.Cell(g.X, g.Y)
		s.grid.Insert(i, g.X, g.Y)
	}

	contacts := 0
	for i := 0; i < n; i++ {
		a := &s.grains[i]
		cx, cy := s.cellX[i], s.cellY[i]
		for _, off := range spatial.Neighbours {
			for _, j := range s.grid.Bucket(cx+off[0], cy+off[1]) {
				if int(j) <= i {
					continue
				}
				if s.resolve(a, &s.grains[j]) {
					contacts++
				}
			}
		}
	}
	return contacts
}

// resolve separates an overlapping pair and applies the velocity response
// through the previous positions.
func (s *Simulation) resolve(a, b *Grain) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	minD := (a.Radius + b.Radius) * contactSlop
	d2 := dx*dx + dy*dy
	if d2 >= minD*minD {
		return false
	}

	d := math.Sqrt(d2)
	nx, ny := 0.0, 1.0
	if d > 1e-9 {
		nx, ny = dx/d, dy/d
	} else {
		d = 0
	}

	corr := (minD - d) * 0.5
	a.X -= nx * corr
	a.Y -= ny * corr
	b.X += nx * corr
	b.Y += ny * corr

	st := corr * s.cfg.Stabilization
	a.PrevX -= nx * st
	a.PrevY -= ny * st
	b.PrevX += nx * st
	b.PrevY += ny * st

	avx, avy := a.Velocity()
	bvx, bvy := b.Velocity()
	rvx, rvy := bvx-avx, bvy-avy
	vn := rvx*nx + rvy*ny
	tx, ty := rvx-vn*nx, rvy-vn*ny

	// Only an approaching normal component is reflected; tangential
	// friction applies to every contact.
	newN := vn
	if vn < 0 {
		newN = -vn * s.cfg.Restitution
	}
	keep := 1 - s.cfg.Friction
	nrx := newN*nx + tx*keep
	nry := newN*ny + ty*keep

	hx, hy := (nrx-rvx)*0.5, (nry-rvy)*0.5
	a.PrevX += hx
	a.PrevY += hy
	b.PrevX -= hx
	b.PrevY -= hy
	return true
}
