package viz

import "strings"

// brailleBlank is U+2800, the empty braille cell. A cell's eight dots map to
// the low eight bits of the code point offset.
const brailleBlank = 0x2800

// dotBit is the pattern bit for dot (dx, dy) inside one 2x4 cell. The first
// three rows number down each column; the fourth row was added to the
// standard later and takes bits 6 and 7.
func dotBit(dx, dy int) uint8 {
	if dy == 3 {
		return 1 << (6 + dx)
	}
	return 1 << (dy + 3*dx)
}

// Canvas is a dot raster backed by braille cells, two dots wide and four
// tall per terminal character.
type Canvas struct {
	cols, rows int
	cells      []uint8
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{}
	c.Resize(cols, rows)
	return c
}

func (c *Canvas) Cols() int { return c.cols }
func (c *Canvas) Rows() int { return c.rows }

// DotSize is the raster size in dots.
func (c *Canvas) DotSize() (int, int) { return c.cols * 2, c.rows * 4 }

// Resize changes the cell grid to cols x rows and blanks it, reusing the
// backing slice when it is large enough.
func (c *Canvas) Resize(cols, rows int) {
	c.cols, c.rows = max(cols, 1), max(rows, 1)
	n := c.cols * c.rows
	if cap(c.cells) < n {
		c.cells = make([]uint8, n)
	}
	c.cells = c.cells[:n]
	c.Clear()
}

func (c *Canvas) Clear() { clear(c.cells) }

// cell returns the index and bit for dot (x, y), or ok=false off canvas.
func (c *Canvas) cell(x, y int) (idx int, bit uint8, ok bool) {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return 0, 0, false
	}
	return (y/4)*c.cols + x/2, dotBit(x%2, y%4), true
}

// Plot lights dot (x, y). Dots off the canvas are dropped.
func (c *Canvas) Plot(x, y int) {
	if i, bit, ok := c.cell(x, y); ok {
		c.cells[i] |= bit
	}
}

func (c *Canvas) Erase(x, y int) {
	if i, bit, ok := c.cell(x, y); ok {
		c.cells[i] &^= bit
	}
}

func (c *Canvas) Lit(x, y int) bool {
	i, bit, ok := c.cell(x, y)
	return ok && c.cells[i]&bit != 0
}

// Segment plots a straight run of dots from (x0, y0) to (x1, y1), one dot
// per step along the longer axis.
func (c *Canvas) Segment(x0, y0, x1, y1 int) {
	dx, dy := x1-x0, y1-y0
	n := max(abs(dx), abs(dy))
	if n == 0 {
		c.Plot(x0, y0)
		return
	}
	for k := 0; k <= n; k++ {
		c.Plot(x0+roundDiv(dx*k, n), y0+roundDiv(dy*k, n))
	}
}

// EachLit calls fn for every lit dot in row-major cell order.
func (c *Canvas) EachLit(fn func(x, y int)) {
	for i, bits := range c.cells {
		if bits == 0 {
			continue
		}
		cx, cy := (i%c.cols)*2, (i/c.cols)*4
		for dy := 0; dy < 4; dy++ {
			for dx := 0; dx < 2; dx++ {
				if bits&dotBit(dx, dy) != 0 {
					fn(cx+dx, cy+dy)
				}
			}
		}
	}
}

// Rune is the braille character for cell (col, row).
func (c *Canvas) Rune(col, row int) rune {
	return rune(brailleBlank + int(c.cells[row*c.cols+col]))
}

func (c *Canvas) String() string {
	var b strings.Builder
	b.Grow(c.rows * (c.cols*3 + 1))
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			b.WriteRune(c.Rune(col, row))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// roundDiv is a/b rounded half away from zero, b > 0.
func roundDiv(a, b int) int {
	if a < 0 {
		return -((-a*2 + b) / (2 * b))
	}
	return (a*2 + b) / (2 * b)
}
