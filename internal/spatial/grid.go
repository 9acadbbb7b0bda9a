package spatial

import "math"

// Grid is a dense uniform hash over a rectangular area. Cells hold grain
// indices; buckets keep their capacity across Clear calls.
type Grid struct {
	cellSize float64
	inv      float64
	cols     int
	rows     int
	cells    [][]int32
}

func NewGrid() *Grid {
	return &Grid{}
}

// Reset sizes the grid for a width x height area. Buckets are reused when the
// cell count does not grow.
func (g *Grid) Reset(width, height, cellSize float64) {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = 1
	}
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	g.cellSize = cellSize
	g.inv = 1 / cellSize
	g.cols, g.rows = cols, rows

	n := cols * rows
	if cap(g.cells) < n {
		cells := make([][]int32, n)
		copy(cells, g.cells[:cap(g.cells)])
		g.cells = cells
	}
	g.cells = g.cells[:n]
	g.Clear()
}

// Clear empties every bucket without releasing memory.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }
func (g *Grid) Cols() int          { return g.cols }
func (g *Grid) Rows() int          { return g.rows }

// Cell returns the clamped cell coordinates for a position.
func (g *Grid) Cell(x, y float64) (int, int) {
	cx := int(math.Floor(x * g.inv))
	cy := int(math.Floor(y * g.inv))
	if cx < 0 {
		cx = 0
	} else if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= g.rows {
		cy = g.rows - 1
	}
	return cx, cy
}

func (g *Grid) Insert(idx int, x, y float64) {
	cx, cy := g.Cell(x, y)
	i := cy*g.cols + cx
	g.cells[i] = append(g.cells[i], int32(idx))
}

// Bucket returns the indices stored at (cx, cy), or nil outside the grid.
func (g *Grid) Bucket(cx, cy int) []int32 {
	if cx < 0 || cy < 0 || cx >= g.cols || cy >= g.rows {
		return nil
	}
	return g.cells[cy*g.cols+cx]
}

// Neighbours are the 3x3 cell offsets around a cell, own cell included.
var Neighbours = [9][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {0, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// ForEachPair calls fn once for every unordered pair (i, j), i < j, whose
// cells are adjacent. xs and ys hold the positions used to fill the grid.
func (g *Grid) ForEachPair(xs, ys []float64, fn func(i, j int)) {
	for i := range xs {
		cx, cy := g.Cell(xs[i], ys[i])
		for _, off := range Neighbours {
			for _, j := range g.Bucket(cx+off[0], cy+off[1]) {
				if int(j) > i {
					fn(i, int(j))
				}
			}
		}
	}
}
