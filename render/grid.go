package render

import (
	"math"
	"strings"

	"github.com/TFMV/webgraph/models"
)

// Logical units covered by one character cell. Terminal cells are about
// twice as tall as they are wide.
const (
	DefaultCellWidth  = 10.0
	DefaultCellHeight = 20.0
)

const (
	gridBlank = ' '
	gridEdge  = '·'
	gridFill  = '░'
	gridHover = '█'
)

// Grid draws onto a character grid, for terminals and plain text output
type Grid struct {
	size       models.Size
	cellWidth  float64
	cellHeight float64
	ratio      float64
	cells      [][]rune
}

// NewGrid creates a grid covering size, with one cell per cellWidth by
// cellHeight logical units.
func NewGrid(size models.Size, cellWidth, cellHeight float64) *Grid {
	if cellWidth <= 0 {
		cellWidth = DefaultCellWidth
	}
	if cellHeight <= 0 {
		cellHeight = DefaultCellHeight
	}
	g := &Grid{size: size, cellWidth: cellWidth, cellHeight: cellHeight, ratio: 1}
	g.Clear()
	return g
}

// SetCellSize changes the logical units per cell. The next Clear
// reallocates the cells; non-positive values are ignored.
func (g *Grid) SetCellSize(width, height float64) {
	if width > 0 {
		g.cellWidth = width
	}
	if height > 0 {
		g.cellHeight = height
	}
}

// CellSize returns the logical units covered by one cell
func (g *Grid) CellSize() (width, height float64) {
	return g.cellWidth, g.cellHeight
}

// Dimensions returns the number of columns and rows
func (g *Grid) Dimensions() (cols, rows int) {
	rows = len(g.cells)
	if rows > 0 {
		cols = len(g.cells[0])
	}
	return cols, rows
}

// Clear blanks every cell
func (g *Grid) Clear() {
	cols := int(math.Ceil(g.size.Width * g.ratio / g.cellWidth))
	rows := int(math.Ceil(g.size.Height * g.ratio / g.cellHeight))
	cols, rows = max(cols, 1), max(rows, 1)

	if len(g.cells) != rows || len(g.cells[0]) != cols {
		g.cells = make([][]rune, rows)
		for i := range g.cells {
			g.cells[i] = make([]rune, cols)
		}
	}
	for _, row := range g.cells {
		for j := range row {
			row[j] = gridBlank
		}
	}
}

// ScaleForDevicePixelRatio sets the logical to device scale
func (g *Grid) ScaleForDevicePixelRatio(ratio float64) {
	if ratio > 0 && ratio != g.ratio {
		g.ratio = ratio
		g.Clear()
	}
}

// StrokeLine plots the segment with Bresenham's algorithm
func (g *Grid) StrokeLine(from, to models.Position) {
	x1, y1, ok1 := g.cell(from)
	x2, y2, ok2 := g.cell(to)
	if !ok1 || !ok2 {
		return
	}

	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}
	err := dx + dy

	for {
		g.set(x1, y1, gridEdge)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

// FillRect shades every cell the rectangle covers
func (g *Grid) FillRect(pos models.Position, size models.Size) {
	x0, y0, ok0 := g.cell(pos)
	x1, y1, ok1 := g.cell(pos.Add(size.Width, size.Height))
	if !ok0 || !ok1 {
		return
	}
	cols, rows := g.Dimensions()
	for y := max(y0, 0); y <= min(y1, rows-1); y++ {
		for x := max(x0, 0); x <= min(x1, cols-1); x++ {
			g.set(x, y, gridFill)
		}
	}
}

// StrokeRect draws the rectangle border. Wide outlines use solid blocks.
func (g *Grid) StrokeRect(pos models.Position, size models.Size, lineWidth float64) {
	x0, y0, ok0 := g.cell(pos)
	x1, y1, ok1 := g.cell(pos.Add(size.Width, size.Height))
	if !ok0 || !ok1 {
		return
	}

	horizontal, vertical, corner := '-', '|', '+'
	if lineWidth > DefaultLineWidth {
		horizontal, vertical, corner = gridHover, gridHover, gridHover
	}

	cols, rows := g.Dimensions()
	for x := max(x0, 0); x <= min(x1, cols-1); x++ {
		g.set(x, y0, horizontal)
		g.set(x, y1, horizontal)
	}
	for y := max(y0, 0); y <= min(y1, rows-1); y++ {
		g.set(x0, y, vertical)
		g.set(x1, y, vertical)
	}
	g.set(x0, y0, corner)
	g.set(x1, y0, corner)
	g.set(x0, y1, corner)
	g.set(x1, y1, corner)
}

// Lines returns the rows of the grid
func (g *Grid) Lines() []string {
	out := make([]string, len(g.cells))
	for i, row := range g.cells {
		out[i] = string(row)
	}
	return out
}

// String returns the grid as newline separated rows
func (g *Grid) String() string {
	return strings.Join(g.Lines(), "\n") + "\n"
}

// Bytes returns the grid as text
func (g *Grid) Bytes() ([]byte, error) {
	return []byte(g.String()), nil
}

// At returns the rune at column x and row y, or zero when out of range
func (g *Grid) At(x, y int) rune {
	if y < 0 || y >= len(g.cells) || x < 0 || x >= len(g.cells[y]) {
		return 0
	}
	return g.cells[y][x]
}

// Cell maps a logical position to the column and row it falls in. NaN
// coordinates map to (-1, -1), outside the grid.
func (g *Grid) Cell(pos models.Position) (x, y int) {
	x, y, ok := g.cell(pos)
	if !ok {
		return -1, -1
	}
	return x, y
}

func (g *Grid) cell(pos models.Position) (int, int, bool) {
	x := math.Floor(pos.X * g.ratio / g.cellWidth)
	y := math.Floor(pos.Y * g.ratio / g.cellHeight)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, 0, false
	}
	// keep far away points from overflowing int
	x = models.Clamp(x, -1<<16, 1<<16)
	y = models.Clamp(y, -1<<16, 1<<16)
	return int(x), int(y), true
}

func (g *Grid) set(x, y int, r rune) {
	if y < 0 || y >= len(g.cells) || x < 0 || x >= len(g.cells[y]) {
		return
	}
	g.cells[y][x] = r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
