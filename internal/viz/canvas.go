package viz

import (
	"math"
	"strings"
)

// Dot layout inside one braille cell, offsets from U+2800:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotMask = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille raster addressed in world coordinates. It renders
// cols x rows characters; each cell carries 2x4 dots, so the drawable grid
// is (cols*2) x (rows*4) dots spread over the viewport. Points outside the
// viewport are dropped, never wrapped.
type Canvas struct {
	cols, rows int
	xmin, xmax float64
	ymin, ymax float64
	grid       [][]rune
}

func NewCanvas(cols, rows int, xmin, xmax, ymin, ymax float64) *Canvas {
	c := &Canvas{
		cols: cols, rows: rows,
		xmin: xmin, xmax: xmax,
		ymin: ymin, ymax: ymax,
		grid: make([][]rune, rows),
	}
	for i := range c.grid {
		c.grid[i] = make([]rune, cols)
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
	return c
}

// Contains reports whether the world point falls inside the viewport.
func (c *Canvas) Contains(x, y float64) bool {
	return finite(x) && finite(y) &&
		x >= c.xmin && x <= c.xmax && y >= c.ymin && y <= c.ymax
}

// Mark sets the dot nearest to the world point.
func (c *Canvas) Mark(x, y float64) {
	dx, dy, ok := c.toDot(x, y)
	if !ok {
		return
	}
	c.set(dx, dy)
}

// Segment draws a straight line between two world points with Bresenham
// steps over the dot grid. Endpoints outside the viewport are pinned to
// its edge.
func (c *Canvas) Segment(x0, y0, x1, y1 float64) {
	if !finite(x0) || !finite(y0) || !finite(x1) || !finite(y1) {
		return
	}
	ax, ay := c.clampDot(x0, y0)
	bx, by := c.clampDot(x1, y1)

	dx := absInt(bx - ax)
	dy := absInt(by - ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	e := dx - dy
	for {
		c.set(ax, ay)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			ax += sx
		}
		if e2 < dx {
			e += dx
			ay += sy
		}
	}
}

// Axes draws the x=0 and y=0 lines where they cross the viewport.
func (c *Canvas) Axes() {
	if c.ymin < 0 && c.ymax > 0 {
		c.Segment(c.xmin, 0, c.xmax, 0)
	}
	if c.xmin < 0 && c.xmax > 0 {
		c.Segment(0, c.ymin, 0, c.ymax)
	}
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *Canvas) toDot(x, y float64) (int, int, bool) {
	if !c.Contains(x, y) {
		return 0, 0, false
	}
	w := float64(c.cols*2 - 1)
	h := float64(c.rows*4 - 1)
	u := (x - c.xmin) / (c.xmax - c.xmin) * w
	v := (c.ymax - y) / (c.ymax - c.ymin) * h
	return int(math.Round(u)), int(math.Round(v)), true
}

func (c *Canvas) clampDot(x, y float64) (int, int) {
	x = math.Min(math.Max(x, c.xmin), c.xmax)
	y = math.Min(math.Max(y, c.ymin), c.ymax)
	dx, dy, _ := c.toDot(x, y)
	return dx, dy
}

func (c *Canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.grid[row][col] |= dotMask[y%4][x%2]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
