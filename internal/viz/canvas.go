package viz

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/quadtree"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800 // Empty braille char
		}
	}
	return c
}

// Set lights the pixel at (x, y) in sub-pixel coordinates.
// The canvas size in sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	// Early bounds check for negative coordinates
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	subX := x % 2
	subY := y % 4

	c.Grid[row][col] |= rune(pixelMap[subY][subX])
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func (c *Canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.Width*2 && y < c.Height*4
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps a square world region onto a canvas.
type Viewport struct {
	Center r2.Vec
	Size   float64
}

// FitViewport covers every position of every snapshot, padded by 5%.
func FitViewport(snaps []dynamo.Snapshot) Viewport {
	var pts []r2.Vec
	for _, snap := range snaps {
		pts = append(pts, snap.R...)
	}
	center, size := quadtree.AdaptiveRegion(pts, 0.05)
	return Viewport{Center: center, Size: size}
}

// Project returns the sub-pixel coordinates of p on c, with y pointing up.
func (v Viewport) Project(c *Canvas, p r2.Vec) (int, int) {
	w, h := float64(c.Width*2), float64(c.Height*4)
	scale := min(w, h) / v.Size
	x := (p.X-v.Center.X)*scale + w/2
	y := h/2 - (p.Y-v.Center.Y)*scale
	return int(x), int(y)
}

// DrawBodies lights one pixel per body of snap.
func (c *Canvas) DrawBodies(snap dynamo.Snapshot, v Viewport) {
	for _, p := range snap.R {
		x, y := v.Project(c, p)
		c.Set(x, y)
	}
}

// DrawTrails joins consecutive positions of every body.
func (c *Canvas) DrawTrails(snaps []dynamo.Snapshot, v Viewport) {
	for k := 1; k < len(snaps); k++ {
		prev, cur := snaps[k-1], snaps[k]
		for i := range min(len(prev.R), len(cur.R)) {
			x0, y0 := v.Project(c, prev.R[i])
			x1, y1 := v.Project(c, cur.R[i])
			if c.inside(x0, y0) && c.inside(x1, y1) {
				c.DrawLine(x0, y0, x1, y1)
			}
		}
	}
}
