package viz

import (
	"math"
	"strings"

	"github.com/san-kum/polecart/internal/cartpole"
)

const brailleBlank = 0x2800

// Braille dot bits for a 2x4 cell:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille pixel grid. Each character cell holds 2x4 dots, so the
// drawable area is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = []rune(strings.Repeat(string(rune(brailleBlank)), w))
	}
	return c
}

// Set lights the dot at (x, y); out of range dots are dropped.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= dotBits[y%4][x%2]
}

// DrawLine uses Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

func (c *Canvas) DrawRect(x0, y0, x1, y1 int) {
	c.DrawLine(x0, y0, x1, y0)
	c.DrawLine(x1, y0, x1, y1)
	c.DrawLine(x1, y1, x0, y1)
	c.DrawLine(x0, y1, x0, y0)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Frame draws one instance: a track, the cart and its pole. Cart positions in
// [-halfTrack, halfTrack] span the canvas width and are clamped outside it.
// An angle of π/2 points the pole straight up.
func Frame(obs cartpole.Observation, halfTrack float64, cols, rows int) string {
	c := NewCanvas(cols, rows)
	w, h := cols*2, rows*4

	trackY := h - 2
	c.DrawLine(0, trackY, w-1, trackY)

	frac := (obs.CartPosition + halfTrack) / (2 * halfTrack)
	frac = max(0, min(1, frac))
	cx := int(frac * float64(w-1))

	cartW, cartH := max(4, w/12), max(2, h/8)
	top := trackY - 1 - cartH
	c.DrawRect(cx-cartW/2, top, cx+cartW/2, trackY-1)

	pole := 0.95 * float64(top)
	tipX := cx + int(math.Round(math.Cos(obs.PoleAngle)*pole))
	tipY := top - int(math.Round(math.Sin(obs.PoleAngle)*pole))
	c.DrawLine(cx, top, tipX, tipY)

	return c.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
