// Package canvas is the RGBA raster rendered pixels are painted into before being written out as a PNG.
package canvas

import (
	"SmoothMandelbrot/misc"
	"image"
	"image/color"
	"image/png"
	"io"
)

type Canvas struct {
	image      *image.RGBA
	pixelsLeft uint
	painted    []bool
}

func NewCanvas(width uint, height uint) *Canvas {
	return &Canvas{
		image:      image.NewRGBA(image.Rect(0, 0, int(width), int(height))),
		pixelsLeft: width * height,
		painted:    make([]bool, width*height),
	}
}

func (c *Canvas) Image() *image.RGBA {
	return c.image
}

// PixelsLeft is the number of pixels that have not been painted yet.
func (c *Canvas) PixelsLeft() uint {
	return c.pixelsLeft
}

func (c *Canvas) Complete() bool {
	return c.pixelsLeft == 0
}

// Paint sets one pixel. Points outside of the canvas are ignored.
func (c *Canvas) Paint(x int, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}.In(c.image.Rect)) {
		return
	}
	c.image.SetRGBA(x, y, col)

	i := y*c.image.Rect.Dx() + x
	if !c.painted[i] {
		c.painted[i] = true
		c.pixelsLeft--
	}
}

// PaintLine draws the segment from (x0, y0) to (x1, y1), both ends included, with Bresenham's algorithm.
func (c *Canvas) PaintLine(x0 int, y0 int, x1 int, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		c.Paint(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Canvas) Encode(w io.Writer) error {
	return png.Encode(w, c.image)
}

// Save writes the canvas as a PNG. The file only appears once encoding has fully succeeded.
func (c *Canvas) Save(fileName string) error {
	return misc.WriteFileAtomic(fileName, c.Encode)
}
