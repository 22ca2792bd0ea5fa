// Package gradient renders a horizontal strip through a cyclic palette, one vertical line per column, to preview how
// escape times will be shaded.
package gradient

import (
	"SmoothMandelbrot/canvas"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/palette"
	"fmt"
	"image/color"

	"github.com/BrugadaSyndrome/bslogger"
)

type Settings struct {
	ColorDensity  float64
	Density       float64
	FileName      string
	Height        uint
	MaxIterations uint
	Width         uint
}

func (s *Settings) Verify() error {
	if !(s.ColorDensity > 0) {
		s.ColorDensity = 6.0
	}
	if !(s.Density > 0) {
		s.Density = 4.0
	}
	if s.FileName == "" {
		s.FileName = "gradient.png"
	}
	if s.Height == 0 {
		s.Height = 50
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 1000
	}
	if s.Width == 0 {
		s.Width = 4008
	}
	return nil
}

func (s *Settings) String() string {
	return fmt.Sprintf("{Gradient %dx%d Density: %g Color Density: %g Max Iterations: %d File: %s}",
		s.Width, s.Height, s.Density, s.ColorDensity, s.MaxIterations, s.FileName)
}

type Strip struct {
	logger   bslogger.Logger
	palette  palette.Palette
	settings Settings
}

// NewStrip expects verified settings. The palette is sampled cyclically.
func NewStrip(settings Settings, p palette.Palette) Strip {
	return Strip{
		logger:   bslogger.NewLogger("Gradient", misc.Verbosity, nil),
		palette:  p,
		settings: settings,
	}
}

// Shade colors an iteration count: black once the count reaches the iteration budget, otherwise the palette sampled
// at iteration/ColorDensity.
func (s *Strip) Shade(iteration float64) color.RGBA {
	if iteration >= float64(s.settings.MaxIterations) {
		return palette.Black
	}
	return s.palette.Cyclic(iteration / s.settings.ColorDensity)
}

// ColumnColor is the color of column x of the strip.
func (s *Strip) ColumnColor(x uint) color.RGBA {
	return s.Shade(float64(x) / s.settings.Density)
}

func (s *Strip) Render() *canvas.Canvas {
	c := canvas.NewCanvas(s.settings.Width, s.settings.Height)
	var x uint
	for x = 0; x < s.settings.Width; x++ {
		c.PaintLine(int(x), 0, int(x), int(s.settings.Height), s.ColumnColor(x))
	}
	return c
}

// RenderToFile renders the strip and writes it to path.
func (s *Strip) RenderToFile(path string) error {
	s.logger.Infof("Rendering %s", s.settings.String())
	c := s.Render()
	if err := c.Save(path); err != nil {
		return err
	}
	s.logger.Infof("Saved gradient to %s", path)
	return nil
}
