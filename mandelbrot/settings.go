package mandelbrot

import (
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/palette"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/BrugadaSyndrome/bslogger"
)

var ErrInvalidBounds = errors.New("invalid plane bounds")

type Settings struct {
	logger bslogger.Logger

	Bailout       float64
	Coloring      string
	ColorDensity  float64
	EscapeColor   color.RGBA
	Height        uint
	MaxIterations uint
	Palette       palette.Palette
	PaletteFile   string
	PaletteName   string
	PaletteRamps  []palette.Ramp
	SuperSampling int
	Width         uint
	XMax          float64
	XMin          float64
	YMax          float64
	YMin          float64
}

// Verify fills in defaults for every unset value and resolves the palette. It fails on settings that cannot produce an
// image, such as an empty plane or a malformed palette.
func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("MandelbrotSettings", misc.Verbosity, nil)

	if !(s.Bailout > 0) || math.IsInf(s.Bailout, 0) {
		s.Bailout = 65536
	}
	if s.Bailout < 65536 {
		s.logger.Warningf("Bailout %g is below 2^16, smoothing will band", s.Bailout)
	}
	mode, err := palette.ParseMode(s.Coloring)
	if err != nil {
		return err
	}
	s.Coloring = mode.String()
	if !(s.ColorDensity > 0) {
		s.ColorDensity = 6.0
	}
	if s.EscapeColor == (color.RGBA{}) {
		s.EscapeColor = palette.Black
	}
	if s.Height == 0 {
		s.Height = 1080
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 1000
	}
	if s.SuperSampling < 1 {
		s.SuperSampling = 1
	}
	if s.Width == 0 {
		s.Width = 1920
	}
	if s.XMin == 0 && s.XMax == 0 {
		s.XMin, s.XMax = -2.5, 1
	}
	if s.YMin == 0 && s.YMax == 0 {
		s.YMin, s.YMax = -1, 1
	}
	if !(s.XMax > s.XMin) || !(s.YMax > s.YMin) {
		return fmt.Errorf("%w: re [%g, %g] im [%g, %g]", ErrInvalidBounds, s.XMin, s.XMax, s.YMin, s.YMax)
	}

	// A palette sent along with the settings (workers) wins over the names used to build it
	if len(s.Palette) == 0 {
		switch {
		case s.PaletteFile != "":
			s.Palette, err = palette.Load(s.PaletteFile)
		case len(s.PaletteRamps) > 0:
			s.Palette, err = palette.FromRamps(s.PaletteRamps)
		default:
			if s.PaletteName == "" && mode == palette.Cyclic {
				s.PaletteName = "gradient"
			}
			s.Palette, err = palette.Named(s.PaletteName)
		}
		if err != nil {
			return err
		}
	}

	if mode == palette.Clamped && float64(len(s.Palette)) < float64(s.MaxIterations)+2 {
		s.logger.Warningf("Palette has %d colors but escape times reach %d, the tail will be clamped", len(s.Palette), s.MaxIterations)
	}

	return nil
}

func (s *Settings) Mode() palette.Mode {
	mode, _ := palette.ParseMode(s.Coloring)
	return mode
}

func (s *Settings) String() string {
	output := "\nMandelbrot settings\n"
	output += fmt.Sprintf("Bailout: %g\n", s.Bailout)
	output += fmt.Sprintf("Bounds: re [%g, %g] im [%g, %g]\n", s.XMin, s.XMax, s.YMin, s.YMax)
	output += fmt.Sprintf("Coloring: %s\n", s.Coloring)
	output += fmt.Sprintf("Color Density: %g\n", s.ColorDensity)
	output += fmt.Sprintf("Escape Color: %v\n", s.EscapeColor)
	output += fmt.Sprintf("Max Iterations: %d\n", s.MaxIterations)
	output += fmt.Sprintf("Palette Colors: %d\n", len(s.Palette))
	output += fmt.Sprintf("Size: %dx%d\n", s.Width, s.Height)
	output += fmt.Sprintf("Super Sampling: %d\n", s.SuperSampling)
	return output
}
