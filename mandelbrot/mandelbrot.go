package mandelbrot

import (
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/palette"
	"SmoothMandelbrot/task"
	"image/color"
	"math"
)

type Point struct {
	X float64
	Y float64
}

// Escape is the outcome of iterating one point. Escaped is false for points that stayed bounded for the whole
// iteration budget, in which case Smoothed carries no meaning.
type Escape struct {
	Escaped    bool
	Iterations int
	Smoothed   float64
}

type Mandelbrot struct {
	mathLog2 float64
	mode     palette.Mode
	settings Settings
	xScale   float64
	yScale   float64
}

// NewMandelbrot expects settings that already went through Verify.
func NewMandelbrot(settings Settings) Mandelbrot {
	mandelbrot := Mandelbrot{
		mathLog2: math.Log(2),
		mode:     settings.Mode(),
		settings: settings,
		xScale:   float64(settings.Width) / (settings.XMax - settings.XMin),
		yScale:   float64(settings.Height) / (settings.YMax - settings.YMin),
	}

	return mandelbrot
}

func (m *Mandelbrot) Settings() Settings {
	return m.settings
}

// GetPointsToCalculate returns the plane points sampled for one pixel, a SuperSampling x SuperSampling grid centered on
// the pixel's corner coordinate.
func (m *Mandelbrot) GetPointsToCalculate(coordinate task.Coordinate) []Point {
	subPixels := make([]float64, m.settings.SuperSampling)
	subPixels[0] = 0

	if m.settings.SuperSampling > 1 {
		// Using grid super sampling
		for i := 0; i < m.settings.SuperSampling; i++ {
			subPixels[i] = ((0.5 + float64(i)) / float64(m.settings.SuperSampling)) - 0.5
		}
	}

	points := make([]Point, 0, len(subPixels)*len(subPixels))
	for _, sx := range subPixels {
		for _, sy := range subPixels {
			x, y := m.ConvertPixelCoordinateToComplexCoordinate(coordinate, sx, sy)
			points = append(points, Point{X: x, Y: y})
		}
	}
	return points
}

func (m *Mandelbrot) EscapeTimeMultiple(points []Point) []Escape {
	escapes := make([]Escape, len(points))
	for i, v := range points {
		escapes[i] = m.EscapeTime(v.X, v.Y)
	}
	return escapes
}

func (m *Mandelbrot) GetColorMultiple(escapes []Escape) color.RGBA {
	if len(escapes) == 1 {
		return m.GetColor(escapes[0])
	}

	colorSamples := make([]color.RGBA, len(escapes))
	for i, escape := range escapes {
		colorSamples[i] = m.GetColor(escape)
	}
	return misc.AverageRGBA(colorSamples)
}

// GetPixelColor runs the whole pipeline for one pixel.
func (m *Mandelbrot) GetPixelColor(coordinate task.Coordinate) color.RGBA {
	return m.GetColorMultiple(m.EscapeTimeMultiple(m.GetPointsToCalculate(coordinate)))
}

func (m *Mandelbrot) GetColor(escape Escape) color.RGBA {
	if !escape.Escaped {
		return m.settings.EscapeColor
	}
	index := escape.Smoothed
	if m.mode == palette.Cyclic {
		index /= m.settings.ColorDensity
	}
	return m.settings.Palette.Sample(m.mode, index)
}

// https://en.wikipedia.org/wiki/Plotting_algorithms_for_the_Mandelbrot_set#Optimized_escape_time_algorithms
func (m *Mandelbrot) EscapeTime(x float64, y float64) Escape {
	zx, zy, magnitude := 0.0, 0.0, 0.0
	maxIterations := int(m.settings.MaxIterations)

	iteration := 0
	for ; iteration < maxIterations; iteration++ {
		xx, yy := zx*zx, zy*zy
		magnitude = xx + yy
		if magnitude >= m.settings.Bailout {
			break
		}
		zy = 2*zx*zy + y
		zx = xx - yy + x
	}
	if iteration == maxIterations {
		return Escape{Iterations: iteration}
	}

	// Calculate the normalized iteration count
	// https://en.wikipedia.org/wiki/Plotting_algorithms_for_the_Mandelbrot_set#Continuous_(smooth)_coloring
	zn := math.Log(magnitude) / 2
	if !(zn > 0) {
		// log|z| <= 0 only happens with a bailout of 1 or less; there is no smooth value to give
		return Escape{Iterations: iteration}
	}
	nu := math.Log(zn/m.mathLog2) / m.mathLog2
	smoothed := float64(iteration) + 1 - nu
	if math.IsNaN(smoothed) || math.IsInf(smoothed, 0) {
		return Escape{Iterations: iteration}
	}

	return Escape{Escaped: true, Iterations: iteration, Smoothed: smoothed}
}

// ConvertPixelCoordinateToComplexCoordinate maps the (column, row) pixel, nudged by a sub-pixel offset, onto the
// plane: re = column/xScale + XMin and im = row/yScale + YMin with xScale = Width/(XMax-XMin) and
// yScale = Height/(YMax-YMin).
func (m *Mandelbrot) ConvertPixelCoordinateToComplexCoordinate(c task.Coordinate, xOffset float64, yOffset float64) (float64, float64) {
	x := (float64(c.Column)+xOffset)/m.xScale + m.settings.XMin
	y := (float64(c.Row)+yOffset)/m.yScale + m.settings.YMin
	return x, y
}
