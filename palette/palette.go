// Package palette holds the anchor color tables used to color escape times, and the two ways of sampling them.
package palette

import (
	"SmoothMandelbrot/misc"
	"errors"
	"fmt"
	"image/color"
	"math"
)

var (
	ErrEmptyPalette    = errors.New("palette has no colors")
	ErrChannelCount    = errors.New("palette colors need 3 or 4 channels")
	ErrChannelMismatch = errors.New("palette colors have mismatched channel counts")
	ErrUnknownPalette  = errors.New("unknown palette")
)

// Palette is an ordered, non-empty table of anchor colors. It is never modified after construction.
type Palette []color.RGBA

// FromChannels builds a palette from channel tuples. Every tuple must have the same length, either 3 (R, G, B with an
// opaque alpha) or 4 (R, G, B, A). Channel values are clamped to [0, 255] and truncated.
func FromChannels(channels [][]float64) (Palette, error) {
	if len(channels) == 0 {
		return nil, ErrEmptyPalette
	}

	width := len(channels[0])
	if width != 3 && width != 4 {
		return nil, fmt.Errorf("%w: entry 0 has %d", ErrChannelCount, width)
	}

	p := make(Palette, len(channels))
	for i, c := range channels {
		if len(c) != width {
			return nil, fmt.Errorf("%w: entry %d has %d channels, expected %d", ErrChannelMismatch, i, len(c), width)
		}
		p[i] = color.RGBA{
			R: misc.ClampChannel(c[0]),
			G: misc.ClampChannel(c[1]),
			B: misc.ClampChannel(c[2]),
			A: 255,
		}
		if width == 4 {
			p[i].A = misc.ClampChannel(c[3])
		}
	}
	return p, nil
}

// Cyclic samples the palette as a loop: x is reduced modulo the palette length into [0, len) and the last entry blends
// back into the first.
func (p Palette) Cyclic(x float64) color.RGBA {
	length := float64(len(p))
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return p[0]
	}

	normalized := math.Mod(x, length)
	if normalized < 0 {
		normalized += length
	}
	whole := math.Floor(normalized)
	fraction := normalized - whole

	// normalized can round up to exactly length when x is a tiny negative number
	idx := int(whole) % len(p)
	return misc.LinearInterpolationRGBA(p[idx], p[(idx+1)%len(p)], fraction)
}

// Clamped samples the palette without wrapping, blending entry floor(x) with the entry after it. Indices outside of
// [0, len-1) (and NaN or infinite x) are clamped to the nearest valid entry with no blending.
func (p Palette) Clamped(x float64) color.RGBA {
	if len(p) == 1 {
		return p[0]
	}

	last := len(p) - 2
	switch {
	case math.IsNaN(x) || x < 0:
		return p[0]
	case x >= float64(last+1):
		return p[last]
	}

	whole, fraction := math.Modf(x)
	idx := int(whole)
	return misc.LinearInterpolationRGBA(p[idx], p[idx+1], fraction)
}

// Sample dispatches to Cyclic or Clamped.
func (p Palette) Sample(mode Mode, x float64) color.RGBA {
	if mode == Cyclic {
		return p.Cyclic(x)
	}
	return p.Clamped(x)
}

type Mode int

const (
	Clamped Mode = iota
	Cyclic
)

func (m Mode) String() string {
	switch m {
	case Clamped:
		return "clamped"
	case Cyclic:
		return "cyclic"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "clamped":
		return Clamped, nil
	case "cyclic":
		return Cyclic, nil
	}
	return Clamped, fmt.Errorf("unknown coloring mode %q", name)
}

// Named returns one of the built-in palettes by name.
func Named(name string) (Palette, error) {
	switch name {
	case "", "generated":
		return Generated(), nil
	case "gradient":
		return Gradient(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
}
