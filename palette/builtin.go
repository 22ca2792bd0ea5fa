package palette

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Anchors of the 16 entry gradient, credited to MHeasell's fmandel.
var gradientHex = []string{
	"#07005D", "#111987", "#1E4AAC", "#4376CD",
	"#86AFE1", "#D0E8F7", "#EDE7BE", "#F5C95A",
	"#FDA801", "#C88101", "#945400", "#643101",
	"#421206", "#0E030E", "#050026", "#050047",
}

var (
	gradient  = mustPalette(gradientChannels())
	generated = mustPalette(generatedChannels())
)

// Gradient is the hand tuned 16 entry palette. It is meant to be sampled with Cyclic. The returned table is shared and
// must not be modified.
func Gradient() Palette {
	return gradient
}

// Generated is the 1002 entry palette built from analytic ramps and ending in two black entries. It is meant to be
// sampled with Clamped. The returned table is shared and must not be modified.
func Generated() Palette {
	return generated
}

func gradientChannels() [][]float64 {
	channels := make([][]float64, 0, len(gradientHex))
	for _, hex := range gradientHex {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(err)
		}
		r, g, b := c.RGB255()
		channels = append(channels, []float64{float64(r), float64(g), float64(b)})
	}
	return channels
}

func generatedChannels() [][]float64 {
	channels := make([][]float64, 0, 1002)
	add := func(r, g, b float64) {
		channels = append(channels, []float64{r, g, b, 255})
	}

	// dark blue up to cyan
	for i := 0.0; i <= 58; i++ {
		add(0, 2*i, 4*i+20)
	}
	// green climbs past 255 almost immediately and is clamped by FromChannels
	for i := 1.0; i <= 254; i++ {
		add(i, 236+math.Round(13.3684210526*i), math.Max(138-i, 0))
	}
	for i := 1.0; i <= 254; i++ {
		add(255-i, i, i)
	}
	for i := 1.0; i <= 254; i++ {
		add(i, 255, 255-i)
	}
	for i := 0.0; i <= 178; i++ {
		add(255, 255, i)
	}
	add(0, 0, 0)
	add(0, 0, 0)

	return channels
}

func mustPalette(channels [][]float64) Palette {
	p, err := FromChannels(channels)
	if err != nil {
		panic(err)
	}
	return p
}

// Black is the color of points that never escape.
var Black = color.RGBA{A: 255}
