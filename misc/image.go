package misc

import (
	"image/color"
	"math"
)

func LerpFloat64(v1 float64, v2 float64, fraction float64) float64 {
	return v1 + (v2-v1)*fraction
}

// LerpUint8 blends two channel values and truncates the result toward zero. Results outside of [0, 255] are clamped
// first so the conversion to uint8 is always well defined.
func LerpUint8(v1 uint8, v2 uint8, fraction float64) uint8 {
	return ClampChannel(LerpFloat64(float64(v1), float64(v2), fraction))
}

// ClampChannel truncates a channel value toward zero after clamping it to [0, 255]. NaN maps to 0.
func ClampChannel(value float64) uint8 {
	if !(value > 0) {
		return 0
	}
	if value >= 255 {
		return 255
	}
	return uint8(math.Trunc(value))
}

// LinearInterpolationRGBA is the one color blend used by every palette. Each channel (alpha included) is computed as
// color1 + (color2-color1)*fraction and truncated, never rounded.
func LinearInterpolationRGBA(color1 color.RGBA, color2 color.RGBA, fraction float64) color.RGBA {
	return color.RGBA{
		R: LerpUint8(color1.R, color2.R, fraction),
		G: LerpUint8(color1.G, color2.G, fraction),
		B: LerpUint8(color1.B, color2.B, fraction),
		A: LerpUint8(color1.A, color2.A, fraction),
	}
}

// AverageRGBA averages the samples channel by channel with integer division.
func AverageRGBA(samples []color.RGBA) color.RGBA {
	if len(samples) == 0 {
		return color.RGBA{}
	}

	var r, g, b, a int
	for _, sample := range samples {
		r += int(sample.R)
		g += int(sample.G)
		b += int(sample.B)
		a += int(sample.A)
	}
	divisor := len(samples)
	return color.RGBA{R: uint8(r / divisor), G: uint8(g / divisor), B: uint8(b / divisor), A: uint8(a / divisor)}
}
