package palette

import (
	"SmoothMandelbrot/misc"
	"encoding/json"
	"fmt"
	"image/color"
)

// Load reads a palette from a JSON file holding an array of channel tuples, e.g. [[7, 0, 93], [17, 25, 135]].
func Load(fileName string) (Palette, error) {
	fileBytes, err := misc.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var channels [][]float64
	if err = json.Unmarshal(fileBytes, &channels); err != nil {
		return nil, fmt.Errorf("unable to parse palette %s - %w", fileName, err)
	}

	p, err := FromChannels(channels)
	if err != nil {
		return nil, fmt.Errorf("invalid palette %s - %w", fileName, err)
	}
	return p, nil
}

// Ramp describes NumberColors colors stepping linearly from StartColor towards (but not including) EndColor.
type Ramp struct {
	StartColor   color.RGBA
	EndColor     color.RGBA
	NumberColors int
}

func (r *Ramp) Generate() Palette {
	p := make(Palette, 0, r.NumberColors)
	for j := 0; j < r.NumberColors; j++ {
		fraction := float64(j) / float64(r.NumberColors)
		p = append(p, misc.LinearInterpolationRGBA(r.StartColor, r.EndColor, fraction))
	}
	return p
}

// FromRamps concatenates the ramps in order.
func FromRamps(ramps []Ramp) (Palette, error) {
	p := make(Palette, 0)
	for i := range ramps {
		if ramps[i].NumberColors < 0 {
			return nil, fmt.Errorf("ramp %d has a negative color count", i)
		}
		p = append(p, ramps[i].Generate()...)
	}
	if len(p) == 0 {
		return nil, ErrEmptyPalette
	}
	return p, nil
}
