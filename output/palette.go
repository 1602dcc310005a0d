package output

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/colornames"
)

// Palette maps values in [Min, Max] onto evenly spaced colour stops, the way
// the platform's visualization parameters do.
type Palette struct {
	Min    float64
	Max    float64
	Colors []color.RGBA
}

func NewPalette(min, max float64, names []string) (*Palette, error) {
	if max <= min {
		return nil, fmt.Errorf("palette max %v must be greater than min %v", max, min)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("palette needs at least one colour")
	}
	colors := make([]color.RGBA, 0, len(names))
	for _, name := range names {
		c, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return &Palette{Min: min, Max: max, Colors: colors}, nil
}

// ParseColor accepts CSS colour names and hex codes with or without '#'.
func ParseColor(s string) (color.RGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}

	code := strings.TrimPrefix(name, "#")
	if len(code) == 3 {
		code = string([]byte{code[0], code[0], code[1], code[1], code[2], code[2]})
	}
	if len(code) == 6 {
		b, err := hex.DecodeString(code)
		if err == nil {
			return color.RGBA{R: b[0], G: b[1], B: b[2], A: 255}, nil
		}
	}
	return color.RGBA{}, fmt.Errorf("unknown colour %q", s)
}

func (p *Palette) At(v float64) color.RGBA {
	if len(p.Colors) == 1 || math.IsNaN(v) {
		return p.Colors[0]
	}

	t := (v - p.Min) / (p.Max - p.Min)
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(p.Colors)-1)
	i := int(math.Floor(pos))
	if i >= len(p.Colors)-1 {
		return p.Colors[len(p.Colors)-1]
	}
	frac := pos - float64(i)
	a, b := p.Colors[i], p.Colors[i+1]
	return color.RGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// LegendLabels returns the min, half of max and max labels under the colour
// bar. The middle label rounds half up.
func (p *Palette) LegendLabels() [3]string {
	return [3]string{
		formatLabel(p.Min),
		fmt.Sprintf("%.0f", math.Floor(p.Max/2+0.5)),
		formatLabel(p.Max),
	}
}

func formatLabel(v float64) string {
	return fmt.Sprintf("%g", v)
}
