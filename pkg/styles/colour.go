package styles

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"image/color"
	"math"
	"strings"

	"github.com/mazznoer/colorgrad"
	"github.com/mazznoer/csscolorparser"

	types "github.com/stronnag/kml2cot/pkg/types"
)

// ParseKMLColor decodes KML's aabbggrr hex. Six digits are read as bbggrr,
// fully opaque.
func ParseKMLColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 6 {
		s = "ff" + s
	}
	if len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("kml colour %q: want aabbggrr", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("kml colour %q: %w", s, err)
	}
	return color.RGBA{A: b[0], B: b[1], G: b[2], R: b[3]}, nil
}

func KMLColor(c color.RGBA) string {
	return fmt.Sprintf("%02x%02x%02x%02x", c.A, c.B, c.G, c.R)
}

// CoTARGB packs a colour the way CoT stores it: a signed 32 bit ARGB value.
func CoTARGB(c color.RGBA) int32 {
	return int32(uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
}

// ParseCSS accepts any CSS colour: names, #rgb, rgb(), hsl() and so on.
func ParseCSS(s string) (color.RGBA, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return fromFloat(c.R, c.G, c.B, c.A), nil
}

func fromFloat(r, g, b, a float64) color.RGBA {
	f := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.RGBA{R: f(r), G: f(g), B: f(b), A: f(a)}
}

const (
	NUM_GRAD = 20
	GRAD_RED = "red"
	GRAD_RGN = "rdylgn"
	GRAD_YOR = "ylorrd"
)

// Palette hands out colours from a gradient in NUM_GRAD+1 steps.
type Palette struct {
	name  string
	steps []color.RGBA
}

func NewPalette(name string) (*Palette, error) {
	var grad colorgrad.Gradient
	switch name {
	case GRAD_RED:
		grad = colorgrad.Reds()
	case GRAD_RGN:
		grad = colorgrad.RdYlGn()
	case GRAD_YOR:
		grad = colorgrad.YlOrRd()
	default:
		return nil, types.ConfigError("unknown gradient %q [%s,%s,%s]", name, GRAD_RED, GRAD_RGN, GRAD_YOR)
	}
	p := &Palette{name: name}
	for _, c := range grad.Colors(NUM_GRAD + 1) {
		r, g, b, _ := c.RGBA()
		p.steps = append(p.steps, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xa0})
	}
	return p, nil
}

func (p *Palette) Name() string {
	return p.name
}

// Step returns the colour at step i of NUM_GRAD.
func (p *Palette) Step(i int) color.RGBA {
	n := len(p.steps)
	if n == 0 {
		return color.RGBA{}
	}
	return p.steps[((i%n)+n)%n]
}

// ForKey maps a key, such as a folder name, to a stable step.
func (p *Palette) ForKey(key string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(key))
	return p.Step(int(h.Sum32() % (NUM_GRAD + 1)))
}
