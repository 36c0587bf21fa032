// Package colormap samples continuous color scales into fixed lookup tables.
package colormap

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	ErrUnknownScale = errors.New("colormap: unknown color scale")
	ErrBins         = errors.New("colormap: bin count must be positive")
)

// Scale maps a parameter in [0, 1] to a color.
type Scale interface {
	At(t float64) colorful.Color
}

// Stop is one keypoint of a Gradient.
type Stop struct {
	Col colorful.Color
	Pos float64
}

// Gradient is a Scale that blends linearly in sRGB between sorted stops.
type Gradient []Stop

func (g Gradient) At(t float64) colorful.Color {
	if len(g) == 0 {
		return colorful.Color{}
	}
	if t <= g[0].Pos {
		return g[0].Col
	}
	for i := 0; i < len(g)-1; i++ {
		c1, c2 := g[i], g[i+1]
		if c1.Pos <= t && t <= c2.Pos {
			f := (t - c1.Pos) / (c2.Pos - c1.Pos)
			return c1.Col.BlendRgb(c2.Col, f).Clamped()
		}
	}
	return g[len(g)-1].Col
}

// EvenGradient spaces hex colors evenly over [0, 1].
func EvenGradient(hexes ...string) Gradient {
	g := make(Gradient, len(hexes))
	for i, h := range hexes {
		pos := 0.0
		if len(hexes) > 1 {
			pos = float64(i) / float64(len(hexes)-1)
		}
		g[i] = Stop{Col: MustParseHex(h), Pos: pos}
	}
	return g
}

func MustParseHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("MustParseHex: " + err.Error())
	}
	return c
}

// Table is a fixed list of colors sampled from a Scale. It is read-only
// once built.
type Table struct {
	colors []color.NRGBA
}

// NewTable samples scale at bins evenly spaced points over [0, 1],
// endpoints included.
func NewTable(scale Scale, bins int) (*Table, error) {
	if bins < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBins, bins)
	}
	t := &Table{colors: make([]color.NRGBA, bins)}
	for i := range t.colors {
		x := 0.0
		if bins > 1 {
			x = float64(i) / float64(bins-1)
		}
		t.colors[i] = toNRGBA(scale.At(x))
	}
	return t, nil
}

func (t *Table) Len() int { return len(t.colors) }

// At returns the j-th color. j outside the table is clamped to the nearest
// end.
func (t *Table) At(j int) color.NRGBA {
	if j < 0 {
		j = 0
	}
	if j >= len(t.colors) {
		j = len(t.colors) - 1
	}
	return t.colors[j]
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
