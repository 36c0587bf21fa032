// Package colorbar draws a static log-scale legend and composites it onto
// rendered frames.
package colorbar

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/san-kum/givis/internal/colormap"
)

// Logspace returns n values evenly spaced in log10 between 10^start and
// 10^stop, inclusive.
func Logspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		e := start
		if n > 1 {
			e = start + (stop-start)*float64(i)/float64(n-1)
		}
		out[i] = math.Pow(10, e)
	}
	return out
}

// Ranges is the value table each legend spans, keyed by variable name.
var Ranges = map[string][]float64{
	"temperature": Logspace(2, 3.778, 20),
	"pressure":    Logspace(8, 12, 20),
}

type Options struct {
	Values []float64
	Label  string
	Scale  colormap.Scale
	Width  int
	Height int
	// Offset is where the legend's top-left corner lands on a frame.
	Offset image.Point
}

func DefaultOptions() Options {
	return Options{
		Values: Ranges["temperature"],
		Label:  "Temperature (K)",
		Scale:  colormap.Inferno,
		Width:  120,
		Height: 320,
	}
}

var (
	textColor = color.NRGBA{255, 255, 255, 255}
	face      = basicfont.Face7x13
)

const (
	margin   = 24
	barLeft  = 8
	barWidth = 18
	tickLen  = 4
)

// Build draws the legend on a transparent background. The bar runs from
// the smallest value at the bottom to the largest at the top.
func Build(opts Options) (*image.NRGBA, error) {
	if len(opts.Values) == 0 {
		return nil, fmt.Errorf("colorbar: empty value range")
	}
	lo, hi := opts.Values[0], opts.Values[0]
	for _, v := range opts.Values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if !(lo > 0) || !(hi > lo) {
		return nil, fmt.Errorf("colorbar: log range needs 0 < min < max, got [%g, %g]", lo, hi)
	}
	if opts.Height < 2*margin+2 || opts.Width < barLeft+barWidth {
		return nil, fmt.Errorf("colorbar: %dx%d is too small", opts.Width, opts.Height)
	}
	if opts.Scale == nil {
		opts.Scale = colormap.Inferno
	}

	img := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	top, bottom := margin, opts.Height-margin
	span := float64(bottom - top - 1)

	for y := top; y < bottom; y++ {
		t := float64(bottom-1-y) / span
		r, g, b := opts.Scale.At(t).Clamped().RGB255()
		c := color.NRGBA{r, g, b, 255}
		for x := barLeft; x < barLeft+barWidth; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	logLo, logSpan := math.Log10(lo), math.Log10(hi)-math.Log10(lo)
	for _, v := range ticks(lo, hi) {
		y := bottom - 1 - int(math.Round((math.Log10(v)-logLo)/logSpan*span))
		for x := barLeft + barWidth; x < barLeft+barWidth+tickLen; x++ {
			img.SetNRGBA(x, y, textColor)
		}
		drawText(img, barLeft+barWidth+tickLen+3, y+4, formatTick(v))
	}
	drawText(img, barLeft, top-8, opts.Label)
	return img, nil
}

// ticks returns the decades within [lo, hi], or the endpoints when the
// range holds fewer than two decades.
func ticks(lo, hi float64) []float64 {
	var out []float64
	for e := math.Ceil(math.Log10(lo)); e <= math.Floor(math.Log10(hi)); e++ {
		out = append(out, math.Pow(10, e))
	}
	if len(out) < 2 {
		out = []float64{lo, hi}
	}
	return out
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'e', 0, 64)
}

func drawText(img draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// Composite alpha-blends legend onto dst with its top-left corner at
// offset.
func Composite(dst draw.Image, legend image.Image, offset image.Point) {
	b := legend.Bounds()
	draw.Draw(dst, b.Sub(b.Min).Add(offset), legend, b.Min, draw.Over)
}
