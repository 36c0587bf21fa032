// Package postproc rewrites finished frame images: background masking and
// legend compositing, serially or on a bounded worker pool.
package postproc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/givis/internal/colorbar"
)

var (
	ErrMode    = errors.New("postproc: concurrency must be serial or parallel")
	ErrWorkers = errors.New("postproc: worker count must be positive")
)

type Mode string

const (
	Serial   Mode = "serial"
	Parallel Mode = "parallel"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Serial, Parallel:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrMode, s)
}

// Step transforms one decoded frame in place.
type Step func(img *image.NRGBA) error

var (
	// MaskFrom is the transparent grey the capture leaves where no
	// geometry was drawn.
	MaskFrom = color.NRGBA{140, 140, 140, 0}
	MaskTo   = color.NRGBA{0, 0, 0, 255}
)

// Mask replaces every pixel exactly equal to from with to.
func Mask(from, to color.NRGBA) Step {
	return func(img *image.NRGBA) error {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if img.NRGBAAt(x, y) == from {
					img.SetNRGBA(x, y, to)
				}
			}
		}
		return nil
	}
}

// Overlay draws src over each frame with its top-left corner at offset.
func Overlay(src image.Image, offset image.Point) Step {
	return func(img *image.NRGBA) error {
		colorbar.Composite(img, src, offset)
		return nil
	}
}

// Frames lists the PNG files in dir in lexical order.
func Frames(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Apply decodes path, runs the steps in order and writes the result back.
func Apply(path string, steps ...Step) error {
	img, err := readPNG(path)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if err := step(img); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return WritePNG(path, img)
}

// Process applies steps to every path. Parallel mode runs at most workers
// files at once; the first failure cancels the files not yet started.
func Process(ctx context.Context, paths []string, mode Mode, workers int, steps ...Step) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if workers < 1 {
		return fmt.Errorf("%w: %d", ErrWorkers, workers)
	}
	if len(steps) == 0 {
		return nil
	}

	if mode == Serial {
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := Apply(p, steps...); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return Apply(p, steps...)
		})
	}
	return g.Wait()
}

func readPNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if img, ok := src.(*image.NRGBA); ok {
		return img, nil
	}
	b := src.Bounds()
	img := image.NewNRGBA(b)
	draw.Draw(img, b, src, b.Min, draw.Src)
	return img, nil
}

// FrameSize reads the dimensions of a PNG without decoding its pixels.
func FrameSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// WritePNG encodes img to path through a temporary file, so readers never
// see a partial image.
func WritePNG(path string, img image.Image) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
