// Package render defines the capabilities the frame pipeline needs from a
// 3D renderer and provides an offscreen software implementation.
//
// A Renderer holds one mutable scene. Callers add colored point groups for
// a frame, capture it, then Reset before the next frame. Reset is
// idempotent and safe to call on a fresh renderer.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

var (
	// ErrUnavailable indicates the requested rendering backend cannot be used.
	ErrUnavailable = errors.New("render: backend unavailable")

	ErrResolution = errors.New("render: invalid resolution")
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Deg builds a rotation from Euler angles given in degrees.
func Deg(x, y, z float64) Vec3 {
	return Vec3{x * math.Pi / 180, y * math.Pi / 180, z * math.Pi / 180}
}

// Handle identifies a point group within the current scene.
type Handle int

type Renderer interface {
	// Reset removes every object added since the last Reset.
	Reset() error
	AddColoredPointGroup(positions [][3]float64, c color.NRGBA) (Handle, error)
	// RenderCurrentFrame captures the scene to an image file at path.
	RenderCurrentFrame(path string) error
	SetResolution(width, height int) error
	// SetCamera places the camera; rotation is XYZ Euler angles in radians.
	SetCamera(location, rotation Vec3) error
}

// Default camera placement, looking back at the origin from above.
var (
	DefaultCameraLocation = Vec3{40, -20, 20}
	DefaultCameraRotation = Deg(63.43, 0, 63.43)
)

type Options struct {
	Width, Height int
	// PointSize is the splat radius in pixels.
	PointSize  int
	Background color.NRGBA
}

func DefaultOptions() Options {
	return Options{
		Width:      640,
		Height:     320,
		PointSize:  1,
		Background: color.NRGBA{0, 0, 0, 255},
	}
}

// Backends lists the names accepted by New.
var Backends = []string{"software", "null"}

// New returns the named backend configured with opts.
func New(backend string, opts Options) (Renderer, error) {
	var r Renderer
	switch backend {
	case "software", "":
		r = NewSoftware(opts)
	case "null":
		r = &Null{}
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnavailable, backend, Backends)
	}
	if err := r.SetResolution(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	if err := r.SetCamera(DefaultCameraLocation, DefaultCameraRotation); err != nil {
		return nil, err
	}
	return r, nil
}

func checkResolution(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrResolution, width, height)
	}
	return nil
}

// Null accepts every call and writes nothing. It counts what it was asked
// to do, which makes it useful for dry runs.
type Null struct {
	Groups   int
	Points   int
	Captures []string
	Resets   int
}

func (n *Null) Reset() error {
	n.Groups, n.Points = 0, 0
	n.Resets++
	return nil
}

func (n *Null) AddColoredPointGroup(positions [][3]float64, _ color.NRGBA) (Handle, error) {
	n.Groups++
	n.Points += len(positions)
	return Handle(n.Groups - 1), nil
}

func (n *Null) RenderCurrentFrame(path string) error {
	n.Captures = append(n.Captures, path)
	return nil
}

func (n *Null) SetResolution(width, height int) error { return checkResolution(width, height) }
func (n *Null) SetCamera(_, _ Vec3) error            { return nil }
