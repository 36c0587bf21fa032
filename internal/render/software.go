package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// Lens and sensor width in millimetres of the default perspective camera.
const (
	lensMM   = 50.0
	sensorMM = 36.0
	near     = 0.1
)

// Camera is a perspective camera looking down its local -Z axis.
type Camera struct {
	Location Vec3
	Rotation Vec3
}

// toCamera expresses world point p in camera coordinates by undoing the
// XYZ Euler rotation (applied as Rz*Ry*Rx) in reverse order.
func (c Camera) toCamera(p Vec3) Vec3 {
	d := p.Sub(c.Location)
	cz, sz := math.Cos(-c.Rotation.Z), math.Sin(-c.Rotation.Z)
	d.X, d.Y = d.X*cz-d.Y*sz, d.X*sz+d.Y*cz
	cy, sy := math.Cos(-c.Rotation.Y), math.Sin(-c.Rotation.Y)
	d.X, d.Z = d.X*cy+d.Z*sy, -d.X*sy+d.Z*cy
	cx, sx := math.Cos(-c.Rotation.X), math.Sin(-c.Rotation.X)
	d.Y, d.Z = d.Y*cx-d.Z*sx, d.Y*sx+d.Z*cx
	return d
}

// Project converts a world point to pixel coordinates and depth along the
// view axis. ok is false for points behind the near plane or off screen.
func (c Camera) Project(p Vec3, w, h int) (x, y int, depth float64, ok bool) {
	q := c.toCamera(p)
	depth = -q.Z
	if depth <= near {
		return 0, 0, depth, false
	}
	f := lensMM / sensorMM * float64(max(w, h))
	fx := float64(w)/2 + q.X/depth*f
	fy := float64(h)/2 - q.Y/depth*f
	x, y = int(math.Floor(fx)), int(math.Floor(fy))
	return x, y, depth, x >= 0 && x < w && y >= 0 && y < h
}

type group struct {
	positions [][3]float64
	color     color.NRGBA
}

// Software splats point groups onto an image with a painter's algorithm.
// It is not safe for concurrent use.
type Software struct {
	opts   Options
	camera Camera
	groups []group
}

func NewSoftware(opts Options) *Software {
	if opts.PointSize < 1 {
		opts.PointSize = 1
	}
	return &Software{
		opts:   opts,
		camera: Camera{Location: DefaultCameraLocation, Rotation: DefaultCameraRotation},
	}
}

func (s *Software) Reset() error {
	s.groups = nil
	return nil
}

func (s *Software) AddColoredPointGroup(positions [][3]float64, c color.NRGBA) (Handle, error) {
	s.groups = append(s.groups, group{positions: positions, color: c})
	return Handle(len(s.groups) - 1), nil
}

func (s *Software) SetResolution(width, height int) error {
	if err := checkResolution(width, height); err != nil {
		return err
	}
	s.opts.Width, s.opts.Height = width, height
	return nil
}

func (s *Software) SetCamera(location, rotation Vec3) error {
	s.camera = Camera{Location: location, Rotation: rotation}
	return nil
}

// Groups reports how many point groups the current scene holds.
func (s *Software) Groups() int { return len(s.groups) }

type splat struct {
	x, y  int
	depth float64
	color color.NRGBA
}

// Image draws the current scene.
func (s *Software) Image() *image.NRGBA {
	w, h := s.opts.Width, s.opts.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	bg := s.opts.Background
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}

	n := 0
	for _, g := range s.groups {
		n += len(g.positions)
	}
	splats := make([]splat, 0, n)
	for _, g := range s.groups {
		for _, p := range g.positions {
			x, y, d, ok := s.camera.Project(Vec3{p[0], p[1], p[2]}, w, h)
			if ok {
				splats = append(splats, splat{x, y, d, g.color})
			}
		}
	}
	// Far to near so closer points overwrite.
	sort.SliceStable(splats, func(i, j int) bool { return splats[i].depth > splats[j].depth })

	r := s.opts.PointSize - 1
	for _, sp := range splats {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r {
					continue
				}
				px, py := sp.x+dx, sp.y+dy
				if px < 0 || py < 0 || px >= w || py >= h {
					continue
				}
				img.SetNRGBA(px, py, sp.color)
			}
		}
	}
	return img
}

func (s *Software) RenderCurrentFrame(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, s.Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
