package series

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Series is an immutable handle on a positions array and a scalar array.
type Series struct {
	pos       *Array
	val       *Array
	particles int
	frames    int
	channels  int
}

// Open maps both arrays and checks that they describe the same particles
// and frames.
func Open(posPath, varPath string) (*Series, error) {
	pos, err := OpenArray(posPath)
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	val, err := OpenArray(varPath)
	if err != nil {
		pos.Close()
		return nil, fmt.Errorf("open scalar field: %w", err)
	}
	s, err := newSeries(pos, val)
	if err != nil {
		pos.Close()
		val.Close()
		return nil, err
	}
	return s, nil
}

func newSeries(pos, val *Array) (*Series, error) {
	ps, vs := pos.shape, val.shape
	if len(ps) != 3 || ps[2] != 3 {
		return nil, fmt.Errorf("%w: positions must be (particles, frames, 3), got %v", ErrShapeMismatch, ps)
	}
	channels := 1
	switch {
	case len(vs) == 3:
		channels = vs[2]
	case len(vs) != 2:
		return nil, fmt.Errorf("%w: scalar field must be (particles, frames, 1), got %v", ErrShapeMismatch, vs)
	}
	if channels < 1 || vs[0] != ps[0] || vs[1] != ps[1] {
		return nil, fmt.Errorf("%w: positions %v, scalar field %v", ErrShapeMismatch, ps, vs)
	}
	return &Series{pos: pos, val: val, particles: ps[0], frames: ps[1], channels: channels}, nil
}

func (s *Series) Particles() int { return s.particles }
func (s *Series) Frames() int    { return s.frames }

// Frame copies frame i into pos and vals, reusing their storage when large
// enough, and returns the filled slices. The scalar is channel 0.
func (s *Series) Frame(i int, pos [][3]float64, vals []float64) ([][3]float64, []float64, error) {
	if i < 0 || i >= s.frames {
		return nil, nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameRange, i, s.frames)
	}
	if cap(pos) < s.particles {
		pos = make([][3]float64, s.particles)
	}
	if cap(vals) < s.particles {
		vals = make([]float64, s.particles)
	}
	pos, vals = pos[:s.particles], vals[:s.particles]

	var xyz [3]float64
	var v [1]float64
	buf := make([]byte, 3*8)
	var err error
	for p := 0; p < s.particles; p++ {
		row := p*s.frames + i
		if buf, err = s.pos.ReadFloatsBuf(xyz[:], row*3, buf); err != nil {
			return nil, nil, err
		}
		if buf, err = s.val.ReadFloatsBuf(v[:], row*s.channels, buf); err != nil {
			return nil, nil, err
		}
		pos[p] = xyz
		vals[p] = v[0]
	}
	return pos, vals, nil
}

func (s *Series) Close() error {
	err := s.pos.Close()
	if verr := s.val.Close(); err == nil {
		err = verr
	}
	return err
}

// PositionCode names the positions file suffix.
const PositionCode = "pos"

// Find returns the first file in dir, in lexical order, matching
// *_<code>.npy.
func Find(dir, code string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+code+".npy"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w for variable %s in %s", ErrNoDataFile, code, dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Variable is the scalar field to color by.
type Variable string

const (
	Temperature Variable = "temperature"
	Pressure    Variable = "pressure"
)

// ParseVariable accepts the full name or its first letter, in any case.
func ParseVariable(s string) (Variable, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temperature", "t":
		return Temperature, nil
	case "pressure", "p":
		return Pressure, nil
	}
	return "", fmt.Errorf("%w: %q (want temperature|t|pressure|p)", ErrVariable, s)
}

// Code is the file suffix for the variable.
func (v Variable) Code() string {
	if v == Pressure {
		return "P"
	}
	return "T"
}

func (v Variable) Label() string {
	if v == Pressure {
		return "Pressure (Ba)"
	}
	return "Temperature (K)"
}

// Locate finds the positions file and the file for v under dir.
func Locate(dir string, v Variable) (posPath, varPath string, err error) {
	if posPath, err = Find(dir, PositionCode); err != nil {
		return "", "", err
	}
	if varPath, err = Find(dir, v.Code()); err != nil {
		return "", "", err
	}
	return posPath, varPath, nil
}

// OutputDir is the default frame directory: "render" next to dataDir.
func OutputDir(dataDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(dataDir)), "render")
}
