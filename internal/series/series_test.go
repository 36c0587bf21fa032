package series

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture writes a series where position (p, f) is (p, f, -p) and the
// scalar is 10*p + f.
func writeFixture(t *testing.T, dir string, particles, frames int) (string, string) {
	t.Helper()
	pos := make([]float64, particles*frames*3)
	val := make([]float64, particles*frames)
	for p := 0; p < particles; p++ {
		for f := 0; f < frames; f++ {
			row := p*frames + f
			pos[row*3+0] = float64(p)
			pos[row*3+1] = float64(f)
			pos[row*3+2] = -float64(p)
			val[row] = float64(10*p + f)
		}
	}
	posPath := filepath.Join(dir, "run_pos.npy")
	valPath := filepath.Join(dir, "run_T.npy")
	require.NoError(t, WriteNPY(posPath, []int{particles, frames, 3}, pos))
	require.NoError(t, WriteNPY(valPath, []int{particles, frames, 1}, val))
	return posPath, valPath
}

func TestOpenAndReadFrame(t *testing.T) {
	dir := t.TempDir()
	posPath, valPath := writeFixture(t, dir, 5, 4)

	s, err := Open(posPath, valPath)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 5, s.Particles())
	assert.Equal(t, 4, s.Frames())

	pos, vals, err := s.Frame(2, nil, nil)
	require.NoError(t, err)
	require.Len(t, pos, 5)
	require.Len(t, vals, 5)
	for p := 0; p < 5; p++ {
		assert.Equal(t, [3]float64{float64(p), 2, -float64(p)}, pos[p])
		assert.Equal(t, float64(10*p+2), vals[p])
	}

	// Buffers are reused.
	pos2, vals2, err := s.Frame(3, pos, vals)
	require.NoError(t, err)
	assert.Same(t, &pos[0], &pos2[0])
	assert.Same(t, &vals[0], &vals2[0])
	assert.Equal(t, 43.0, vals2[4])

	_, _, err = s.Frame(4, nil, nil)
	assert.ErrorIs(t, err, ErrFrameRange)
}

func TestFrameAllocationsIndependentOfParticles(t *testing.T) {
	posPath, valPath := writeFixture(t, t.TempDir(), 200, 3)
	s, err := Open(posPath, valPath)
	require.NoError(t, err)
	defer s.Close()

	pos, vals, err := s.Frame(0, nil, nil)
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(10, func() {
		if _, _, err := s.Frame(1, pos, vals); err != nil {
			t.Fatal(err)
		}
	})
	assert.LessOrEqual(t, allocs, 4.0, "reading a frame should not allocate per particle")
}

func TestReadFloatsBufReuse(t *testing.T) {
	posPath, _ := writeFixture(t, t.TempDir(), 4, 2)
	a, err := OpenArray(posPath)
	require.NoError(t, err)
	defer a.Close()

	dst := make([]float64, 3)
	buf, err := a.ReadFloatsBuf(dst, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, dst)
	assert.Len(t, buf, 24)

	again, err := a.ReadFloatsBuf(dst, 6, buf)
	require.NoError(t, err)
	assert.Same(t, &buf[0], &again[0])
	assert.Equal(t, []float64{1, 0, -1}, dst)
}

func TestOpenShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	posPath := filepath.Join(dir, "a_pos.npy")
	valPath := filepath.Join(dir, "a_T.npy")
	require.NoError(t, WriteNPY(posPath, []int{2, 3, 3}, make([]float64, 18)))
	require.NoError(t, WriteNPY(valPath, []int{2, 4, 1}, make([]float64, 8)))

	_, err := Open(posPath, valPath)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestOpenArrayFloat32BigEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f4.npy")
	header := "{'descr': '>f4', 'fortran_order': False, 'shape': (3,), }"
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	buf := append([]byte("\x93NUMPY\x01\x00"), 0, 0)
	binary.LittleEndian.PutUint16(buf[8:], uint16(len(header)))
	buf = append(buf, header...)
	for _, v := range []float32{1.5, -2, 1e8} {
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
	}
	require.NoError(t, os.WriteFile(path, buf, 0644))

	a, err := OpenArray(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []int{3}, a.Shape())
	got := make([]float64, 3)
	require.NoError(t, a.ReadFloats(got, 0))
	assert.Equal(t, []float64{1.5, -2, 1e8}, got)
}

func TestOpenArrayMalformed(t *testing.T) {
	dir := t.TempDir()

	notNpy := filepath.Join(dir, "bad.npy")
	require.NoError(t, os.WriteFile(notNpy, []byte("definitely not numpy"), 0644))
	_, err := OpenArray(notNpy)
	assert.ErrorIs(t, err, ErrFormat)

	truncated := filepath.Join(dir, "short.npy")
	require.NoError(t, WriteNPY(truncated, []int{4}, []float64{1, 2, 3, 4}))
	data, err := os.ReadFile(truncated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-8], 0644))
	_, err = OpenArray(truncated)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_T.npy", "a_T.npy", "a_pos.npy", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	got, err := Find(dir, "T")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_T.npy"), got)

	_, err = Find(dir, "P")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDataFile))
	assert.Contains(t, err.Error(), "no data file found for variable P")

	posPath, varPath, err := Locate(dir, Temperature)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_pos.npy"), posPath)
	assert.Equal(t, filepath.Join(dir, "a_T.npy"), varPath)
}

func TestParseVariable(t *testing.T) {
	tests := []struct {
		in   string
		want Variable
		code string
	}{
		{"temperature", Temperature, "T"},
		{"T", Temperature, "T"},
		{"Pressure", Pressure, "P"},
		{"p", Pressure, "P"},
	}
	for _, tt := range tests {
		v, err := ParseVariable(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v)
		assert.Equal(t, tt.code, v.Code())
	}

	_, err := ParseVariable("density")
	assert.ErrorIs(t, err, ErrVariable)
}

func TestOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "render"), OutputDir("/data/assets/"))
	assert.Equal(t, filepath.Join("/data", "render"), OutputDir("/data/assets"))
}

func TestSynthesize(t *testing.T) {
	dir := t.TempDir()
	cfg := SynthConfig{Name: "demo", Particles: 50, Frames: 3, Radius: 1e8, Seed: 3}
	require.NoError(t, Synthesize(dir, cfg))

	for _, v := range []Variable{Temperature, Pressure} {
		posPath, varPath, err := Locate(dir, v)
		require.NoError(t, err)
		s, err := Open(posPath, varPath)
		require.NoError(t, err)
		assert.Equal(t, 50, s.Particles())
		assert.Equal(t, 3, s.Frames())
		_, vals, err := s.Frame(1, nil, nil)
		require.NoError(t, err)
		for _, x := range vals {
			assert.Greater(t, x, 0.0)
		}
		require.NoError(t, s.Close())
	}
}
