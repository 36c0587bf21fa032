package series

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"
)

var npyMagic = []byte("\x93NUMPY")

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// Array is a read-only, memory-mapped C-order float array.
type Array struct {
	r        *mmap.ReaderAt
	shape    []int
	order    binary.ByteOrder
	itemSize int
	offset   int64
}

// OpenArray maps an .npy file holding float32 or float64 data.
func OpenArray(path string) (*Array, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := parseHeader(r, path)
	if err != nil {
		r.Close()
		return nil, err
	}
	return a, nil
}

func parseHeader(r *mmap.ReaderAt, path string) (*Array, error) {
	pre := make([]byte, 12)
	if _, err := r.ReadAt(pre[:10], 0); err != nil {
		return nil, fmt.Errorf("%w: %s: short preamble", ErrFormat, path)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, fmt.Errorf("%w: %s: bad magic", ErrFormat, path)
	}

	var headerLen, start int64
	switch major := pre[6]; major {
	case 1:
		headerLen = int64(binary.LittleEndian.Uint16(pre[8:10]))
		start = 10
	case 2, 3:
		if _, err := r.ReadAt(pre[10:12], 10); err != nil {
			return nil, fmt.Errorf("%w: %s: short preamble", ErrFormat, path)
		}
		headerLen = int64(binary.LittleEndian.Uint32(pre[8:12]))
		start = 12
	default:
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrFormat, path, major)
	}

	header := make([]byte, headerLen)
	if _, err := r.ReadAt(header, start); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	h := string(header)

	a := &Array{r: r, offset: start + headerLen}

	m := descrRe.FindStringSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("%w: %s: missing descr", ErrFormat, path)
	}
	if err := a.setDType(m[1]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}

	if m := fortranRe.FindStringSubmatch(h); m == nil || m[1] != "False" {
		return nil, fmt.Errorf("%w: %s: only C-order arrays are supported", ErrFormat, path)
	}

	m = shapeRe.FindStringSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("%w: %s: missing shape", ErrFormat, path)
	}
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s: bad dimension %q", ErrFormat, path, f)
		}
		a.shape = append(a.shape, n)
	}

	want := a.offset + int64(a.Size())*int64(a.itemSize)
	if int64(r.Len()) < want {
		return nil, fmt.Errorf("%w: %s: truncated data (%d of %d bytes)", ErrFormat, path, r.Len(), want)
	}
	return a, nil
}

func (a *Array) setDType(descr string) error {
	if len(descr) != 3 {
		return fmt.Errorf("unsupported dtype %q", descr)
	}
	switch descr[0] {
	case '<', '=':
		a.order = binary.LittleEndian
	case '>':
		a.order = binary.BigEndian
	default:
		return fmt.Errorf("unsupported byte order in %q", descr)
	}
	switch descr[1:] {
	case "f8":
		a.itemSize = 8
	case "f4":
		a.itemSize = 4
	default:
		return fmt.Errorf("unsupported dtype %q", descr)
	}
	return nil
}

func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Size is the total element count.
func (a *Array) Size() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

func (a *Array) Close() error { return a.r.Close() }

// ReadFloats fills dst with len(dst) consecutive elements starting at the
// flat element index off.
func (a *Array) ReadFloats(dst []float64, off int) error {
	_, err := a.ReadFloatsBuf(dst, off, nil)
	return err
}

// ReadFloatsBuf is ReadFloats with a caller-owned byte buffer. It returns
// the buffer, grown if it was too small, for the next call.
func (a *Array) ReadFloatsBuf(dst []float64, off int, buf []byte) ([]byte, error) {
	if off < 0 || off+len(dst) > a.Size() {
		return buf, fmt.Errorf("%w: elements [%d,%d) of %d", ErrFrameRange, off, off+len(dst), a.Size())
	}
	n := len(dst) * a.itemSize
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	if _, err := a.r.ReadAt(buf, a.offset+int64(off*a.itemSize)); err != nil && err != io.EOF {
		return buf, err
	}
	for i := range dst {
		b := buf[i*a.itemSize:]
		if a.itemSize == 8 {
			dst[i] = math.Float64frombits(a.order.Uint64(b))
		} else {
			dst[i] = float64(math.Float32frombits(a.order.Uint32(b)))
		}
	}
	return buf, nil
}

// WriteNPY writes data as a little-endian float64 C-order .npy file.
func WriteNPY(path string, shape []int, data []float64) error {
	n := 1
	dims := make([]string, len(shape))
	for i, d := range shape {
		n *= d
		dims[i] = strconv.Itoa(d)
	}
	if n != len(data) {
		return fmt.Errorf("%w: shape %v holds %d elements, got %d", ErrShapeMismatch, shape, n, len(data))
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}

	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shapeStr)
	// Preamble plus header is padded to a multiple of 64 and ends in '\n'.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var pre [10]byte
	copy(pre[:], npyMagic)
	pre[6], pre[7] = 1, 0
	binary.LittleEndian.PutUint16(pre[8:], uint16(len(header)))
	if _, err := f.Write(pre[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(f, header); err != nil {
		return err
	}

	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	if _, err := f.Write(buf); err != nil {
		return err
	}
	return f.Close()
}
