package series

import "errors"

var (
	ErrNoDataFile    = errors.New("series: no data file found")
	ErrFormat        = errors.New("series: malformed npy file")
	ErrShapeMismatch = errors.New("series: array shapes do not match")
	ErrFrameRange    = errors.New("series: frame index out of range")
	ErrVariable      = errors.New("series: invalid variable")
)
