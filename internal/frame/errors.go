package frame

import (
	"errors"
	"fmt"
)

var (
	ErrConfig   = errors.New("frame: invalid configuration")
	ErrCanceled = errors.New("frame: run canceled")
)

// FrameError wraps a failure with the frame and pipeline stage it
// happened in.
type FrameError struct {
	Frame   int
	Stage   string
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Stage, e.Wrapped)
}

func (e *FrameError) Unwrap() error {
	return e.Wrapped
}
