package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/givis/internal/frame"
)

// LineReporter prints one status line per frame, at most every interval.
// The last frame of a run is always printed.
type LineReporter struct {
	w        io.Writer
	total    int
	interval time.Duration
	last     time.Time
	seen     int
}

func NewLineReporter(w io.Writer, total int, interval time.Duration) *LineReporter {
	return &LineReporter{w: w, total: total, interval: interval}
}

func (r *LineReporter) OnFrame(s frame.Stats) {
	r.seen++
	if r.seen < r.total && time.Since(r.last) < r.interval {
		return
	}
	r.last = time.Now()
	fmt.Fprintf(r.w, "frame %04d  %d/%d  particles=%d classes=%d  %s\n",
		s.Index, r.seen, r.total, s.Particles, s.Groups, s.Elapsed.Round(time.Millisecond))
}
