// Package binning partitions one frame's particles into discrete color
// classes by normalized scalar value.
//
// Bins span the observed range of the frame, not a fixed [0, 1]. Particles
// are digitized against the histogram edges and the topmost index, which
// only the frame maximum can reach, is folded into the last real bin.
// Empty bins are dropped, so every returned Subset is non-empty.
package binning

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrBins           = errors.New("binning: bin count must be positive")
	ErrLengthMismatch = errors.New("binning: values and positions differ in length")
)

// Subset is one color class of a frame.
type Subset struct {
	// Bin is the histogram bin holding the subset. It differs from the
	// folded grouping index only for a constant frame, whose single value
	// sits in the middle bin.
	Bin int
	// Indices point into the arrays passed to Partition.
	Indices   []int
	Positions [][3]float64
}

func (s Subset) Len() int { return len(s.Indices) }

// Edges returns bins+1 evenly spaced histogram edges over the range of
// values. A degenerate range is widened by 0.5 on each side.
func Edges(values []float64, bins int) []float64 {
	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = values[0], values[0]
		for _, v := range values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := make([]float64, bins+1)
	step := (hi - lo) / float64(bins)
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	edges[bins] = hi
	return edges
}

// Histogram counts values per bin over the observed range. The last bin is
// closed on the right.
func Histogram(values []float64, bins int) ([]int, []float64, error) {
	if bins < 1 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrBins, bins)
	}
	edges := Edges(values, bins)
	counts := make([]int, bins)
	for _, v := range values {
		i := digitize(v, edges)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return counts, edges, nil
}

// digitize returns i such that edges[i] <= x < edges[i+1]; values at or
// above the last edge return len(edges)-1.
func digitize(x float64, edges []float64) int {
	return sort.Search(len(edges), func(k int) bool { return edges[k] > x }) - 1
}

// Partition groups particles into color classes. values must be finite;
// positions[i] belongs to values[i]. It returns the subsets in ascending
// bin order and the matching occupied bin indices. An empty frame yields
// no subsets and no error.
func Partition(values []float64, positions [][3]float64, bins int) ([]Subset, []int, error) {
	if bins < 1 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrBins, bins)
	}
	if len(values) != len(positions) {
		return nil, nil, fmt.Errorf("%w: %d values, %d positions", ErrLengthMismatch, len(values), len(positions))
	}
	if len(values) == 0 {
		return nil, nil, nil
	}

	edges := Edges(values, bins)
	dig := make([]int, len(values))
	top := -1
	for i, v := range values {
		dig[i] = digitize(v, edges)
		if dig[i] > top {
			top = dig[i]
		}
	}

	fold := top - 1
	if fold < 0 {
		fold = 0
	}
	counts := make([]int, top+1)
	for i, d := range dig {
		if d == top {
			d = fold
			dig[i] = d
		}
		counts[d]++
	}

	subsets := make([]Subset, 0, bins)
	occupied := make([]int, 0, bins)
	slot := make([]int, len(counts))
	for b, c := range counts {
		slot[b] = -1
		if c == 0 {
			continue
		}
		slot[b] = len(subsets)
		subsets = append(subsets, Subset{
			Bin:       b,
			Indices:   make([]int, 0, c),
			Positions: make([][3]float64, 0, c),
		})
		occupied = append(occupied, b)
	}

	for i, d := range dig {
		s := &subsets[slot[d]]
		s.Indices = append(s.Indices, i)
		s.Positions = append(s.Positions, positions[i])
	}

	// A constant frame folds its one index down; the histogram keeps it.
	if top < bins {
		occupied[0] = top
		subsets[0].Bin = top
	}
	return subsets, occupied, nil
}
