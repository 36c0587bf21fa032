package binning

import (
	"errors"
	"math/rand"
	"testing"
)

func positionsFor(n int) [][3]float64 {
	pos := make([][3]float64, n)
	for i := range pos {
		pos[i] = [3]float64{float64(i), float64(-i), float64(2 * i)}
	}
	return pos
}

func checkPartition(t *testing.T, values []float64, subsets []Subset, occupied []int, bins int) {
	t.Helper()

	if len(subsets) > bins {
		t.Errorf("expected at most %d subsets, got %d", bins, len(subsets))
	}
	if len(subsets) != len(occupied) {
		t.Fatalf("expected %d occupied indices, got %d", len(subsets), len(occupied))
	}

	seen := make(map[int]bool, len(values))
	total := 0
	prev := -1
	for j, s := range subsets {
		if s.Len() == 0 {
			t.Errorf("subset %d is empty", j)
		}
		if len(s.Positions) != len(s.Indices) {
			t.Errorf("subset %d: %d positions for %d indices", j, len(s.Positions), len(s.Indices))
		}
		if s.Bin != occupied[j] {
			t.Errorf("subset %d: bin %d, occupied %d", j, s.Bin, occupied[j])
		}
		if s.Bin <= prev {
			t.Errorf("subset %d: bins not ascending (%d after %d)", j, s.Bin, prev)
		}
		if s.Bin < 0 || s.Bin >= bins {
			t.Errorf("subset %d: bin %d out of [0,%d)", j, s.Bin, bins)
		}
		prev = s.Bin
		for _, idx := range s.Indices {
			if seen[idx] {
				t.Errorf("particle %d appears twice", idx)
			}
			seen[idx] = true
		}
		total += s.Len()
	}
	if total != len(values) {
		t.Errorf("expected %d particles across subsets, got %d", len(values), total)
	}
}

func TestPartitionFourBins(t *testing.T) {
	values := []float64{0.0, 0.0, 0.33, 0.34, 0.66, 0.67, 1.0}
	subsets, occupied, err := Partition(values, positionsFor(len(values)), 4)
	if err != nil {
		t.Fatalf("partition failed: %v", err)
	}
	checkPartition(t, values, subsets, occupied, 4)

	want := [][]int{{0, 1}, {2, 3}, {4, 5}, {6}}
	if len(subsets) != len(want) {
		t.Fatalf("expected %d subsets, got %d", len(want), len(subsets))
	}
	for j, w := range want {
		got := subsets[j].Indices
		if len(got) != len(w) {
			t.Errorf("subset %d: expected %v, got %v", j, w, got)
			continue
		}
		for k := range w {
			if got[k] != w[k] {
				t.Errorf("subset %d: expected %v, got %v", j, w, got)
				break
			}
		}
	}
}

func TestPartitionFoldsMaximum(t *testing.T) {
	values := []float64{0.1, 0.9}
	subsets, occupied, err := Partition(values, positionsFor(2), 10)
	if err != nil {
		t.Fatalf("partition failed: %v", err)
	}
	if len(occupied) != 2 || occupied[0] != 0 || occupied[1] != 9 {
		t.Errorf("expected occupied [0 9], got %v", occupied)
	}
	checkPartition(t, values, subsets, occupied, 10)
}

func TestPartitionKeepsPositions(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5}
	pos := positionsFor(3)
	subsets, _, err := Partition(values, pos, 3)
	if err != nil {
		t.Fatalf("partition failed: %v", err)
	}
	for _, s := range subsets {
		for k, idx := range s.Indices {
			if s.Positions[k] != pos[idx] {
				t.Errorf("bin %d: position %v does not match particle %d", s.Bin, s.Positions[k], idx)
			}
		}
	}
}

func TestPartitionConstantFrame(t *testing.T) {
	for _, bins := range []int{1, 2, 4, 100} {
		values := []float64{0.5, 0.5, 0.5}
		subsets, occupied, err := Partition(values, positionsFor(3), bins)
		if err != nil {
			t.Fatalf("bins=%d: partition failed: %v", bins, err)
		}
		if len(subsets) != 1 {
			t.Errorf("bins=%d: expected one subset, got %d", bins, len(subsets))
		}
		checkPartition(t, values, subsets, occupied, bins)
	}
}

func TestPartitionOccupiedMatchesHistogram(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	random := make([]float64, 64)
	for i := range random {
		random[i] = rng.Float64()
	}
	tests := []struct {
		name   string
		values []float64
		bins   int
	}{
		{"constant", []float64{2, 2, 2}, 4},
		{"constant one bin", []float64{2, 2}, 1},
		{"spread", []float64{0, 0.3, 0.3, 1}, 10},
		{"random", random, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts, _, err := Histogram(tt.values, tt.bins)
			if err != nil {
				t.Fatal(err)
			}
			var want []int
			for b, c := range counts {
				if c > 0 {
					want = append(want, b)
				}
			}

			subsets, occupied, err := Partition(tt.values, positionsFor(len(tt.values)), tt.bins)
			if err != nil {
				t.Fatal(err)
			}
			checkPartition(t, tt.values, subsets, occupied, tt.bins)
			if len(occupied) != len(want) {
				t.Fatalf("expected occupied %v, got %v", want, occupied)
			}
			for j := range want {
				if occupied[j] != want[j] {
					t.Errorf("expected occupied %v, got %v", want, occupied)
					break
				}
			}
		})
	}

	// 2 sits on the middle edge of [1.5, 2.5] split four ways.
	_, occupied, _ := Partition([]float64{2, 2, 2}, positionsFor(3), 4)
	if len(occupied) != 1 || occupied[0] != 2 {
		t.Errorf("expected constant frame in bin 2, got %v", occupied)
	}
}

func TestPartitionEmpty(t *testing.T) {
	subsets, occupied, err := Partition(nil, nil, 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(subsets) != 0 || len(occupied) != 0 {
		t.Errorf("expected nothing, got %d subsets", len(subsets))
	}
}

func TestPartitionRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(500)
		bins := 1 + rng.Intn(120)
		values := make([]float64, n)
		for i := range values {
			values[i] = rng.Float64()
			if rng.Intn(10) == 0 {
				values[i] = 1
			}
		}
		subsets, occupied, err := Partition(values, positionsFor(n), bins)
		if err != nil {
			t.Fatalf("trial %d: partition failed: %v", trial, err)
		}
		checkPartition(t, values, subsets, occupied, bins)
	}
}

func TestPartitionErrors(t *testing.T) {
	if _, _, err := Partition([]float64{1}, positionsFor(1), 0); !errors.Is(err, ErrBins) {
		t.Errorf("expected ErrBins, got %v", err)
	}
	if _, _, err := Partition([]float64{1, 2}, positionsFor(1), 4); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestHistogram(t *testing.T) {
	values := []float64{0.0, 0.0, 0.33, 0.34, 0.66, 0.67, 1.0}
	counts, edges, err := Histogram(values, 4)
	if err != nil {
		t.Fatalf("histogram failed: %v", err)
	}
	if len(edges) != 5 || edges[0] != 0 || edges[4] != 1 {
		t.Errorf("unexpected edges %v", edges)
	}
	want := []int{2, 2, 2, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("expected counts %v, got %v", want, counts)
			break
		}
	}
}
