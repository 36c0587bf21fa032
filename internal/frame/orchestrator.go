package frame

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"github.com/san-kum/givis/internal/binning"
	"github.com/san-kum/givis/internal/colormap"
	"github.com/san-kum/givis/internal/render"
	"github.com/san-kum/givis/internal/scalar"
)

// DefaultLengthScale converts simulation distances to scene units.
const DefaultLengthScale = 7.5e7

// Source yields frames of particle positions and raw scalar values.
// *series.Series satisfies it.
type Source interface {
	Particles() int
	Frames() int
	Frame(i int, pos [][3]float64, vals []float64) ([][3]float64, []float64, error)
}

type Config struct {
	Bins        int
	Cut         bool
	LengthScale float64
	ColorByBin  bool
	OutputDir   string
	// Start, End and Stride select frames; End <= 0 means the last frame.
	Start  int
	End    int
	Stride int
}

func DefaultConfig() Config {
	return Config{Bins: 100, LengthScale: DefaultLengthScale, Stride: 1}
}

// Group is one colored point group of a frame, in scene units.
type Group struct {
	Bin       int
	Color     color.NRGBA
	Positions [][3]float64
}

// Stats summarizes one processed frame.
type Stats struct {
	Index     int
	Particles int
	Groups    int
	Occupied  []int
	Path      string
	Elapsed   time.Duration
}

type Observer interface {
	OnFrame(s Stats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Stats)

func (f ObserverFunc) OnFrame(s Stats) { f(s) }

type Result struct {
	Frames []Stats
}

type Orchestrator struct {
	src       Source
	norm      *scalar.Normalizer
	table     *colormap.Table
	renderer  render.Renderer
	cfg       Config
	observers []Observer

	pos  [][3]float64
	raw  []float64
	vals []float64
}

func New(src Source, norm *scalar.Normalizer, table *colormap.Table, r render.Renderer, cfg Config) (*Orchestrator, error) {
	if err := validateConfig(cfg, table); err != nil {
		return nil, err
	}
	if src == nil || norm == nil || r == nil {
		return nil, fmt.Errorf("%w: source, normalizer and renderer are required", ErrConfig)
	}
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	return &Orchestrator{src: src, norm: norm, table: table, renderer: r, cfg: cfg}, nil
}

func validateConfig(cfg Config, table *colormap.Table) error {
	if cfg.Bins < 1 {
		return fmt.Errorf("%w: bins must be positive, got %d", ErrConfig, cfg.Bins)
	}
	if !(cfg.LengthScale > 0) {
		return fmt.Errorf("%w: length scale must be positive, got %g", ErrConfig, cfg.LengthScale)
	}
	if cfg.Stride < 0 || cfg.Start < 0 {
		return fmt.Errorf("%w: start and stride must not be negative", ErrConfig)
	}
	if table == nil || table.Len() < cfg.Bins {
		return fmt.Errorf("%w: color table must hold at least %d colors", ErrConfig, cfg.Bins)
	}
	return nil
}

func (o *Orchestrator) AddObserver(obs Observer) { o.observers = append(o.observers, obs) }

// FramePath is the image path for frame i.
func (o *Orchestrator) FramePath(i int) string {
	return filepath.Join(o.cfg.OutputDir, fmt.Sprintf("%04d.png", i))
}

// Frames lists the frame indices Run will process.
func (o *Orchestrator) Frames() []int {
	end := o.src.Frames()
	if o.cfg.End > 0 && o.cfg.End < end {
		end = o.cfg.End
	}
	var idx []int
	for i := o.cfg.Start; i < end; i += o.cfg.Stride {
		idx = append(idx, i)
	}
	return idx
}

// Plan computes the colored groups for frame i without touching the
// renderer.
func (o *Orchestrator) Plan(i int) ([]Group, Stats, error) {
	st := Stats{Index: i, Path: o.FramePath(i)}

	pos, raw, err := o.src.Frame(i, o.pos, o.raw)
	if err != nil {
		return nil, st, &FrameError{Frame: i, Stage: "read", Wrapped: err}
	}
	o.pos, o.raw = pos, raw

	if o.cfg.Cut {
		pos, raw = cut(pos, raw)
	}
	st.Particles = len(pos)

	o.vals = o.norm.Normalize(o.vals, raw)
	subsets, occupied, err := binning.Partition(o.vals, pos, o.cfg.Bins)
	if err != nil {
		return nil, st, &FrameError{Frame: i, Stage: "bin", Wrapped: err}
	}
	st.Occupied = occupied
	st.Groups = len(subsets)

	groups := make([]Group, len(subsets))
	inv := 1 / o.cfg.LengthScale
	for j, s := range subsets {
		ci := j
		if o.cfg.ColorByBin {
			ci = s.Bin
		}
		scaled := s.Positions
		for k := range scaled {
			scaled[k] = [3]float64{scaled[k][0] * inv, scaled[k][1] * inv, scaled[k][2] * inv}
		}
		groups[j] = Group{Bin: s.Bin, Color: o.table.At(ci), Positions: scaled}
	}
	return groups, st, nil
}

// cut keeps particles with a negative third coordinate, compacting both
// slices in place so indices stay aligned.
func cut(pos [][3]float64, vals []float64) ([][3]float64, []float64) {
	n := 0
	for i := range pos {
		if pos[i][2] < 0 {
			pos[n] = pos[i]
			vals[n] = vals[i]
			n++
		}
	}
	return pos[:n], vals[:n]
}

// RenderFrame plans frame i, draws it, captures it and resets the scene.
// A failure leaves the scene as it was; the caller must not continue with
// the next frame.
func (o *Orchestrator) RenderFrame(i int) (Stats, error) {
	start := time.Now()
	groups, st, err := o.Plan(i)
	if err != nil {
		return st, err
	}

	for _, g := range groups {
		if _, err := o.renderer.AddColoredPointGroup(g.Positions, g.Color); err != nil {
			return st, &FrameError{Frame: i, Stage: "add group", Wrapped: err}
		}
	}
	if err := o.renderer.RenderCurrentFrame(st.Path); err != nil {
		return st, &FrameError{Frame: i, Stage: "capture", Wrapped: err}
	}
	if err := o.renderer.Reset(); err != nil {
		return st, &FrameError{Frame: i, Stage: "reset", Wrapped: err}
	}
	st.Elapsed = time.Since(start)
	return st, nil
}

// Run resets the renderer and then renders the selected frames in order,
// stopping at the first error or when ctx is done.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	frames := o.Frames()
	result := &Result{Frames: make([]Stats, 0, len(frames))}

	if err := o.renderer.Reset(); err != nil {
		return result, &FrameError{Frame: -1, Stage: "reset", Wrapped: err}
	}

	for _, i := range frames {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		st, err := o.RenderFrame(i)
		if err != nil {
			return result, err
		}
		result.Frames = append(result.Frames, st)
		for _, obs := range o.observers {
			obs.OnFrame(st)
		}
	}
	return result, nil
}
