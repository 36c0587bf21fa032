package frame

import (
	"context"
	"errors"
	"image/color"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/givis/internal/colormap"
	"github.com/san-kum/givis/internal/render"
	"github.com/san-kum/givis/internal/scalar"
)

type memSource struct {
	pos  [][][3]float64 // [frame][particle]
	vals [][]float64
}

func (m *memSource) Particles() int { return len(m.vals[0]) }
func (m *memSource) Frames() int    { return len(m.vals) }

func (m *memSource) Frame(i int, pos [][3]float64, vals []float64) ([][3]float64, []float64, error) {
	pos = append(pos[:0], m.pos[i]...)
	vals = append(vals[:0], m.vals[i]...)
	return pos, vals, nil
}

type drawn struct {
	Positions [][3]float64
	Color     color.NRGBA
}

type capture struct {
	path   string
	groups []drawn
}

// recorder is a renderer that remembers every call and what the scene held
// at each capture.
type recorder struct {
	calls    []string
	scene    []drawn
	captures []capture
	failOn   string
}

var errBoom = errors.New("boom")

func (r *recorder) Reset() error {
	r.calls = append(r.calls, "reset")
	r.scene = nil
	return nil
}

func (r *recorder) AddColoredPointGroup(positions [][3]float64, c color.NRGBA) (render.Handle, error) {
	r.calls = append(r.calls, "add")
	if r.failOn == "add" {
		return 0, errBoom
	}
	r.scene = append(r.scene, drawn{Positions: positions, Color: c})
	return render.Handle(len(r.scene) - 1), nil
}

func (r *recorder) RenderCurrentFrame(path string) error {
	r.calls = append(r.calls, "render")
	if r.failOn == "render" {
		return errBoom
	}
	r.captures = append(r.captures, capture{path: path, groups: append([]drawn(nil), r.scene...)})
	return nil
}

func (r *recorder) SetResolution(int, int) error            { return nil }
func (r *recorder) SetCamera(render.Vec3, render.Vec3) error { return nil }

// temperatures in eV spanning the temperature preset.
var sample = []float64{0, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0}

func newSource(frames int, z float64) *memSource {
	src := &memSource{}
	for f := 0; f < frames; f++ {
		pos := make([][3]float64, len(sample))
		for i := range pos {
			pos[i] = [3]float64{float64(i) * 7.5e7, float64(f) * 7.5e7, z * 7.5e7}
		}
		src.pos = append(src.pos, pos)
		src.vals = append(src.vals, append([]float64(nil), sample...))
	}
	return src
}

var _ = Describe("Orchestrator", func() {
	var (
		src   *memSource
		rec   *recorder
		norm  *scalar.Normalizer
		table *colormap.Table
		cfg   Config
	)

	BeforeEach(func() {
		var err error
		src = newSource(3, -1)
		rec = &recorder{}
		norm, err = scalar.New(scalar.Temperature)
		Expect(err).NotTo(HaveOccurred())
		table, err = colormap.NewTable(colormap.Inferno, 8)
		Expect(err).NotTo(HaveOccurred())
		cfg = DefaultConfig()
		cfg.Bins = 8
		cfg.OutputDir = "out"
	})

	build := func() *Orchestrator {
		o, err := New(src, norm, table, rec, cfg)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	It("renders every frame in order and resets after each capture", func() {
		res, err := build().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Frames).To(HaveLen(3))

		Expect(rec.calls[0]).To(Equal("reset"))
		Expect(rec.calls[len(rec.calls)-1]).To(Equal("reset"))
		Expect(rec.captures).To(HaveLen(3))
		for i, c := range rec.captures {
			Expect(c.path).To(Equal(filepath.Join("out", []string{"0000.png", "0001.png", "0002.png"}[i])))
		}
		Expect(rec.scene).To(BeEmpty())
	})

	It("captures only the current frame's groups", func() {
		res, err := build().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		for i, c := range rec.captures {
			Expect(c.groups).To(HaveLen(res.Frames[i].Groups))
			total := 0
			for _, g := range c.groups {
				Expect(g.Positions).NotTo(BeEmpty())
				total += len(g.Positions)
			}
			Expect(total).To(Equal(len(sample)))
		}
	})

	It("colors classes by list position", func() {
		groups, st, err := build().Plan(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(groups).To(HaveLen(st.Groups))
		for j, g := range groups {
			Expect(g.Color).To(Equal(table.At(j)))
			Expect(g.Bin).To(Equal(st.Occupied[j]))
		}
		// Sparse occupancy makes list position and bin index differ.
		Expect(st.Occupied[len(st.Occupied)-1]).To(BeNumerically(">", len(groups)-1))
	})

	It("colors classes by bin index when asked", func() {
		cfg.ColorByBin = true
		groups, _, err := build().Plan(0)
		Expect(err).NotTo(HaveOccurred())
		for _, g := range groups {
			Expect(g.Color).To(Equal(table.At(g.Bin)))
		}
	})

	It("scales positions by the length scale", func() {
		groups, _, err := build().Plan(1)
		Expect(err).NotTo(HaveOccurred())
		for _, g := range groups {
			for _, p := range g.Positions {
				Expect(p[1]).To(BeNumerically("~", 1.0, 1e-12))
				Expect(p[2]).To(BeNumerically("~", -1.0, 1e-12))
			}
		}
	})

	It("keeps only particles below the cut plane", func() {
		src.pos[0][2][2] = 5 * 7.5e7
		src.pos[0][4][2] = 0
		cfg.Cut = true
		_, st, err := build().Plan(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Particles).To(Equal(len(sample) - 2))
	})

	It("renders an empty frame when the cut removes every particle", func() {
		src = newSource(2, 1)
		cfg.Cut = true
		res, err := build().Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Frames).To(HaveLen(2))
		for _, st := range res.Frames {
			Expect(st.Particles).To(BeZero())
			Expect(st.Groups).To(BeZero())
		}
		Expect(rec.calls).To(Equal([]string{"reset", "render", "reset", "render", "reset"}))
		Expect(rec.captures[0].groups).To(BeEmpty())
	})

	It("does not mutate the source between frames", func() {
		cfg.Cut = true
		o := build()
		_, err := o.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(src.vals[0]).To(Equal(sample))
		Expect(src.pos[0][1][0]).To(Equal(7.5e7))
	})

	It("aborts on renderer failure without touching later frames", func() {
		rec.failOn = "render"
		res, err := build().Run(context.Background())
		Expect(err).To(MatchError(errBoom))

		var fe *FrameError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Frame).To(Equal(0))
		Expect(fe.Stage).To(Equal("capture"))
		Expect(res.Frames).To(BeEmpty())
	})

	It("reports a failed group as a frame error", func() {
		rec.failOn = "add"
		_, err := build().RenderFrame(1)
		var fe *FrameError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Stage).To(Equal("add group"))
	})

	It("stops when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := build().Run(ctx)
		Expect(err).To(MatchError(ErrCanceled))
		Expect(res.Frames).To(BeEmpty())
	})

	It("selects frames by range and stride", func() {
		src = newSource(10, -1)
		cfg.Start, cfg.End, cfg.Stride = 1, 8, 3
		Expect(build().Frames()).To(Equal([]int{1, 4, 7}))
	})

	It("notifies observers once per frame", func() {
		o := build()
		var seen []int
		o.AddObserver(ObserverFunc(func(st Stats) { seen = append(seen, st.Index) }))
		_, err := o.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{0, 1, 2}))
	})

	DescribeTable("rejects invalid configuration",
		func(mutate func(*Config)) {
			mutate(&cfg)
			_, err := New(src, norm, table, rec, cfg)
			Expect(err).To(MatchError(ErrConfig))
		},
		Entry("zero bins", func(c *Config) { c.Bins = 0 }),
		Entry("more bins than colors", func(c *Config) { c.Bins = 9 }),
		Entry("zero length scale", func(c *Config) { c.LengthScale = 0 }),
		Entry("negative stride", func(c *Config) { c.Stride = -1 }),
	)
})
