package scalar

import (
	"fmt"
	"math"
)

// Config holds the bounds of a log normalization. UnitScalar is applied
// before clamping.
type Config struct {
	TMin       float64 `yaml:"t_min" json:"t_min"`
	TMax       float64 `yaml:"t_max" json:"t_max"`
	UnitScalar float64 `yaml:"unit_scalar" json:"unit_scalar"`
}

// Validate reports ErrInvalidRange unless 0 < TMin < TMax.
func (c Config) Validate() error {
	if !(c.TMin > 0) {
		return fmt.Errorf("%w: t_min must be positive, got %g", ErrInvalidRange, c.TMin)
	}
	if !(c.TMax > c.TMin) {
		return fmt.Errorf("%w: t_max (%g) must exceed t_min (%g)", ErrInvalidRange, c.TMax, c.TMin)
	}
	if c.UnitScalar == 0 || math.IsNaN(c.UnitScalar) || math.IsInf(c.UnitScalar, 0) {
		return fmt.Errorf("%w: unit_scalar must be finite and non-zero, got %g", ErrInvalidRange, c.UnitScalar)
	}
	return nil
}

// Normalizer maps raw values onto [0, 1] on a clamped log scale.
// It is immutable and safe for concurrent use.
type Normalizer struct {
	cfg     Config
	logMin  float64
	logSpan float64
}

// New validates cfg and precomputes the log bounds.
func New(cfg Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logMin := math.Log10(cfg.TMin)
	return &Normalizer{
		cfg:     cfg,
		logMin:  logMin,
		logSpan: math.Log10(cfg.TMax) - logMin,
	}, nil
}

func (n *Normalizer) Config() Config { return n.cfg }

// Value normalizes a single raw value. NaN is treated as below range.
func (n *Normalizer) Value(raw float64) float64 {
	v := raw * n.cfg.UnitScalar
	switch {
	case math.IsNaN(v), v <= n.cfg.TMin:
		return 0
	case v >= n.cfg.TMax:
		return 1
	}
	r := (math.Log10(v) - n.logMin) / n.logSpan
	if r > 1 {
		r = 1
	}
	return r
}

// Normalize writes the normalized form of src into dst and returns it.
// dst is grown when its capacity is short; pass nil to allocate.
func (n *Normalizer) Normalize(dst, src []float64) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, raw := range src {
		dst[i] = n.Value(raw)
	}
	return dst
}
