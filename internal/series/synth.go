package series

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// SynthConfig describes a synthetic impact: a sphere of particles whose
// surface heats up around an impact point and cools as the shell expands.
type SynthConfig struct {
	Name      string
	Particles int
	Frames    int
	Radius    float64 // cm
	Seed      int64
}

func DefaultSynthConfig() SynthConfig {
	return SynthConfig{Name: "synthetic", Particles: 20000, Frames: 60, Radius: 6.4e8, Seed: 1}
}

// Synthesize writes <name>_pos.npy, <name>_T.npy and <name>_P.npy into dir.
// Temperatures are in eV and pressures in Ba.
func Synthesize(dir string, cfg SynthConfig) error {
	if cfg.Particles <= 0 || cfg.Frames <= 0 {
		return fmt.Errorf("synthesize: need positive particles and frames, got %d and %d", cfg.Particles, cfg.Frames)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	n, f := cfg.Particles, cfg.Frames
	pos := make([]float64, n*f*3)
	temp := make([]float64, n*f)
	pres := make([]float64, n*f)

	impact := [3]float64{0, 0, 1}
	for p := 0; p < n; p++ {
		// Uniform direction, radius biased towards the surface.
		z := 2*rng.Float64() - 1
		phi := 2 * math.Pi * rng.Float64()
		s := math.Sqrt(1 - z*z)
		dir := [3]float64{s * math.Cos(phi), s * math.Sin(phi), z}
		r0 := cfg.Radius * math.Cbrt(rng.Float64())

		cosAngle := dir[0]*impact[0] + dir[1]*impact[1] + dir[2]*impact[2]
		heat := math.Exp(-4 * (1 - cosAngle))
		depth := r0 / cfg.Radius

		for i := 0; i < f; i++ {
			t := float64(i) / float64(f)
			r := r0 * (1 + 0.6*t*heat)
			row := p*f + i
			for k := 0; k < 3; k++ {
				pos[row*3+k] = r * dir[k]
			}
			cool := math.Exp(-3 * t)
			temp[row] = 0.005 + 0.6*heat*depth*depth*cool
			pres[row] = 1e8 * math.Pow(10, 4*heat*depth*cool+0.3*rng.Float64())
		}
	}

	base := filepath.Join(dir, cfg.Name)
	if err := WriteNPY(base+"_pos.npy", []int{n, f, 3}, pos); err != nil {
		return err
	}
	if err := WriteNPY(base+"_T.npy", []int{n, f, 1}, temp); err != nil {
		return err
	}
	return WriteNPY(base+"_P.npy", []int{n, f, 1}, pres)
}
