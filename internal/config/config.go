package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/givis/internal/scalar"
	"github.com/san-kum/givis/internal/series"
)

const (
	DefaultSize        = "640x320"
	DefaultBins        = 100
	DefaultWorkers     = 2
	DefaultConcurrency = "serial"
	DefaultColormap    = "inferno"
	DefaultRenderer    = "software"
	DefaultLengthScale = 7.5e7
	DefaultPointSize   = 1
	DefaultRunsDir     = ".givis"

	// EnvPrefix namespaces environment overrides, e.g. GIVIS_BINS.
	EnvPrefix = "GIVIS_"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Data        string  `yaml:"data" env:"DATA"`
	Variable    string  `yaml:"variable" env:"VARIABLE"`
	Size        string  `yaml:"size" env:"SIZE"`
	Colorbar    bool    `yaml:"colorbar" env:"COLORBAR"`
	Mask        bool    `yaml:"mask" env:"MASK"`
	Bins        int     `yaml:"bins" env:"BINS"`
	Concurrency string  `yaml:"concurrency" env:"CONCURRENCY"`
	Workers     int     `yaml:"workers" env:"WORKERS"`
	Cut         bool    `yaml:"cut" env:"CUT"`
	Output      string  `yaml:"output" env:"OUTPUT"`
	Colormap    string  `yaml:"colormap" env:"COLORMAP"`
	ColorByBin  bool    `yaml:"color_by_bin" env:"COLOR_BY_BIN"`
	Renderer    string  `yaml:"renderer" env:"RENDERER"`
	LengthScale float64 `yaml:"length_scale" env:"LENGTH_SCALE"`
	PointSize   int     `yaml:"point_size" env:"POINT_SIZE"`
	Start       int     `yaml:"start" env:"START"`
	End         int     `yaml:"end" env:"END"`
	Stride      int     `yaml:"stride" env:"STRIDE"`
	RunsDir     string  `yaml:"runs_dir" env:"RUNS_DIR"`

	// Preset names a normalization preset; empty picks the variable's own.
	Preset        string              `yaml:"preset" env:"PRESET"`
	Normalization NormalizationConfig `yaml:"normalization" envPrefix:"NORM_"`
	Camera        CameraConfig        `yaml:"camera" envPrefix:"CAMERA_"`
}

// NormalizationConfig overrides individual preset bounds. A nil field keeps
// the preset value; a set field is applied as given, zero included.
type NormalizationConfig struct {
	TMin       *float64 `yaml:"t_min,omitempty" env:"T_MIN"`
	TMax       *float64 `yaml:"t_max,omitempty" env:"T_MAX"`
	UnitScalar *float64 `yaml:"unit_scalar,omitempty" env:"UNIT_SCALAR"`
}

// CameraConfig holds the camera location and XYZ Euler rotation in degrees.
type CameraConfig struct {
	Location []float64 `yaml:"location,flow" env:"LOCATION" envSeparator:","`
	Rotation []float64 `yaml:"rotation,flow" env:"ROTATION" envSeparator:","`
}

func DefaultConfig() *Config {
	return &Config{
		Data:        ".",
		Variable:    string(series.Temperature),
		Size:        DefaultSize,
		Bins:        DefaultBins,
		Concurrency: DefaultConcurrency,
		Workers:     DefaultWorkers,
		Colormap:    DefaultColormap,
		Renderer:    DefaultRenderer,
		LengthScale: DefaultLengthScale,
		PointSize:   DefaultPointSize,
		Stride:      1,
		RunsDir:     DefaultRunsDir,
		Camera: CameraConfig{
			Location: []float64{40, -20, 20},
			Rotation: []float64{63.43, 0, 63.43},
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base; keys absent from the file keep
// base's values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides cfg with any GIVIS_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseResolution parses "WxH".
func ParseResolution(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: size %q is not WxH", ErrInvalid, s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: size %q: %v", ErrInvalid, s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: size %q: %v", ErrInvalid, s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: size %q must be positive", ErrInvalid, s)
	}
	return w, h, nil
}

// NormalizationFor resolves the preset for the configured variable and
// applies any explicit bounds on top of it.
func (c *Config) NormalizationFor(v series.Variable) (scalar.Config, string, error) {
	name := c.Preset
	if name == "" {
		name = string(v)
	}
	norm, err := scalar.GetPreset(name)
	if err != nil {
		return scalar.Config{}, "", err
	}
	if o := c.Normalization.TMin; o != nil {
		norm.TMin = *o
	}
	if o := c.Normalization.TMax; o != nil {
		norm.TMax = *o
	}
	if o := c.Normalization.UnitScalar; o != nil {
		norm.UnitScalar = *o
	}
	return norm, name, norm.Validate()
}

func (c *Config) CameraVectors() ([3]float64, [3]float64, error) {
	var loc, rot [3]float64
	if len(c.Camera.Location) != 3 || len(c.Camera.Rotation) != 3 {
		return loc, rot, fmt.Errorf("%w: camera location and rotation need 3 components", ErrInvalid)
	}
	copy(loc[:], c.Camera.Location)
	copy(rot[:], c.Camera.Rotation)
	return loc, rot, nil
}

// Validate checks the fields that need no filesystem access.
func (c *Config) Validate() error {
	v, err := series.ParseVariable(c.Variable)
	if err != nil {
		return err
	}
	if _, _, err := c.NormalizationFor(v); err != nil {
		return err
	}
	if _, _, err := ParseResolution(c.Size); err != nil {
		return err
	}
	if c.Concurrency != "serial" && c.Concurrency != "parallel" {
		return fmt.Errorf("%w: concurrency %q (want serial|parallel)", ErrInvalid, c.Concurrency)
	}
	if c.Bins < 1 {
		return fmt.Errorf("%w: bins must be >= 1, got %d", ErrInvalid, c.Bins)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalid, c.Workers)
	}
	if c.LengthScale <= 0 {
		return fmt.Errorf("%w: length scale must be positive", ErrInvalid)
	}
	if c.PointSize < 1 {
		return fmt.Errorf("%w: point size must be >= 1", ErrInvalid)
	}
	if c.Start < 0 || c.End < 0 || c.Stride < 1 {
		return fmt.Errorf("%w: frame range start=%d end=%d stride=%d", ErrInvalid, c.Start, c.End, c.Stride)
	}
	_, _, err = c.CameraVectors()
	return err
}
