package scalar

import (
	"fmt"
	"sort"
)

// EVToKelvin converts a temperature in electron volts to Kelvin.
const EVToKelvin = 11604.0

var (
	Temperature    = Config{TMin: 100, TMax: 6000, UnitScalar: EVToKelvin}
	TemperatureHot = Config{TMin: 1300, TMax: 1e4, UnitScalar: EVToKelvin}
	Pressure       = Config{TMin: 1e8, TMax: 5e12, UnitScalar: 1.0}
)

var Presets = map[string]Config{
	"temperature":     Temperature,
	"temperature-hot": TemperatureHot,
	"pressure":        Pressure,
}

func GetPreset(name string) (Config, error) {
	cfg, ok := Presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
