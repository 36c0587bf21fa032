package colormap

import (
	"fmt"
	"sort"
)

// Matplotlib perceptual scales, sampled at tenths.
var (
	Inferno = EvenGradient(
		"#000004", "#160b39", "#420a68", "#6a176e", "#932667", "#bc3754",
		"#dd513a", "#f37819", "#fca50a", "#f6d746", "#fcffa4",
	)
	Magma = EvenGradient(
		"#000004", "#140e36", "#3b0f70", "#641a80", "#8c2981", "#b73779",
		"#de4968", "#f7705c", "#fe9f6d", "#fecf92", "#fcfdbf",
	)
	Plasma = EvenGradient(
		"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778",
		"#e16462", "#f2844b", "#fca636", "#fcce25", "#f0f921",
	)
	Viridis = EvenGradient(
		"#440154", "#482475", "#414487", "#355f8d", "#2a788e", "#21918c",
		"#22a884", "#44bf70", "#7ad151", "#bddf26", "#fde725",
	)
)

const DefaultScale = "inferno"

var Scales = map[string]Scale{
	"inferno": Inferno,
	"magma":   Magma,
	"plasma":  Plasma,
	"viridis": Viridis,
}

func Get(name string) (Scale, error) {
	s, ok := Scales[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownScale, name, Names())
	}
	return s, nil
}

func Names() []string {
	names := make([]string, 0, len(Scales))
	for name := range Scales {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
