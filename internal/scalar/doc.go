// Package scalar converts raw per-particle field values into normalized
// color-scale coordinates.
//
// A [Normalizer] applies three steps to every value:
//
//   - multiply by the configured unit factor (eV to Kelvin, for example)
//   - clamp into [TMin, TMax]
//   - map log10 of the clamped value linearly onto [0, 1]
//
// Clamping happens before the logarithm, so the logarithm always sees a
// strictly positive argument.
//
// # Example
//
//	n, err := scalar.New(scalar.Temperature)
//	if err != nil {
//	    return err
//	}
//	out := n.Normalize(nil, raw)
package scalar
