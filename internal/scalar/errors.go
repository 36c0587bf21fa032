package scalar

import "errors"

var (
	// ErrInvalidRange indicates bounds that leave the logarithm undefined
	// or the normalization span empty.
	ErrInvalidRange = errors.New("scalar: invalid normalization range")

	// ErrUnknownPreset indicates a preset name that is not registered.
	ErrUnknownPreset = errors.New("scalar: unknown preset")
)
