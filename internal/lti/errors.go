package lti

import "errors"

// Domain errors for model construction and discretization.
var (
	// ErrInvalidConfig indicates a parameter that cannot define a valid model,
	// such as a zero mass or a non-finite matrix entry.
	ErrInvalidConfig = errors.New("lti: invalid configuration")

	// ErrDimension indicates matrices or vectors whose shapes do not agree.
	ErrDimension = errors.New("lti: dimension mismatch")
)
