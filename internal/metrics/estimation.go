package metrics

import "github.com/san-kum/obslab/internal/sim"

// EstimationError reports the estimation error norm at the last observed
// sample.
type EstimationError struct {
	name string
	last float64
}

func NewEstimationError() *EstimationError {
	return &EstimationError{name: "estimation_error"}
}

func (e *EstimationError) Name() string { return e.name }

func (e *EstimationError) Observe(x, xhat sim.State, t float64) {
	e.last = x.Sub(xhat).Norm()
}

func (e *EstimationError) Value() float64 { return e.last }

func (e *EstimationError) Reset() { e.last = 0 }

// ErrorRatio reports the final estimation error relative to the initial one.
// Values well below 1 mean the observer converged over the run.
type ErrorRatio struct {
	name    string
	initial float64
	last    float64
	samples int
}

func NewErrorRatio() *ErrorRatio {
	return &ErrorRatio{name: "error_ratio"}
}

func (e *ErrorRatio) Name() string { return e.name }

func (e *ErrorRatio) Observe(x, xhat sim.State, t float64) {
	norm := x.Sub(xhat).Norm()
	if e.samples == 0 {
		e.initial = norm
	}
	e.last = norm
	e.samples++
}

func (e *ErrorRatio) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return e.last / e.initial
}

func (e *ErrorRatio) Reset() {
	e.initial = 0
	e.last = 0
	e.samples = 0
}
