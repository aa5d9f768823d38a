package sim

import "math"

// State is a real vector, (position, velocity) for the oscillator.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsFinite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Sample is one recorded row: true state, estimate and output residual at
// the instant before this step's advance.
type Sample struct {
	Step     int
	Time     float64
	X        State
	Xhat     State
	Residual State
}

// Metric observes every recorded sample and reduces the run to one value.
type Metric interface {
	Name() string
	Observe(x, xhat State, t float64)
	Value() float64
	Reset()
}

// Config fixes every run parameter up front; nothing mutates at runtime.
type Config struct {
	Steps    int     // recorded samples (and advances) per run
	Dt       float64 // step size
	T0       float64 // time of the first sample
	Input    float64 // constant exogenous input u
	X0       []float64
	Xhat0    []float64
	Validate bool // abort the run when a state goes non-finite
}

func DefaultConfig() Config {
	return Config{
		Steps:    251,
		Dt:       0.1,
		T0:       0.0,
		Input:    0.0,
		X0:       []float64{1, 0},
		Xhat0:    []float64{0, 0},
		Validate: true,
	}
}

// Result holds the aligned series of one run: row i of States, Estimates,
// Residuals and Times all belong to step i. Once returned the buffers are
// read-only to consumers.
type Result struct {
	States    []State
	Estimates []State
	Residuals []State
	Times     []float64
	Metrics   map[string]float64
	Steps     int // samples actually recorded
}

// Component extracts component i of the true-state series.
func (r *Result) Component(i int) []float64 {
	out := make([]float64, len(r.States))
	for j, s := range r.States {
		out[j] = s[i]
	}
	return out
}

// EstimateComponent extracts component i of the estimate series.
func (r *Result) EstimateComponent(i int) []float64 {
	out := make([]float64, len(r.Estimates))
	for j, s := range r.Estimates {
		out[j] = s[i]
	}
	return out
}
