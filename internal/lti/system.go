package lti

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// System is a continuous-time LTI state-space model. It is immutable after
// construction; accessors expose the internal matrices and callers must treat
// them as read-only.
type System struct {
	a, b, c, d *mat.Dense
	n, p, q    int
}

// NewSystem validates the matrix shapes and entries and returns the model.
// The inputs are copied, so later mutation of the arguments does not affect
// the System.
func NewSystem(a, b, c, d *mat.Dense) (*System, error) {
	if a == nil || b == nil || c == nil || d == nil {
		return nil, fmt.Errorf("%w: nil system matrix", ErrInvalidConfig)
	}

	n, na := a.Dims()
	if n != na {
		return nil, fmt.Errorf("%w: A must be square, got %dx%d", ErrDimension, n, na)
	}
	nb, p := b.Dims()
	if nb != n {
		return nil, fmt.Errorf("%w: B has %d rows, want %d", ErrDimension, nb, n)
	}
	q, nc := c.Dims()
	if nc != n {
		return nil, fmt.Errorf("%w: C has %d columns, want %d", ErrDimension, nc, n)
	}
	qd, pd := d.Dims()
	if qd != q || pd != p {
		return nil, fmt.Errorf("%w: D is %dx%d, want %dx%d", ErrDimension, qd, pd, q, p)
	}

	for name, m := range map[string]*mat.Dense{"A": a, "B": b, "C": c, "D": d} {
		if !allFinite(m) {
			return nil, fmt.Errorf("%w: non-finite entry in %s", ErrInvalidConfig, name)
		}
	}

	return &System{
		a: mat.DenseCopyOf(a),
		b: mat.DenseCopyOf(b),
		c: mat.DenseCopyOf(c),
		d: mat.DenseCopyOf(d),
		n: n,
		p: p,
		q: q,
	}, nil
}

// NewSpringMass returns the damped mass-spring oscillator with stiffness k,
// mass m and damping b:
//
//	A = | 0     1    |   B = | 0   |   C = | 1 0 |   D = | 0 |
//	    | -k/m  -b/m |       | 1/m |
//
// State is (position, velocity); the measured output is position. A zero or
// non-finite mass cannot form A and B and fails before any matrix is built.
func NewSpringMass(k, m, b float64) (*System, error) {
	if m == 0 {
		return nil, fmt.Errorf("%w: mass must be nonzero", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{"stiffness": k, "mass": m, "damping": b} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidConfig, name)
		}
	}

	return NewSystem(
		mat.NewDense(2, 2, []float64{0, 1, -k / m, -b / m}),
		mat.NewDense(2, 1, []float64{0, 1 / m}),
		mat.NewDense(1, 2, []float64{1, 0}),
		mat.NewDense(1, 1, []float64{0}),
	)
}

func (s *System) StateDim() int  { return s.n }
func (s *System) InputDim() int  { return s.p }
func (s *System) OutputDim() int { return s.q }

func (s *System) A() *mat.Dense { return s.a }
func (s *System) B() *mat.Dense { return s.b }
func (s *System) C() *mat.Dense { return s.c }
func (s *System) D() *mat.Dense { return s.d }

// Output computes y = C*x + D*u. A nil u is treated as zero input.
func (s *System) Output(x, u mat.Vector) *mat.VecDense {
	y := mat.NewVecDense(s.q, nil)
	y.MulVec(s.c, x)
	if u != nil {
		du := mat.NewVecDense(s.q, nil)
		du.MulVec(s.d, u)
		y.AddVec(y, du)
	}
	return y
}

// Discretize returns Phi = exp(A*dt), the exact one-step transition operator
// for the free response over a step of size dt. A and dt are fixed for a
// given model and step size, so callers compute Phi once and reuse it.
func (s *System) Discretize(dt float64) (*mat.Dense, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: step size must be positive and finite, got %v", ErrInvalidConfig, dt)
	}

	var adt mat.Dense
	adt.Scale(dt, s.a)

	phi := mat.NewDense(s.n, s.n, nil)
	phi.Exp(&adt)
	return phi, nil
}

func allFinite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
