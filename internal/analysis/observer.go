package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/observer"
	"github.com/san-kum/obslab/internal/sim"
)

// Report summarizes the error dynamics of one (model, gain, step) triple.
type Report struct {
	ContinuousPoles []complex128 // eigenvalues of A - K*C
	DiscretePoles   []complex128 // eigenvalues of Phi*(I - K*C*dt)
	SpectralRadius  float64      // max |lambda| of the discrete map
	Stable          bool         // SpectralRadius < 1
	NaturalFreq     float64      // oscillation frequency of A, cycles per time unit
}

// AnalyzeObserver diagnoses the estimation-error dynamics for a given gain
// at a given step size.
func AnalyzeObserver(sys *lti.System, obs *observer.Luenberger, dt float64) (*Report, error) {
	if sys == nil || obs == nil {
		return nil, fmt.Errorf("%w: nil system or observer", lti.ErrInvalidConfig)
	}

	n := sys.StateDim()
	k := obs.Gain()

	var kc mat.Dense
	kc.Mul(k, sys.C())

	var acl mat.Dense
	acl.Sub(sys.A(), &kc)

	cont, err := eigenvalues(&acl)
	if err != nil {
		return nil, err
	}

	phi, err := sys.Discretize(dt)
	if err != nil {
		return nil, err
	}

	// The run updates xhat with Phi*(xhat + B*u*dt + K*r*dt), so the error
	// follows e <- Phi*(I - K*C*dt)*e.
	inner := eye(n)
	var kcdt mat.Dense
	kcdt.Scale(dt, &kc)
	inner.Sub(inner, &kcdt)

	var emap mat.Dense
	emap.Mul(phi, inner)

	disc, err := eigenvalues(&emap)
	if err != nil {
		return nil, err
	}

	radius := 0.0
	for _, p := range disc {
		radius = math.Max(radius, cmplx.Abs(p))
	}

	poles, err := eigenvalues(sys.A())
	if err != nil {
		return nil, err
	}
	natural := 0.0
	for _, p := range poles {
		natural = math.Max(natural, math.Abs(imag(p)))
	}

	return &Report{
		ContinuousPoles: cont,
		DiscretePoles:   disc,
		SpectralRadius:  radius,
		Stable:          radius < 1,
		NaturalFreq:     natural / (2 * math.Pi),
	}, nil
}

// ErrorSeries computes the estimation error norm at every recorded step.
func ErrorSeries(res *sim.Result) []float64 {
	out := make([]float64, len(res.States))
	for i := range res.States {
		out[i] = res.States[i].Sub(res.Estimates[i]).Norm()
	}
	return out
}

// SettlingStep returns the first step at which the error norm drops to frac
// of its initial value and never exceeds that threshold again, or -1 if the
// series never settles.
func SettlingStep(errs []float64, frac float64) int {
	if len(errs) == 0 || frac <= 0 {
		return -1
	}

	threshold := frac * errs[0]
	settled := -1
	for i, e := range errs {
		switch {
		case e > threshold:
			settled = -1
		case settled == -1:
			settled = i
		}
	}
	return settled
}

// Observable reports whether every state component can be reconstructed from
// the output: the observability matrix [C; C*A; ...; C*A^(n-1)] must have
// full column rank.
func Observable(sys *lti.System) (bool, error) {
	if sys == nil {
		return false, fmt.Errorf("%w: nil system", lti.ErrInvalidConfig)
	}

	n := sys.StateDim()
	q := sys.OutputDim()

	om := mat.NewDense(n*q, n, nil)
	block := mat.DenseCopyOf(sys.C())
	for i := 0; i < n; i++ {
		om.Slice(i*q, (i+1)*q, 0, n).(*mat.Dense).Copy(block)

		var next mat.Dense
		next.Mul(block, sys.A())
		block = mat.DenseCopyOf(&next)
	}

	var svd mat.SVD
	if !svd.Factorize(om, mat.SVDNone) {
		return false, errors.New("analysis: svd of observability matrix failed")
	}

	values := svd.Values(nil)
	tol := float64(max(n*q, n)) * values[0] * 2.220446049250313e-16
	rank := 0
	for _, v := range values {
		if v > tol {
			rank++
		}
	}
	return rank == n, nil
}

func eigenvalues(a *mat.Dense) ([]complex128, error) {
	var eig mat.Eigen
	if !eig.Factorize(a, mat.EigenNone) {
		return nil, errors.New("analysis: eigendecomposition failed")
	}
	return eig.Values(nil), nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
