// Package observer provides the Luenberger estimator gain used to correct a
// model-based state estimate with the measured output residual.
package observer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/lti"
)

// Luenberger holds the correction gain K (state dim x output dim) validated
// against one model. The estimate update folds K*r into the same exact
// transition the true state uses, with r the output residual.
type Luenberger struct {
	k    *mat.Dense
	n, q int
}

// NewLuenberger validates the gain shape against the model and returns the
// estimator. The gain is copied.
func NewLuenberger(sys *lti.System, gain *mat.Dense) (*Luenberger, error) {
	if sys == nil || gain == nil {
		return nil, fmt.Errorf("%w: nil system or gain", lti.ErrInvalidConfig)
	}

	n, q := gain.Dims()
	if n != sys.StateDim() || q != sys.OutputDim() {
		return nil, fmt.Errorf("%w: gain is %dx%d, want %dx%d",
			lti.ErrDimension, n, q, sys.StateDim(), sys.OutputDim())
	}

	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			if v := gain.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite gain entry at (%d,%d)", lti.ErrInvalidConfig, i, j)
			}
		}
	}

	return &Luenberger{k: mat.DenseCopyOf(gain), n: n, q: q}, nil
}

// DefaultGain returns the stock gain for the two-state oscillator with a
// position measurement.
func DefaultGain() *mat.Dense {
	return mat.NewDense(2, 1, []float64{0.5, -0.1})
}

// Gain returns a copy of the correction gain.
func (l *Luenberger) Gain() *mat.Dense { return mat.DenseCopyOf(l.k) }

// Correction returns K*r, the state-space correction for residual r.
func (l *Luenberger) Correction(r mat.Vector) *mat.VecDense {
	kr := mat.NewVecDense(l.n, nil)
	kr.MulVec(l.k, r)
	return kr
}
