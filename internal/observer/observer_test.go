package observer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/lti"
)

func newTestSystem(t *testing.T) *lti.System {
	t.Helper()
	sys, err := lti.NewSpringMass(1.0, 1.0, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sys
}

func TestNewLuenberger(t *testing.T) {
	sys := newTestSystem(t)

	obs, err := NewLuenberger(sys, DefaultGain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	k := obs.Gain()
	if k.At(0, 0) != 0.5 || k.At(1, 0) != -0.1 {
		t.Errorf("gain = %v, expected [0.5, -0.1]", mat.Formatted(k))
	}
}

func TestNewLuenbergerBadGain(t *testing.T) {
	sys := newTestSystem(t)

	tests := []struct {
		name string
		gain *mat.Dense
		want error
	}{
		{"wrong rows", mat.NewDense(3, 1, nil), lti.ErrDimension},
		{"wrong columns", mat.NewDense(2, 2, nil), lti.ErrDimension},
		{"nan entry", mat.NewDense(2, 1, []float64{math.NaN(), 0}), lti.ErrInvalidConfig},
		{"nil gain", nil, lti.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLuenberger(sys, tt.gain)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCorrection(t *testing.T) {
	sys := newTestSystem(t)

	obs, err := NewLuenberger(sys, DefaultGain())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := mat.NewVecDense(1, []float64{2.0})
	kr := obs.Correction(r)

	if math.Abs(kr.AtVec(0)-1.0) > 1e-15 {
		t.Errorf("correction[0] = %.6f, expected 1.0", kr.AtVec(0))
	}
	if math.Abs(kr.AtVec(1)+0.2) > 1e-15 {
		t.Errorf("correction[1] = %.6f, expected -0.2", kr.AtVec(1))
	}
}

func TestGainIsCopied(t *testing.T) {
	sys := newTestSystem(t)
	gain := DefaultGain()

	obs, err := NewLuenberger(sys, gain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating either the input or an accessor copy must not leak into the
	// estimator.
	gain.Set(0, 0, 99)
	obs.Gain().Set(1, 0, 99)

	r := mat.NewVecDense(1, []float64{1.0})
	kr := obs.Correction(r)
	if kr.AtVec(0) != 0.5 || kr.AtVec(1) != -0.1 {
		t.Errorf("correction = [%v, %v], expected [0.5, -0.1]", kr.AtVec(0), kr.AtVec(1))
	}
}
