// Package sweep runs grids of independent simulations concurrently. Each
// grid point owns a fresh Simulator, so points never share state and the
// pool size only bounds how many run at once.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/analysis"
	"github.com/san-kum/obslab/internal/config"
	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/observer"
	"github.com/san-kum/obslab/internal/sim"
)

// Axis selects the parameter a sweep varies.
type Axis string

const (
	AxisDamping   Axis = "damping"
	AxisStiffness Axis = "stiffness"
	AxisGain0     Axis = "gain0"
	AxisGain1     Axis = "gain1"
	AxisDt        Axis = "dt"
)

var (
	ErrBadAxis = errors.New("sweep: unknown axis")
	ErrBadGrid = errors.New("sweep: invalid grid")
)

// settleFrac is the settling threshold as a fraction of the initial error.
const settleFrac = 0.05

func ParseAxis(s string) (Axis, error) {
	switch Axis(s) {
	case AxisDamping, AxisStiffness, AxisGain0, AxisGain1, AxisDt:
		return Axis(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadAxis, s)
}

func Axes() []Axis {
	return []Axis{AxisDamping, AxisStiffness, AxisGain0, AxisGain1, AxisDt}
}

// Point is one grid sample. A point that failed to build or run carries its
// error here; the sweep itself still completes.
type Point struct {
	Value      float64
	FinalError float64
	Settled    int
	Err        error
}

// Run sweeps axis over count evenly spaced values in [from, to], with at
// most workers simulations in flight (NumCPU when workers <= 0). Points
// come back in grid order.
func Run(ctx context.Context, base *config.Config, axis Axis, from, to float64, count, workers int) ([]Point, error) {
	if _, err := ParseAxis(string(axis)); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", ErrBadGrid, count)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > count {
		workers = count
	}

	points := make([]Point, count)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				points[idx] = runPoint(ctx, base, axis, gridValue(from, to, count, idx))
			}
		}()
	}

	for i := 0; i < count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return points, nil
}

func gridValue(from, to float64, count, i int) float64 {
	if count == 1 {
		return from
	}
	return from + (to-from)*float64(i)/float64(count-1)
}

func runPoint(ctx context.Context, base *config.Config, axis Axis, value float64) Point {
	pt := Point{Value: value, Settled: -1}
	if err := ctx.Err(); err != nil {
		pt.Err = err
		return pt
	}

	cfg := base.Clone()
	applyAxis(cfg, axis, value)
	if err := cfg.Validate(); err != nil {
		pt.Err = err
		return pt
	}

	s, err := buildSimulator(cfg)
	if err != nil {
		pt.Err = err
		return pt
	}
	res, err := s.Run(ctx)
	if err != nil {
		pt.Err = err
		return pt
	}

	errs := analysis.ErrorSeries(res)
	if len(errs) > 0 {
		pt.FinalError = errs[len(errs)-1]
	}
	pt.Settled = analysis.SettlingStep(errs, settleFrac)
	return pt
}

func applyAxis(cfg *config.Config, axis Axis, value float64) {
	switch axis {
	case AxisDamping:
		cfg.Damping = value
	case AxisStiffness:
		cfg.Stiffness = value
	case AxisGain0:
		cfg.Gain[0] = value
	case AxisGain1:
		cfg.Gain[1] = value
	case AxisDt:
		cfg.Dt = value
	}
}

func buildSimulator(cfg *config.Config) (*sim.Simulator, error) {
	sys, err := lti.NewSpringMass(cfg.Stiffness, cfg.Mass, cfg.Damping)
	if err != nil {
		return nil, err
	}
	gain := mat.NewDense(len(cfg.Gain), 1, append([]float64(nil), cfg.Gain...))
	obs, err := observer.NewLuenberger(sys, gain)
	if err != nil {
		return nil, err
	}
	return sim.New(sys, obs, sim.Config{
		Steps:    cfg.Steps,
		Dt:       cfg.Dt,
		T0:       cfg.T0,
		Input:    cfg.Input,
		X0:       cfg.InitState,
		Xhat0:    cfg.InitEstimate,
		Validate: true,
	})
}
