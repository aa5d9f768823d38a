package sim

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/observer"
)

// Simulator advances a model and its observer in lock step over a fixed
// horizon. The transition operator Phi = exp(A*dt) is computed once at
// construction, since neither A nor dt changes afterwards; every advance of
// the run reuses it.
type Simulator struct {
	sys     *lti.System
	obs     *observer.Luenberger
	cfg     Config
	phi     *mat.Dense
	metrics []Metric
}

// New validates the configuration against the model and returns a Simulator.
// All configuration failures surface here, before any buffer exists.
func New(sys *lti.System, obs *observer.Luenberger, cfg Config) (*Simulator, error) {
	if sys == nil || obs == nil {
		return nil, fmt.Errorf("%w: nil system or observer", lti.ErrInvalidConfig)
	}
	if err := validateConfig(sys, cfg); err != nil {
		return nil, err
	}

	phi, err := sys.Discretize(cfg.Dt)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		sys:     sys,
		obs:     obs,
		cfg:     cfg,
		phi:     phi,
		metrics: make([]Metric, 0),
	}, nil
}

func validateConfig(sys *lti.System, cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", lti.ErrInvalidConfig, cfg.Steps)
	}
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %v", lti.ErrInvalidConfig, cfg.Dt)
	}
	if math.IsNaN(cfg.T0) || math.IsInf(cfg.T0, 0) {
		return fmt.Errorf("%w: t0 is not finite", lti.ErrInvalidConfig)
	}
	if math.IsNaN(cfg.Input) || math.IsInf(cfg.Input, 0) {
		return fmt.Errorf("%w: input is not finite", lti.ErrInvalidConfig)
	}

	n := sys.StateDim()
	if len(cfg.X0) != n {
		return fmt.Errorf("%w: initial state has length %d, want %d", lti.ErrDimension, len(cfg.X0), n)
	}
	if len(cfg.Xhat0) != n {
		return fmt.Errorf("%w: initial estimate has length %d, want %d", lti.ErrDimension, len(cfg.Xhat0), n)
	}
	if !State(cfg.X0).IsFinite() || !State(cfg.Xhat0).IsFinite() {
		return fmt.Errorf("%w: non-finite initial state", lti.ErrInvalidConfig)
	}
	return nil
}

func (s *Simulator) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

func (s *Simulator) Config() Config { return s.cfg }

// Stepper walks one run sample by sample. Recording happens before
// advancing: Next returns the state at the current index and then steps past
// it, so a full run records Steps samples through Steps advances and the
// state computed by the final advance is never stored.
type Stepper struct {
	sim  *Simulator
	x    *mat.VecDense
	xhat *mat.VecDense
	u    *mat.VecDense
	budt *mat.VecDense // B*u*dt, constant over the run
	work *mat.VecDense
	out  *mat.VecDense
	step int
}

// Stepper returns a fresh cursor at (X0, Xhat0, T0). Each call starts an
// independent pass, so repeated runs of one Simulator are pure.
func (s *Simulator) Stepper() *Stepper {
	n := s.sys.StateDim()
	p := s.sys.InputDim()

	u := mat.NewVecDense(p, nil)
	for i := 0; i < p; i++ {
		u.SetVec(i, s.cfg.Input)
	}

	budt := mat.NewVecDense(n, nil)
	budt.MulVec(s.sys.B(), u)
	budt.ScaleVec(s.cfg.Dt, budt)

	return &Stepper{
		sim:  s,
		x:    mat.NewVecDense(n, State(s.cfg.X0).Clone()),
		xhat: mat.NewVecDense(n, State(s.cfg.Xhat0).Clone()),
		u:    u,
		budt: budt,
		work: mat.NewVecDense(n, nil),
		out:  mat.NewVecDense(n, nil),
	}
}

func (st *Stepper) Step() int  { return st.step }
func (st *Stepper) Done() bool { return st.step >= st.sim.cfg.Steps }

// Next records the sample at the current index, then advances both states by
// one step. The returned sample is always finite; a non-nil error reports
// divergence introduced by this step's advance.
func (st *Stepper) Next() (Sample, error) {
	s := st.sim
	i := st.step

	y := s.sys.Output(st.x, st.u)
	yhat := s.sys.Output(st.xhat, st.u)

	r := mat.NewVecDense(y.Len(), nil)
	r.SubVec(y, yhat)

	sample := Sample{
		Step:     i,
		Time:     s.cfg.T0 + float64(i)*s.cfg.Dt,
		X:        vecState(st.x),
		Xhat:     vecState(st.xhat),
		Residual: vecState(r),
	}

	// x <- Phi*(x + B*u*dt)
	st.work.AddVec(st.x, st.budt)
	st.out.MulVec(s.phi, st.work)
	st.x.CopyVec(st.out)

	// xhat <- Phi*(xhat + B*u*dt + K*r*dt)
	st.work.AddVec(st.xhat, st.budt)
	st.work.AddScaledVec(st.work, s.cfg.Dt, s.obs.Correction(r))
	st.out.MulVec(s.phi, st.work)
	st.xhat.CopyVec(st.out)

	st.step = i + 1

	if s.cfg.Validate && (!vecFinite(st.x) || !vecFinite(st.xhat)) {
		return sample, &StepError{Step: i, Time: sample.Time, Err: ErrDiverged}
	}
	return sample, nil
}

// Run executes the full horizon and returns the aligned series. The context
// is checked once per step; cancellation and divergence both return the
// recorded prefix together with a StepError.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	res := s.newResult()
	for _, m := range s.metrics {
		m.Reset()
	}

	st := s.Stepper()
	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(res, i)
			return res, &StepError{Step: i, Time: s.cfg.T0 + float64(i)*s.cfg.Dt, Err: ctx.Err()}
		default:
		}

		sample, err := st.Next()
		res.Times[i] = sample.Time
		res.States[i] = sample.X
		res.Estimates[i] = sample.Xhat
		res.Residuals[i] = sample.Residual

		for _, m := range s.metrics {
			m.Observe(sample.X, sample.Xhat, sample.Time)
		}

		if err != nil {
			s.finish(res, i+1)
			return res, err
		}
	}

	s.finish(res, s.cfg.Steps)
	return res, nil
}

func (s *Simulator) newResult() *Result {
	n := s.cfg.Steps
	res := &Result{
		States:    make([]State, n),
		Estimates: make([]State, n),
		Residuals: make([]State, n),
		Times:     make([]float64, n),
		Metrics:   make(map[string]float64),
	}
	// Unset slots are explicit: NaN times, nil rows. Each slot is written
	// exactly once as the loop reaches it.
	for i := range res.Times {
		res.Times[i] = math.NaN()
	}
	return res
}

// finish truncates the buffers to the recorded prefix and snapshots metrics.
func (s *Simulator) finish(res *Result, recorded int) {
	res.Steps = recorded
	res.States = res.States[:recorded]
	res.Estimates = res.Estimates[:recorded]
	res.Residuals = res.Residuals[:recorded]
	res.Times = res.Times[:recorded]
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
}

func vecState(v mat.Vector) State {
	out := make(State, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func vecFinite(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
