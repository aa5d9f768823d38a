package sim

import (
	"errors"
	"fmt"
)

// ErrDiverged indicates a state component became NaN or Inf mid-run.
var ErrDiverged = errors.New("sim: state diverged (non-finite value)")

// StepError reports a terminal run failure together with the step at which
// it occurred. Runs are deterministic, so nothing is retried; the error is
// surfaced with whatever prefix of the buffers was recorded.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
