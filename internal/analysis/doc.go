// Package analysis provides observer and trajectory diagnostics.
//
// The package characterizes a configured estimator without ever choosing a
// gain for the caller:
//
//   - [AnalyzeObserver]: error-dynamics poles and the discrete spectral radius
//   - [ErrorSeries]: per-step estimation error norms of a finished run
//   - [SettlingStep]: where the error permanently drops below a fraction
//   - [Observable]: rank test of the observability matrix
//   - [DominantFrequency]: strongest spectral line of a recorded series
//
// # Stability Verdict
//
// The estimation error of a run obeys the discrete recursion
//
//	e <- Phi * (I - K*C*dt) * e
//
// so [Report.Stable] is decided by the spectral radius of that map, not by
// the continuous poles of A - K*C. The two can disagree for large steps; the
// report carries both.
package analysis
