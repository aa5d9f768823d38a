// Package lti provides continuous-time linear time-invariant state-space
// models and their exact discretization.
//
// A [System] holds the matrices of
//
//	dx/dt = A*x + B*u
//	y     = C*x + D*u
//
// with n states, p inputs and q outputs. [NewSpringMass] builds the damped
// mass-spring oscillator, the canonical second-order model:
//
//	sys, err := lti.NewSpringMass(1.0, 1.0, 0.0) // k, m, b
//
// # Exact Discretization
//
// [System.Discretize] returns the one-step transition operator
//
//	Phi = exp(A*dt)
//
// computed with the matrix exponential (Pade scaling and squaring), so the
// free response is exact at the sample points for any step size. This is not
// an Euler approximation and carries no discretization error for the linear
// dynamics.
package lti
