// Package viz provides terminal-side views of observer runs.
//
//   - [Canvas]: braille pixel raster with a world-coordinate viewport
//   - [PhasePortrait]: true and estimated trajectories in the phase plane
//   - [Overlay]: multi-series asciigraph chart with legends
//   - [Model]: interactive Bubble Tea live view driving a simulation stepper
//
// # Key Bindings
//
//	Space - Pause/Resume
//	Tab   - Switch chart (position overlay / phase portrait)
//	R     - Reset to the initial state
//	+/-   - Steps per frame
//	Q     - Quit
package viz
