package viz

import (
	"github.com/san-kum/obslab/internal/sim"
)

// Viewport shared by the terminal portrait and the saved phase figure.
const (
	PhaseMin = -1.5
	PhaseMax = 1.5
)

// PhasePortrait draws both trajectories in the (position, velocity) plane:
// the true state as a connected trace, the estimate as isolated dots.
// Segments that leave the viewport are dropped rather than clipped.
func PhasePortrait(res *sim.Result, cols, rows int) string {
	if res == nil || len(res.States) == 0 {
		return ""
	}

	c := NewCanvas(cols, rows, PhaseMin, PhaseMax, PhaseMin, PhaseMax)
	c.Axes()

	for i := 1; i < len(res.States); i++ {
		prev, cur := res.States[i-1], res.States[i]
		if len(prev) < 2 || len(cur) < 2 {
			continue
		}
		if c.Contains(prev[0], prev[1]) && c.Contains(cur[0], cur[1]) {
			c.Segment(prev[0], prev[1], cur[0], cur[1])
		}
	}
	for _, xhat := range res.Estimates {
		if len(xhat) < 2 {
			continue
		}
		c.Mark(xhat[0], xhat[1])
	}

	return c.String()
}
