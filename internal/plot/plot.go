// Package plot renders a run's aligned series to image files using
// gonum.org/v1/plot. PNG is the default; paths ending in .svg produce
// vector output instead.
package plot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/obslab/internal/sim"
)

var ErrNoData = errors.New("plot: no samples to draw")

// SaveTimeSeries writes two stacked panels, position above and velocity
// below, each overlaying the true trajectory with the observer estimate.
func SaveTimeSeries(res *sim.Result, path string) error {
	if res == nil || len(res.States) == 0 {
		return ErrNoData
	}
	if len(res.States[0]) < 2 {
		return fmt.Errorf("%w: need position and velocity components", ErrNoData)
	}

	pos, err := seriesPanel(res.Times, res.Component(0), res.EstimateComponent(0), "position [m]")
	if err != nil {
		return err
	}
	vel, err := seriesPanel(res.Times, res.Component(1), res.EstimateComponent(1), "velocity [m/s]")
	if err != nil {
		return err
	}

	return saveTiled(path, 8*vg.Inch, 9*vg.Inch, [][]*gplot.Plot{{pos}, {vel}})
}

// SavePhase writes the square phase-plane figure with the fixed viewport
// both the terminal portrait and the image share.
func SavePhase(res *sim.Result, path string) error {
	if res == nil || len(res.States) == 0 {
		return ErrNoData
	}
	if len(res.States[0]) < 2 {
		return fmt.Errorf("%w: need position and velocity components", ErrNoData)
	}

	p := gplot.New()
	p.Title.Text = "phase space trajectory"
	p.X.Label.Text = "position [m]"
	p.Y.Label.Text = "velocity [m/s]"
	p.Add(plotter.NewGrid())

	truth := xyPairs(res.Component(0), res.Component(1))
	est := xyPairs(res.EstimateComponent(0), res.EstimateComponent(1))
	if err := addOverlay(p, truth, est); err != nil {
		return err
	}

	// Adding data expands the axis ranges, so the fixed viewport is applied
	// last. Points outside it are clipped, matching the terminal portrait.
	p.X.Min, p.X.Max = -1.5, 1.5
	p.Y.Min, p.Y.Max = -1.5, 1.5

	return saveTiled(path, 7*vg.Inch, 7*vg.Inch, [][]*gplot.Plot{{p}})
}

func seriesPanel(times, truth, est []float64, ylabel string) (*gplot.Plot, error) {
	p := gplot.New()
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	return p, addOverlay(p, xyPairs(times, truth), xyPairs(times, est))
}

// addOverlay draws the true series as a solid line and the estimate as a
// dashed line with sparse glyph markers, with legend entries for both.
func addOverlay(p *gplot.Plot, truth, est plotter.XYs) error {
	trueLine, err := plotter.NewLine(truth)
	if err != nil {
		return err
	}
	trueLine.Color = plotutil.Color(0)

	estLine, err := plotter.NewLine(est)
	if err != nil {
		return err
	}
	estLine.Color = plotutil.Color(1)
	estLine.Dashes = plotutil.Dashes(1)

	estMarks, err := plotter.NewScatter(thin(est, 25))
	if err != nil {
		return err
	}
	estMarks.GlyphStyle.Color = plotutil.Color(1)
	estMarks.GlyphStyle.Shape = plotutil.Shape(1)
	estMarks.GlyphStyle.Radius = vg.Points(2)

	p.Add(trueLine, estLine, estMarks)
	p.Legend.Add("true", trueLine)
	p.Legend.Add("estimated", estLine, estMarks)
	p.Legend.Top = true
	return nil
}

func xyPairs(xs, ys []float64) plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// thin strides the series down to about keep points so glyph markers stay
// readable on long runs.
func thin(pts plotter.XYs, keep int) plotter.XYs {
	if len(pts) <= keep {
		return pts
	}
	stride := len(pts) / keep
	out := make(plotter.XYs, 0, keep+1)
	for i := 0; i < len(pts); i += stride {
		out = append(out, pts[i])
	}
	return out
}

func saveTiled(path string, w, h vg.Length, figs [][]*gplot.Plot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if filepath.Ext(path) == ".svg" {
		c := vgsvg.New(w, h)
		drawTiled(draw.New(c), figs)
		return writeCanvas(path, c)
	}

	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(150))
	drawTiled(draw.New(c), figs)
	return writeCanvas(path, vgimg.PngCanvas{Canvas: c})
}

func drawTiled(dc draw.Canvas, figs [][]*gplot.Plot) {
	tiles := draw.Tiles{
		Rows: len(figs),
		Cols: len(figs[0]),
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	canvases := gplot.Align(figs, tiles, dc)
	for i := range figs {
		for j, fig := range figs[i] {
			if fig != nil {
				fig.Draw(canvases[i][j])
			}
		}
	}
}

func writeCanvas(path string, c io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := c.WriteTo(bw); err != nil {
		return err
	}
	return bw.Flush()
}
