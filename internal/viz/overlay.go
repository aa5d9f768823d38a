package viz

import (
	"github.com/guptarohit/asciigraph"
)

var overlayPalette = []asciigraph.AnsiColor{
	asciigraph.Blue,
	asciigraph.Red,
	asciigraph.Green,
	asciigraph.Yellow,
}

// Overlay renders aligned series on one asciigraph chart. Legends are
// applied when one is given per series.
func Overlay(series [][]float64, legends []string, width, height int) string {
	if len(series) == 0 {
		return ""
	}

	colors := make([]asciigraph.AnsiColor, len(series))
	for i := range colors {
		colors[i] = overlayPalette[i%len(overlayPalette)]
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(colors...),
	}
	if len(legends) == len(series) {
		opts = append(opts, asciigraph.SeriesLegends(legends...))
	}
	return asciigraph.PlotMany(series, opts...)
}
