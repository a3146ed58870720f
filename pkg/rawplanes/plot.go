package rawplanes

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const histogramTitle = "RAW Image ADU counts"

// HistogramPlot draws every channel's histogram as a line over the full ADC
// range 0..2^bitDepth. Each point sits at its bin's left edge.
func HistogramPlot(names []ChannelName, hists map[ChannelName]*Histogram, bitDepth int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = histogramTitle
	p.X.Label.Text = "ADU"
	p.Y.Label.Text = "Count"
	p.X.Min = 0
	p.X.Max = math.Ldexp(1, bitDepth)
	p.Y.Min = 0

	for _, name := range names {
		h, ok := hists[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChannel, name)
		}
		pts := make(plotter.XYs, len(h.Counts))
		for i, c := range h.Counts {
			pts[i] = plotter.XY{X: h.Edges[i], Y: float64(c)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		r, g, b := ChannelShade(name).RGB255()
		line.Color = color.NRGBA{R: r, G: g, B: b, A: 191}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(string(name), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveHistogramPlot renders the channel histograms to path. The image format
// follows the file extension (png, svg, pdf, ...).
func SaveHistogramPlot(path string, names []ChannelName, hists map[ChannelName]*Histogram, bitDepth int) error {
	p, err := HistogramPlot(names, hists, bitDepth)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("saving histogram plot: %w", err)
	}
	return nil
}
