package rawplanes

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HistogramChart builds an interactive line chart of the channel histograms.
func HistogramChart(source string, names []ChannelName, hists map[ChannelName]*Histogram, bitDepth int) (*charts.Line, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: histogramTitle, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: histogramTitle, Subtitle: source}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: math.Ldexp(1, bitDepth), Name: "ADU", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Name: "Count", NameLocation: "middle", NameGap: 50}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)

	for _, name := range names {
		h, ok := hists[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChannel, name)
		}
		data := make([]opts.LineData, len(h.Counts))
		for i, c := range h.Counts {
			data[i] = opts.LineData{Value: []interface{}{h.Edges[i], c}}
		}
		line.AddSeries(string(name), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ChannelShade(name).Hex(), Opacity: opts.Float(0.75)}),
		)
	}
	return line, nil
}

// RenderHistogramChart writes the chart as a standalone HTML page.
func RenderHistogramChart(w io.Writer, source string, names []ChannelName, hists map[ChannelName]*Histogram, bitDepth int) error {
	line, err := HistogramChart(source, names, hists, bitDepth)
	if err != nil {
		return err
	}
	return line.Render(w)
}

// SaveHistogramChart writes the HTML chart to path.
func SaveHistogramChart(path, source string, names []ChannelName, hists map[ChannelName]*Histogram, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	if err := RenderHistogramChart(f, source, names, hists, bitDepth); err != nil {
		f.Close()
		return fmt.Errorf("rendering chart: %w", err)
	}
	return f.Close()
}
