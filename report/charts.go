package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"latmrg/merit"
)

// MeritChart draws the normalized value of every projection of res in
// evaluation order.
func MeritChart(title string, res *merit.Result) *charts.Line {
	labels := make([]string, len(res.Values))
	items := make([]opts.LineData, len(res.Values))
	for i, v := range res.Values {
		labels[i] = CoordsLabel(v.Coords)
		items[i] = opts.LineData{Value: v.Value, Name: labels[i]}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("merit %.5f at %s", res.Merit, CoordsLabel(res.Worst))}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "projection"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
	)
	line.SetXAxis(labels).
		AddSeries("value", items).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return line
}

func toBarItems(vals []int) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

// HistogramChart draws the distribution of merits seen by a search.
func HistogramChart(title string, merits []float64) *charts.Bar {
	s := newSample(merits)
	bins := s.bins(s.binCount())
	labels := make([]string, len(bins))
	counts := make([]int, len(bins))
	for i, b := range bins {
		labels[i] = fmt.Sprintf("%.4f", 0.5*(b.Lo+b.Hi))
		counts[i] = b.Count
	}
	sm := Summarize(merits)
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("n=%d, mean=%.4f, std=%.4f, median=%.4f", sm.Count, sm.Mean, sm.Std, sm.Median)}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("count", toBarItems(counts)).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return bar
}

// RenderPage writes the charts to w as one HTML page.
func RenderPage(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(cs...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
