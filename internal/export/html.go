package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

func lineChart(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(false),
	)
	return line
}

func axis(times []float64) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = fmt.Sprintf("%.2f", t)
	}
	return out
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, len(values))
	for i, v := range values {
		items[i] = opts.LineData{Value: v}
	}
	return items
}

// WriteHTML renders an interactive page with the feedback of every result
// against the setpoint, the control signal and, when p is not nil, each
// column of the plant's log.
func WriteHTML(w io.Writer, results []*sim.Result, p plants.Plant) error {
	if len(results) == 0 || results[0].Len() == 0 {
		return fmt.Errorf("html: no results")
	}
	first := results[0]

	var settings plants.PlotSettings
	if p != nil {
		settings = p.Plot()
	}

	feedback := lineChart(settings.Title, settings.YLabel)
	feedback.SetXAxis(axis(first.Times))
	for _, res := range results {
		feedback.AddSeries(seriesName(res, len(results) > 1), lineData(res.Feedback))
	}
	setpoint := make([]float64, first.Len())
	for i := range setpoint {
		setpoint[i] = first.Params.Setpoint
	}
	feedback.AddSeries("setpoint", lineData(setpoint))

	control := lineChart("Control", "PID output per step")
	control.SetXAxis(axis(first.Times))
	for _, res := range results {
		control.AddSeries(seriesName(res, len(results) > 1), lineData(res.Control))
	}

	page := components.NewPage()
	page.AddCharts(feedback, control)

	if p != nil && len(p.Log()) > 0 {
		log := p.Log()
		cols := p.Columns()
		states := lineChart(p.Name(), "Plant log")
		times := make([]float64, len(log))
		for i, rec := range log {
			times[i] = rec.Time
		}
		states.SetXAxis(axis(times))
		for c := 1; c < len(cols); c++ {
			values := make([]float64, len(log))
			for i, rec := range log {
				values[i] = rec.Values[c-1]
			}
			states.AddSeries(cols[c], lineData(values))
		}
		page.AddCharts(states)
	}

	return page.Render(w)
}
