package export

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

var (
	feedbackColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	setpointColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Padding = vg.Points(6)
	p.Y.Label.Padding = vg.Points(6)

	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Add(plotter.NewGrid())
}

// NewPlot builds a line plot of one or more results against their
// setpoint, labelled with the plant's plot settings.
func NewPlot(results []*sim.Result, settings plants.PlotSettings) (*plot.Plot, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("png: no results")
	}

	p := plot.New()
	p.Title.Text = settings.Title
	p.X.Label.Text = settings.XLabel
	p.Y.Label.Text = settings.YLabel
	stylePlot(p)

	for i, res := range results {
		if res.Len() == 0 {
			return nil, fmt.Errorf("png: result %d is empty", i)
		}
		pts := make(plotter.XYs, res.Len())
		for j := range pts {
			pts[j].X = res.Times[j]
			pts[j].Y = res.Feedback[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = feedbackColor
		if len(results) > 1 {
			line.LineStyle.Color = seriesColor(i)
		}
		p.Add(line)
		p.Legend.Add(seriesName(res, len(results) > 1), line)
	}

	first := results[0]
	sp, err := plotter.NewLine(plotter.XYs{
		{X: first.Times[0], Y: first.Params.Setpoint},
		{X: first.Times[first.Len()-1], Y: first.Params.Setpoint},
	})
	if err != nil {
		return nil, err
	}
	sp.LineStyle.Color = setpointColor
	sp.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(sp)
	p.Legend.Add("setpoint", sp)
	p.Legend.Top = true

	return p, nil
}

// WritePNG renders results as a widthIn x heightIn inch PNG at dpi.
func WritePNG(w io.Writer, results []*sim.Result, settings plants.PlotSettings, widthIn, heightIn float64, dpi int) error {
	p, err := NewPlot(results, settings)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}

func seriesName(res *sim.Result, withGains bool) string {
	if !withGains {
		return "feedback"
	}
	return fmt.Sprintf("Kp=%g Ki=%g Kd=%g", res.Params.Kp, res.Params.Ki, res.Params.Kd)
}

func seriesColor(i int) color.Color {
	palette := []color.RGBA{
		feedbackColor,
		{R: 255, G: 127, B: 14, A: 255},
		{R: 44, G: 160, B: 44, A: 255},
		{R: 148, G: 103, B: 189, A: 255},
		{R: 140, G: 86, B: 75, A: 255},
		{R: 227, G: 119, B: 194, A: 255},
	}
	return palette[i%len(palette)]
}
