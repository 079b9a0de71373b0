package export

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

// TrajectoryToSVG creates an SVG from trajectory data
func TrajectoryToSVG(points []struct{ X, Y float64 }, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX, minY, maxY := bounds(points)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
	writePath(&sb, points, minX, maxX, minY, maxY, width, height, strokeColor, "")
	sb.WriteString(`</svg>`)
	return sb.String()
}

// WriteSVG renders the feedback trace with the setpoint as a dashed line
// and the plant's plot labels.
func WriteSVG(w io.Writer, res *sim.Result, plot plants.PlotSettings, width, height int) error {
	if res == nil || res.Len() < 2 {
		return fmt.Errorf("svg: need at least two samples")
	}

	points := make([]struct{ X, Y float64 }, res.Len())
	for i := range points {
		points[i].X = res.Times[i]
		points[i].Y = res.Feedback[i]
	}
	minX, maxX, minY, maxY := bounds(append(points,
		struct{ X, Y float64 }{res.Times[0], res.Params.Setpoint}))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	sp := []struct{ X, Y float64 }{
		{res.Times[0], res.Params.Setpoint},
		{res.Times[res.Len()-1], res.Params.Setpoint},
	}
	writePath(&sb, sp, minX, maxX, minY, maxY, width, height, "#ff5555", ` stroke-dasharray="6,4"`)
	writePath(&sb, points, minX, maxX, minY, maxY, width, height, "#00ff00", "")

	sb.WriteString(fmt.Sprintf(`<g fill="#cccccc" font-family="monospace" font-size="12">
<text x="%d" y="16" text-anchor="middle">%s</text>
<text x="%d" y="%d" text-anchor="middle">%s</text>
<text x="12" y="%d" transform="rotate(-90 12 %d)" text-anchor="middle">%s</text>
</g>
</svg>`,
		width/2, html.EscapeString(plot.Title),
		width/2, height-4, html.EscapeString(plot.XLabel),
		height/2, height/2, html.EscapeString(plot.YLabel)))

	_, err := io.WriteString(w, sb.String())
	return err
}

func bounds(points []struct{ X, Y float64 }) (minX, maxX, minY, maxY float64) {
	minX, maxX = points[0].X, points[0].X
	minY, maxY = points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return minX - rangeX*0.1, maxX + rangeX*0.1, minY - rangeY*0.1, maxY + rangeY*0.1
}

func writePath(sb *strings.Builder, points []struct{ X, Y float64 }, minX, maxX, minY, maxY float64, width, height int, stroke, attrs string) {
	rangeX := maxX - minX
	rangeY := maxY - minY

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5"%s d="M`, stroke, attrs))
	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")
}
