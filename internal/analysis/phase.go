package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/pidsim/internal/plants"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	XLabel, YLabel string
	Points         []struct{ X, Y float64 }
}

// PhasePortraitFromLog pairs two columns of a plant log. Column 0 is time,
// so indices follow plant.Columns().
func PhasePortraitFromLog(p plants.Plant, xIdx, yIdx int) (*PhasePortrait2D, error) {
	cols := p.Columns()
	if xIdx < 0 || yIdx < 0 || xIdx >= len(cols) || yIdx >= len(cols) {
		return nil, fmt.Errorf("phase portrait: column out of range for %s (have %v)", p.Name(), cols)
	}

	log := p.Log()
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		XLabel: cols[xIdx],
		YLabel: cols[yIdx],
		Points: make([]struct{ X, Y float64 }, 0, len(log)),
	}

	column := func(r plants.Record, i int) float64 {
		if i == 0 {
			return r.Time
		}
		return r.Values[i-1]
	}

	for _, r := range log {
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: column(r, xIdx),
			Y: column(r, yIdx),
		})
	}

	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
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
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Crossings returns the interpolated times at which feedback crosses level
// going upward.
func Crossings(times, feedback []float64, level float64) []float64 {
	out := make([]float64, 0)
	for i := 1; i < len(feedback) && i < len(times); i++ {
		prev, curr := feedback[i-1], feedback[i]
		if prev < level && curr >= level {
			frac := (level - prev) / (curr - prev)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	return out
}

// Period is the mean spacing of upward crossings, or 0 with fewer than two.
func Period(times, feedback []float64, level float64) float64 {
	c := Crossings(times, feedback, level)
	if len(c) < 2 {
		return 0
	}
	return (c[len(c)-1] - c[0]) / float64(len(c)-1)
}
