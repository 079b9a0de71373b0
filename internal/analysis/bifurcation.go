package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pidsim/internal/sim"
)

// BifurcationPoint holds the distinct late-time feedback values seen for
// one gain value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// GainSweep varies one gain ("kp", "ki" or "kd") over [min, max] and
// records the distinct feedback values in the last tail seconds of each
// run. Runs go through sim.Sweep.
func GainSweep(
	ctx context.Context,
	newLoop sim.Factory,
	base sim.Params,
	gain string,
	min, max float64,
	steps int,
	tail float64,
) ([]BifurcationPoint, error) {
	if steps <= 1 {
		steps = 2
	}
	stride := (max - min) / float64(steps-1)

	params := make([]sim.Params, steps)
	values := make([]float64, steps)
	for i := range params {
		v := min + float64(i)*stride
		p := base
		switch gain {
		case "kp":
			p.Kp = v
		case "ki":
			p.Ki = v
		case "kd":
			p.Kd = v
		default:
			return nil, fmt.Errorf("gain sweep: unknown gain %q", gain)
		}
		params[i] = p
		values[i] = v
	}

	results, err := sim.Sweep(ctx, newLoop, params, 0)
	if err != nil {
		return nil, fmt.Errorf("gain sweep: %w", err)
	}

	out := make([]BifurcationPoint, 0, steps)
	for i, res := range results {
		start := base.Runtime - tail
		seen := make(map[int64]bool)
		distinct := make([]float64, 0, 16)
		for j, t := range res.Times {
			if t < start {
				continue
			}
			v := res.Feedback[j]
			// Quantize to find distinct values
			key := int64(math.Round(v * 1000))
			if !seen[key] {
				seen[key] = true
				distinct = append(distinct, v)
			}
		}
		out = append(out, BifurcationPoint{Param: values[i], Values: distinct})
	}
	return out, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
			} else {
				if v < minVal {
					minVal = v
				}
				if v > maxVal {
					maxVal = v
				}
			}
		}
	}
	if !foundFirst {
		return ""
	}

	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}

		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height && col >= 0 && col < width {
				canvas[row][col] = '•'
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
