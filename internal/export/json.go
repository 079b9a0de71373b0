package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/pidsim/internal/metrics"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

type ExportData struct {
	Plant      string              `json:"plant"`
	Integrator string              `json:"integrator"`
	Setpoint   float64             `json:"setpoint"`
	Runtime    float64             `json:"runtime"`
	Dt         float64             `json:"dt"`
	Kp         float64             `json:"kp"`
	Ki         float64             `json:"ki"`
	Kd         float64             `json:"kd"`
	Steps      int                 `json:"steps"`
	Plot       plants.PlotSettings `json:"plot"`
	Times      []float64           `json:"times"`
	Feedback   []float64           `json:"feedback"`
	Control    []float64           `json:"control"`
	Metrics    map[string]float64  `json:"metrics"`
	Step       metrics.StepInfo    `json:"step_response"`
	Columns    []string            `json:"columns,omitempty"`
	Log        [][]float64         `json:"log,omitempty"`
}

// NewExportData collects a result and, when p is not nil, the plant's log.
func NewExportData(res *sim.Result, p plants.Plant, integrator string) ExportData {
	data := ExportData{
		Plant:      res.Plant,
		Integrator: integrator,
		Setpoint:   res.Params.Setpoint,
		Runtime:    res.Params.Runtime,
		Dt:         res.Params.Dt,
		Kp:         res.Params.Kp,
		Ki:         res.Params.Ki,
		Kd:         res.Params.Kd,
		Steps:      res.Len(),
		Times:      res.Times,
		Feedback:   res.Feedback,
		Control:    res.Control,
		Metrics:    res.Metrics,
		Step:       metrics.Step(res.Times, res.Feedback, res.Params.Setpoint),
	}

	if p != nil {
		data.Plot = p.Plot()
		data.Columns = p.Columns()
		log := p.Log()
		data.Log = make([][]float64, len(log))
		for i, rec := range log {
			row := make([]float64, 0, len(rec.Values)+1)
			row = append(row, rec.Time)
			data.Log[i] = append(row, rec.Values...)
		}
	}

	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
