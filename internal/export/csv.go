package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteTrajectoryCSV writes one row per grid point: time, setpoint,
// feedback and control.
func WriteTrajectoryCSV(w io.Writer, res *sim.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"time", "setpoint", "feedback", "control"}); err != nil {
		return err
	}

	for i := range res.Times {
		row := []string{
			formatFloat(res.Times[i]),
			formatFloat(res.Params.Setpoint),
			formatFloat(res.Feedback[i]),
			formatFloat(res.Control[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteLogCSV writes the plant's step log with its column names as header.
func WriteLogCSV(w io.Writer, p plants.Plant) error {
	cw := csv.NewWriter(w)

	cols := p.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}

	for i, rec := range p.Log() {
		if len(rec.Values)+1 != len(cols) {
			return fmt.Errorf("log record %d: %d values for %d columns", i, len(rec.Values), len(cols)-1)
		}
		row := make([]string, 0, len(cols))
		row = append(row, formatFloat(rec.Time))
		for _, v := range rec.Values {
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
