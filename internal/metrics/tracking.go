package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pidsim/internal/sim"
)

// IAE is the integral of absolute tracking error, using the spacing of
// successive sample times as the weight.
type IAE struct {
	name  string
	sum   float64
	prevT float64
	seen  bool
}

func NewIAE() *IAE { return &IAE{name: "iae"} }

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(s sim.Sample) {
	if m.seen {
		m.sum += math.Abs(s.Error()) * (s.Time - m.prevT)
	}
	m.prevT = s.Time
	m.seen = true
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum = 0
	m.prevT = 0
	m.seen = false
}

// ISE is the integral of squared tracking error.
type ISE struct {
	name  string
	sum   float64
	prevT float64
	seen  bool
}

func NewISE() *ISE { return &ISE{name: "ise"} }

func (m *ISE) Name() string { return m.name }

func (m *ISE) Observe(s sim.Sample) {
	if m.seen {
		e := s.Error()
		m.sum += e * e * (s.Time - m.prevT)
	}
	m.prevT = s.Time
	m.seen = true
}

func (m *ISE) Value() float64 { return m.sum }

func (m *ISE) Reset() {
	m.sum = 0
	m.prevT = 0
	m.seen = false
}

// ErrorStdDev is the standard deviation of the tracking error over the
// last window samples.
type ErrorStdDev struct {
	name   string
	win    []float64
	n, i   int
	filled int
}

func NewErrorStdDev(window int) *ErrorStdDev {
	if window < 2 {
		window = 2
	}
	return &ErrorStdDev{name: "error_stddev", win: make([]float64, window), n: window}
}

func (m *ErrorStdDev) Name() string { return m.name }

func (m *ErrorStdDev) Observe(s sim.Sample) {
	m.win[m.i] = s.Error()
	m.i = (m.i + 1) % m.n
	if m.filled != m.n {
		m.filled++
	}
}

func (m *ErrorStdDev) Value() float64 {
	if m.filled < 2 {
		return 0
	}
	_, sd := stat.MeanStdDev(m.win[:m.filled], nil)
	return sd
}

func (m *ErrorStdDev) Reset() {
	for i := range m.win {
		m.win[i] = 0
	}
	m.i = 0
	m.filled = 0
}

// Default returns the metric set attached by the CLI.
func Default(setpoint float64) []sim.Metric {
	band := math.Max(math.Abs(setpoint), 1) * 10
	return []sim.Metric{
		NewControlEffort(),
		NewIAE(),
		NewISE(),
		NewErrorStdDev(100),
		NewStability(band),
	}
}
