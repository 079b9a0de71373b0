package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StepInfo summarises a step response toward a setpoint.
type StepInfo struct {
	Setpoint        float64 `json:"setpoint"`
	Initial         float64 `json:"initial"`
	Final           float64 `json:"final"`
	Peak            float64 `json:"peak"`
	PeakTime        float64 `json:"peak_time"`
	Overshoot       float64 `json:"overshoot_pct"`
	RiseTime        float64 `json:"rise_time"`
	SettlingTime    float64 `json:"settling_time"`
	SteadyStateErr  float64 `json:"steady_state_error"`
	SteadyStateMean float64 `json:"steady_state_mean"`
	SteadyStateStd  float64 `json:"steady_state_std"`
	Settled         bool    `json:"settled"`
	Rose            bool    `json:"rose"`
}

// SettlingBand is the relative band used for settling time.
const SettlingBand = 0.02

// Step analyses feedback against setpoint. Rise time is measured between
// 10% and 90% of the change from the initial value toward the setpoint;
// settling time is the first time after which the response stays within
// SettlingBand of the setpoint. Steady-state figures use the last tenth
// of the trajectory.
func Step(times, feedback []float64, setpoint float64) StepInfo {
	info := StepInfo{Setpoint: setpoint}
	n := len(feedback)
	if n == 0 || len(times) != n {
		return info
	}

	info.Initial = feedback[0]
	info.Final = feedback[n-1]

	span := setpoint - info.Initial
	dir := 1.0
	if span < 0 {
		dir = -1
	}

	// peak in the direction of travel
	signed := make([]float64, n)
	copy(signed, feedback)
	floats.Scale(dir, signed)
	peakIdx := floats.MaxIdx(signed)
	info.Peak = feedback[peakIdx]
	info.PeakTime = times[peakIdx]
	if span != 0 {
		info.Overshoot = math.Max(0, (info.Peak-setpoint)/span*100)
	}

	if span != 0 {
		lo := info.Initial + 0.1*span
		hi := info.Initial + 0.9*span
		t10, ok10 := firstCrossing(times, feedback, lo, dir)
		t90, ok90 := firstCrossing(times, feedback, hi, dir)
		if ok10 && ok90 {
			info.RiseTime = t90 - t10
			info.Rose = true
		}
	}

	band := SettlingBand * math.Max(math.Abs(setpoint), math.Abs(span))
	if band == 0 {
		band = SettlingBand
	}
	last := -1
	for i := n - 1; i >= 0; i-- {
		if math.Abs(feedback[i]-setpoint) > band {
			last = i
			break
		}
	}
	switch {
	case last == -1:
		info.Settled = true
		info.SettlingTime = times[0]
	case last < n-1:
		info.Settled = true
		info.SettlingTime = times[last+1]
	}

	tail := feedback[n-max(1, n/10):]
	info.SteadyStateMean, info.SteadyStateStd = stat.MeanStdDev(tail, nil)
	if len(tail) < 2 {
		info.SteadyStateStd = 0
	}
	info.SteadyStateErr = setpoint - info.SteadyStateMean

	return info
}

func firstCrossing(times, feedback []float64, level, dir float64) (float64, bool) {
	for i, y := range feedback {
		if dir*(y-level) >= 0 {
			return times[i], true
		}
	}
	return 0, false
}
