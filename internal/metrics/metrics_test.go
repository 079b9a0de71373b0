package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/pidsim/internal/sim"
)

func feed(m sim.Metric, setpoint float64, feedback, control []float64, dt float64) {
	for i := range feedback {
		m.Observe(sim.Sample{
			Step:     i,
			Time:     float64(i) * dt,
			Setpoint: setpoint,
			Feedback: feedback[i],
			Control:  control[i],
		})
	}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Errorf("empty metric should be 0, got %f", m.Value())
	}

	feed(m, 0, constant(4, 0), []float64{1, -3, 2, -2}, 0.1)
	if got := m.Value(); math.Abs(got-2) > 1e-12 {
		t.Errorf("expected mean |u| = 2, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestTrackingIntegrals(t *testing.T) {
	tests := []struct {
		name   string
		metric sim.Metric
		want   float64
	}{
		{"iae", NewIAE(), 2},
		{"ise", NewISE(), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// error of 2 held for one second
			feed(tt.metric, 10, constant(11, 8), constant(11, 0), 0.1)
			if got := tt.metric.Value(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
			if tt.metric.Name() != tt.name {
				t.Errorf("name: got %q", tt.metric.Name())
			}

			tt.metric.Reset()
			feed(tt.metric, 10, constant(11, 10), constant(11, 0), 0.1)
			if got := tt.metric.Value(); got != 0 {
				t.Errorf("zero error after reset: got %f", got)
			}
		})
	}
}

func TestErrorStdDev(t *testing.T) {
	m := NewErrorStdDev(4)
	feed(m, 0, []float64{100, -1, -2, -3, -4}, constant(5, 0), 0.1)

	// window holds errors 1, 2, 3, 4
	want := math.Sqrt(5.0 / 3.0)
	if got := m.Value(); math.Abs(got-want) > 1e-12 {
		t.Errorf("got %f, want %f", got, want)
	}

	m.Reset()
	m.Observe(sim.Sample{Setpoint: 1})
	if m.Value() != 0 {
		t.Errorf("single sample should give 0, got %f", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(5)
	if m.Value() != 1 {
		t.Errorf("empty metric should be 1, got %f", m.Value())
	}

	feed(m, 10, []float64{10, 12, 20, math.NaN()}, constant(4, 0), 0.1)
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestDefault(t *testing.T) {
	names := map[string]bool{}
	for _, m := range Default(10) {
		names[m.Name()] = true
	}
	for _, want := range []string{"control_effort", "iae", "ise", "error_stddev", "stability"} {
		if !names[want] {
			t.Errorf("missing metric %q", want)
		}
	}
}

func secondOrderStep(zeta, wn, dt, end float64) ([]float64, []float64) {
	n := int(end/dt) + 1
	times := make([]float64, n)
	y := make([]float64, n)
	wd := wn * math.Sqrt(1-zeta*zeta)
	for i := range times {
		t := float64(i) * dt
		times[i] = t
		y[i] = 1 - math.Exp(-zeta*wn*t)*(math.Cos(wd*t)+zeta/math.Sqrt(1-zeta*zeta)*math.Sin(wd*t))
	}
	return times, y
}

func TestStepUnderdamped(t *testing.T) {
	times, y := secondOrderStep(0.25, 1, 0.01, 40)
	info := Step(times, y, 1)

	wantOvershoot := 100 * math.Exp(-math.Pi*0.25/math.Sqrt(1-0.0625))
	if math.Abs(info.Overshoot-wantOvershoot) > 0.1 {
		t.Errorf("overshoot: got %.3f, want %.3f", info.Overshoot, wantOvershoot)
	}
	if math.Abs(info.PeakTime-math.Pi/math.Sqrt(1-0.0625)) > 0.02 {
		t.Errorf("peak time: got %.3f", info.PeakTime)
	}
	if !info.Rose || info.RiseTime < 0.8 || info.RiseTime > 1.8 {
		t.Errorf("rise time: got %.3f (rose=%v)", info.RiseTime, info.Rose)
	}
	if !info.Settled || info.SettlingTime < 10 || info.SettlingTime > 20 {
		t.Errorf("settling time: got %.3f (settled=%v)", info.SettlingTime, info.Settled)
	}
	if math.Abs(info.SteadyStateErr) > 1e-3 {
		t.Errorf("steady-state error: got %f", info.SteadyStateErr)
	}
}

func TestStepFirstOrder(t *testing.T) {
	n := 1001
	times := make([]float64, n)
	y := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 0.01
		y[i] = 5 * (1 - math.Exp(-times[i]))
	}

	info := Step(times, y, 5)
	if info.Overshoot != 0 {
		t.Errorf("first order should not overshoot, got %f", info.Overshoot)
	}
	// 10-90% rise of a first-order lag is ln(9)
	if math.Abs(info.RiseTime-math.Log(9)) > 0.02 {
		t.Errorf("rise time: got %.4f, want %.4f", info.RiseTime, math.Log(9))
	}
	// 2% settling is ln(50)
	if math.Abs(info.SettlingTime-math.Log(50)) > 0.02 {
		t.Errorf("settling time: got %.4f, want %.4f", info.SettlingTime, math.Log(50))
	}
}

func TestStepDownward(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	y := []float64{10, 4, -1, 0.1, 0}
	info := Step(times, y, 0)

	if info.Peak != -1 || info.PeakTime != 2 {
		t.Errorf("peak: got %f at %f", info.Peak, info.PeakTime)
	}
	if math.Abs(info.Overshoot-10) > 1e-9 {
		t.Errorf("overshoot: got %f, want 10", info.Overshoot)
	}
}

func TestStepDiverging(t *testing.T) {
	times := []float64{0, 1, 2, 3}
	y := []float64{0, -1, -10, -100}
	info := Step(times, y, 10)
	if info.Settled {
		t.Error("diverging response should not settle")
	}
	if info.Rose {
		t.Error("diverging response should not rise")
	}
}

func TestStepEmpty(t *testing.T) {
	info := Step(nil, nil, 3)
	if info.Setpoint != 3 || info.Settled {
		t.Errorf("unexpected info for empty input: %+v", info)
	}
}
