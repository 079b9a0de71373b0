package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/experiment"
	"github.com/san-kum/pidsim/internal/metrics"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

// Gain identifies one PID term in the tuner.
type Gain int

const (
	GainP Gain = iota
	GainI
	GainD
)

var gainNames = [...]string{"Kp", "Ki", "Kd"}

func (g Gain) String() string { return gainNames[g] }

// weightStep is how far one key press moves a set-point weight.
const weightStep = 0.1

type resultMsg struct {
	seq int
	res *sim.Result
	err error
}

// Tuner is a bubbletea model that reruns the closed loop whenever a gain,
// toggle or plant changes and plots the response against the setpoint.
type Tuner struct {
	kinds    []plants.Kind
	plant    int
	cfg      *config.Config
	controls plants.Controls
	plot     plants.PlotSettings
	cursor   Gain

	seq     int
	running bool
	result  *sim.Result
	step    metrics.StepInfo
	err     error

	width, height int
	logger        *zap.Logger
}

func NewTuner(cfg *config.Config, logger *zap.Logger) Tuner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := *cfg
	t := Tuner{
		kinds:   plants.Kinds(),
		cfg:     &c,
		running: true,
		width:   80,
		height:  24,
		logger:  logger,
	}
	kind := plants.Lookup(cfg.Plant)
	for i, k := range t.kinds {
		if k == kind {
			t.plant = i
		}
	}
	t.cfg.Plant = kind.String()
	t.describe(kind)
	return t
}

func (m *Tuner) describe(kind plants.Kind) {
	p := plants.New(kind)
	m.controls = p.Controls()
	m.plot = p.Plot()
}

// Config returns the settings the next run will use.
func (m Tuner) Config() config.Config { return *m.cfg }

func (m Tuner) Result() *sim.Result { return m.result }
func (m Tuner) Err() error          { return m.err }
func (m Tuner) Running() bool       { return m.running }
func (m Tuner) Cursor() Gain        { return m.cursor }

func (m Tuner) Init() tea.Cmd {
	return m.simulate(m.seq)
}

// rerun marks the current result stale and schedules a new run.
func (m Tuner) rerun() (Tuner, tea.Cmd) {
	m.seq++
	m.running = true
	return m, m.simulate(m.seq)
}

func (m Tuner) simulate(seq int) tea.Cmd {
	cfg := *m.cfg
	logger := m.logger
	return func() tea.Msg {
		exp, err := experiment.New(&cfg, logger)
		if err != nil {
			return resultMsg{seq: seq, err: err}
		}
		res, err := exp.Run(context.Background())
		return resultMsg{seq: seq, res: res, err: err}
	}
}

func (m Tuner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case resultMsg:
		// results of superseded runs are dropped
		if msg.seq != m.seq {
			return m, nil
		}
		m.running = false
		m.err = msg.err
		if msg.err != nil {
			m.result = nil
			m.logger.Debug("tuner run failed", zap.Error(msg.err))
			return m, nil
		}
		m.result = msg.res
		m.step = metrics.Step(msg.res.Times, msg.res.Feedback, msg.res.Params.Setpoint)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Tuner) handleKey(msg tea.KeyMsg) (Tuner, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "n":
		m.selectPlant(m.plant + 1)
		return m.rerun()
	case "shift+tab", "N":
		m.selectPlant(m.plant - 1)
		return m.rerun()
	case "up", "k":
		if m.cursor > GainP {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < GainD {
			m.cursor++
		}
	case "left", "h":
		m.adjust(m.cursor, -1)
		return m.rerun()
	case "right", "l":
		m.adjust(m.cursor, 1)
		return m.rerun()
	case "p":
		m.cfg.Enable.P = !m.cfg.Enable.P
		return m.rerun()
	case "i":
		m.cfg.Enable.I = !m.cfg.Enable.I
		return m.rerun()
	case "d":
		m.cfg.Enable.D = !m.cfg.Enable.D
		return m.rerun()
	case "b":
		m.weight("Beta", 1)
		return m.rerun()
	case "B":
		m.weight("Beta", -1)
		return m.rerun()
	case "g":
		m.weight("Gamma", 1)
		return m.rerun()
	case "G":
		m.weight("Gamma", -1)
		return m.rerun()
	case "0":
		m.cfg.Gains = config.ForPlant(m.cfg.Plant).Gains
		return m.rerun()
	case "r", "enter":
		return m.rerun()
	}
	return m, nil
}

// selectPlant switches to the plant at index i (wrapping) and loads its
// default controls. Solver and PID options carry over.
func (m *Tuner) selectPlant(i int) {
	n := len(m.kinds)
	m.plant = ((i % n) + n) % n
	kind := m.kinds[m.plant]

	next := config.ForPlant(kind.String())
	next.Integrator = m.cfg.Integrator
	next.Tolerance = m.cfg.Tolerance
	next.Enable = m.cfg.Enable
	next.PID = m.cfg.PID
	m.cfg = next

	m.describe(kind)
	m.result = nil
	m.err = nil
}

func (m *Tuner) gain(g Gain) (*float64, plants.GainRange, *bool) {
	switch g {
	case GainI:
		return &m.cfg.Gains.Ki, m.controls.Ki, &m.cfg.Enable.I
	case GainD:
		return &m.cfg.Gains.Kd, m.controls.Kd, &m.cfg.Enable.D
	default:
		return &m.cfg.Gains.Kp, m.controls.Kp, &m.cfg.Enable.P
	}
}

// adjust moves gain g by dir steps of its range, clamped to the range.
func (m *Tuner) adjust(g Gain, dir float64) {
	v, r, _ := m.gain(g)
	*v = r.Clamp(*v + dir*r.Step)
}

// weight moves the named set-point weight of the configured controller by
// dir steps, kept within [0, 1].
func (m *Tuner) weight(name string, dir float64) {
	pid := m.cfg.NewController()
	v := pid.GetParams()[name] + dir*weightStep
	pid.SetParam(name, math.Round(min(max(v, 0), 1)/weightStep)*weightStep)
	m.cfg.PID.Beta = pid.Beta
	m.cfg.PID.Gamma = pid.Gamma
}

func (m Tuner) View() string {
	var b strings.Builder
	b.WriteString("\n  " + GradientText("PIDSIM", "#00ffff", "#ff00ff") + "  " + Subtle.Render("closed-loop pid tuner") + "\n\n  ")

	for i, k := range m.kinds {
		label := " " + k.String() + " "
		if i == m.plant {
			b.WriteString(NeonGlow.Render(label))
		} else {
			b.WriteString(Subtle.Render(label))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	m.viewGains(&b)
	b.WriteString("\n")
	b.WriteString(m.viewChart())
	b.WriteString("\n")
	m.viewMetrics(&b)

	b.WriteString("\n  " + KeyHint.Render("tab plant  j/k gain  h/l adjust  p/i/d toggle  b/B g/G weights  0 defaults  r rerun  q quit") + "\n")
	return b.String()
}

func (m Tuner) viewGains(b *strings.Builder) {
	for g := GainP; g <= GainD; g++ {
		v, r, on := m.gain(g)
		box := "[ ]"
		if *on {
			box = "[x]"
		}
		frac := 0.0
		if r.Max > r.Min {
			frac = (*v - r.Min) / (r.Max - r.Min)
		}
		name := fmt.Sprintf("%s %s", box, g)
		if g == m.cursor {
			name = NeonGlow.Render("▸ " + name)
		} else {
			name = Subtle.Render("  " + name)
		}
		fmt.Fprintf(b, "  %s  %s %s  %s\n",
			name,
			MetricValue.Render(fmt.Sprintf("%10.4g", *v)),
			ProgressBar(frac, 24),
			Subtle.Render(fmt.Sprintf("%g..%g step %g", r.Min, r.Max, r.Step)),
		)
	}
	fmt.Fprintf(b, "  %s %s   %s %s   %s %s\n",
		MetricLabel.Render("setpoint"), MetricValue.Render(fmt.Sprintf("%g", m.cfg.Setpoint)),
		Subtle.Render("runtime"), MetricValue.Render(fmt.Sprintf("%g", m.cfg.Runtime)),
		Subtle.Render("dt"), MetricValue.Render(fmt.Sprintf("%g", m.cfg.Stepsize)),
	)
	w := m.cfg.NewController().GetParams()
	fmt.Fprintf(b, "  %s %s   %s %s   %s %s\n",
		MetricLabel.Render("beta"), MetricValue.Render(fmt.Sprintf("%.1f", w["Beta"])),
		Subtle.Render("gamma"), MetricValue.Render(fmt.Sprintf("%.1f", w["Gamma"])),
		Subtle.Render("limits"), MetricValue.Render(fmt.Sprintf("%g..%g", w["Min"], w["Max"])),
	)
}

func (m Tuner) chartSize() (int, int) {
	w := max(m.width-16, 20)
	h := max(m.height-22, 6)
	return w, h
}

func (m Tuner) viewChart() string {
	switch {
	case m.err != nil:
		return GlassPanel.Render(StatusFailed.Render("run failed: ") + m.err.Error())
	case m.result == nil || m.result.Len() == 0:
		return GlassPanel.Render(StatusRunning.Render("running..."))
	}
	w, h := m.chartSize()
	setpoint := make([]float64, m.result.Len())
	for i := range setpoint {
		setpoint[i] = m.result.Params.Setpoint
	}
	chart := asciigraph.PlotMany(
		[][]float64{m.result.Feedback, setpoint},
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.Caption(fmt.Sprintf("%s (%s vs %s)", m.plot.Title, m.plot.YLabel, m.plot.XLabel)),
	)
	status := ""
	if m.running {
		status = "\n" + StatusRunning.Render("updating...")
	}
	return GlassPanel.Render(chart + status)
}

func (m Tuner) viewMetrics(b *strings.Builder) {
	if m.result == nil {
		return
	}
	b.WriteString("  " + HeaderStyle.Render("response") + "\n")
	row := func(label, value string) {
		b.WriteString("  " + MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("final", fmt.Sprintf("%.4g", m.step.Final))
	row("overshoot", fmt.Sprintf("%.2f%%", m.step.Overshoot))
	if m.step.Rose {
		row("rise time", fmt.Sprintf("%.4g", m.step.RiseTime))
	} else {
		row("rise time", "-")
	}
	if m.step.Settled {
		row("settling", fmt.Sprintf("%.4g", m.step.SettlingTime))
	} else {
		row("settling", "-")
	}
	row("ss error", fmt.Sprintf("%.4g", m.step.SteadyStateErr))

	names := make([]string, 0, len(m.result.Metrics))
	for name := range m.result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.4g", m.result.Metrics[name]))
	}
	w, _ := m.chartSize()
	b.WriteString("  " + MetricLabel.Render("control") + SparklineChart(m.result.Control, w) + "\n")
}

// RunTuner starts the tuner full screen and blocks until it exits.
func RunTuner(cfg *config.Config, logger *zap.Logger) error {
	_, err := tea.NewProgram(NewTuner(cfg, logger), tea.WithAltScreen()).Run()
	return err
}
