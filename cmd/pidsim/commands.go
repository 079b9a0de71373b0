package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pidsim/internal/analysis"
	"github.com/san-kum/pidsim/internal/automation"
	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/experiment"
	"github.com/san-kum/pidsim/internal/export"
	"github.com/san-kum/pidsim/internal/metrics"
	"github.com/san-kum/pidsim/internal/optim"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
	"github.com/san-kum/pidsim/internal/viz"
)

// simulate resolves the config, runs it once and returns the experiment
// so callers can reach the plant log.
func simulate(cmd *cobra.Command) (*config.Config, *experiment.Experiment, *sim.Result, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := exp.Run(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, exp, res, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("running %s simulation...\n", exp.Loop().Plant().Name())
	start := time.Now()

	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	p := res.Params
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("integrator: %s\n", cfg.Integrator)
	fmt.Printf("gains: kp=%g ki=%g kd=%g\n", p.Kp, p.Ki, p.Kd)
	fmt.Printf("steps: %d\n", res.Len())
	fmt.Printf("final: %.6f (setpoint %g)\n", res.Final(), p.Setpoint)

	printStep(metrics.Step(res.Times, res.Feedback, p.Setpoint))
	printMetrics(res.Metrics)
	return nil
}

func printStep(info metrics.StepInfo) {
	fmt.Println("\nstep response:")
	fmt.Printf("  peak: %.6f at %.3fs\n", info.Peak, info.PeakTime)
	fmt.Printf("  overshoot: %.2f%%\n", info.Overshoot)
	if info.Rose {
		fmt.Printf("  rise time: %.3fs\n", info.RiseTime)
	} else {
		fmt.Println("  rise time: -")
	}
	if info.Settled {
		fmt.Printf("  settling time: %.3fs\n", info.SettlingTime)
	} else {
		fmt.Println("  settling time: -")
	}
	fmt.Printf("  steady-state error: %.6f (std %.6f)\n", info.SteadyStateErr, info.SteadyStateStd)
}

func printMetrics(values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, values[name])
	}
}

func plotRun(cmd *cobra.Command, args []string) error {
	_, exp, res, err := simulate(cmd)
	if err != nil {
		return err
	}
	settings := exp.Loop().Plant().Plot()

	target := make([]float64, res.Len())
	for i := range target {
		target[i] = res.Params.Setpoint
	}

	fmt.Printf("plant: %s\n", res.Plant)
	fmt.Printf("samples: %d\n\n", res.Len())

	graph := asciigraph.PlotMany([][]float64{res.Feedback, target},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.Caption(fmt.Sprintf("%s: %s vs %s", settings.Title, settings.YLabel, settings.XLabel)),
	)
	fmt.Println(graph)
	fmt.Println()

	graph = asciigraph.Plot(res.Control,
		asciigraph.Height(max(height/2, 3)),
		asciigraph.Width(width),
		asciigraph.Caption("control effort"),
	)
	fmt.Println(graph)
	return nil
}

func printLog(cmd *cobra.Command, args []string) error {
	_, exp, _, err := simulate(cmd)
	if err != nil {
		return err
	}
	return export.WriteLogCSV(os.Stdout, exp.Loop().Plant())
}

func phasePlot(cmd *cobra.Command, args []string) error {
	_, exp, _, err := simulate(cmd)
	if err != nil {
		return err
	}
	portrait, err := analysis.PhasePortraitFromLog(exp.Loop().Plant(), xCol, yCol)
	if err != nil {
		return err
	}

	fmt.Printf("phase portrait: %s vs %s (%d points)\n\n", portrait.YLabel, portrait.XLabel, len(portrait.Points))
	fmt.Println(analysis.PhasePortraitToASCII(portrait, width, height))
	return nil
}

func listPlants(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLANT\tSETPOINT\tRUNTIME\tDT\tKP\tKI\tKD\tLOG")

	gainRange := func(r plants.GainRange) string {
		return fmt.Sprintf("%g..%g/%g", r.Min, r.Max, r.Step)
	}
	for _, kind := range plants.Kinds() {
		p := plants.New(kind)
		c := p.Controls()
		fmt.Fprintf(w, "%s\t%g\t%gs\t%gs\t%s\t%s\t%s\t%v\n",
			p.Name(),
			c.Setpoint,
			c.Runtime,
			c.Stepsize,
			gainRange(c.Kp),
			gainRange(c.Ki),
			gainRange(c.Kd),
			p.Columns(),
		)
	}
	return w.Flush()
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}
	c := exp.Loop().Plant().Controls()

	var names []string
	var ranges [][]float64
	add := func(name string, on bool, r plants.GainRange) {
		if on {
			names = append(names, name)
			ranges = append(ranges, optim.Linspace(r.Min, r.Max, points))
		}
	}
	add("kp", cfg.Enable.P, c.Kp)
	add("ki", cfg.Enable.I, c.Ki)
	add("kd", cfg.Enable.D, c.Kd)
	if len(names) == 0 {
		return fmt.Errorf("all gains disabled, nothing to tune")
	}

	opts := []optim.Option{optim.WithLogger(logger)}
	if workers > 0 {
		opts = append(opts, optim.WithWorkers(workers))
	}
	search := optim.NewGridSearch(names, ranges, opts...)

	fmt.Printf("tuning %v on %s (%d runs, minimizing %s)...\n", names, exp.Loop().Plant().Name(), pow(points, len(names)), metric)
	start := time.Now()
	best, score, err := search.Search(cmd.Context(), exp.Factory(), cfg.Params(), metric)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("best %s: %.6f\n", metric, score)

	for _, name := range names {
		fmt.Printf("  %s: %g\n", name, best[name])
	}

	if saveTo == "" {
		return nil
	}
	if v, ok := best["kp"]; ok {
		cfg.Gains.Kp = v
	}
	if v, ok := best["ki"]; ok {
		cfg.Gains.Ki = v
	}
	if v, ok := best["kd"]; ok {
		cfg.Gains.Kd = v
	}
	if err := config.Save(saveTo, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", saveTo)
	return nil
}

func pow(base, exp int) int {
	n := 1
	for range exp {
		n *= base
	}
	return n
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, _, res, err := simulate(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", res.Plant)
	fmt.Printf("samples: %d, dt: %g\n", res.Len(), cfg.Stepsize)
	printStep(metrics.Step(res.Times, res.Feedback, res.Params.Setpoint))

	_, power := analysis.Spectrum(res.Feedback, cfg.Stepsize)
	if len(power) >= 8 {
		graph := asciigraph.Plot(power[:len(power)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (feedback)"),
		)
		fmt.Println()
		fmt.Println(graph)
	}

	fmt.Println()
	freq := analysis.DominantFrequency(res.Feedback, cfg.Stepsize)
	fmt.Printf("dominant frequency: %.4f hz\n", freq)
	if freq > 0 {
		fmt.Printf("spectral period: %.3f s\n", 1.0/freq)
	}
	if period := analysis.Period(res.Times, res.Feedback, res.Params.Setpoint); period > 0 {
		fmt.Printf("setpoint crossing period: %.3f s\n", period)
	}
	return nil
}

func sweepGain(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	c := exp.Loop().Plant().Controls()
	hi := sweepMax
	if hi == 0 {
		switch gain {
		case "kp":
			hi = c.Kp.Max
		case "ki":
			hi = c.Ki.Max
		case "kd":
			hi = c.Kd.Max
		}
	}
	tail := sweepTail
	if tail <= 0 {
		tail = cfg.Runtime / 5
	}

	data, err := analysis.GainSweep(cmd.Context(), exp.Factory(), cfg.Params(), gain, sweepMin, hi, sweepN, tail)
	if err != nil {
		return err
	}

	fmt.Printf("%s sweep on %s: %g..%g, last %gs of each run\n\n", gain, exp.Loop().Plant().Name(), sweepMin, hi, tail)
	fmt.Println(analysis.BifurcationToASCII(data, width, height))
	return nil
}

func benchIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	fmt.Printf("benchmarking %s\n\n", plants.Lookup(cfg.Plant))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tTIME\tSTEPS/SEC\tFINAL")

	for _, name := range registry.ListIntegrators() {
		c := *cfg
		c.Integrator = name
		exp, err := experiment.New(&c, logger)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := exp.Run(cmd.Context())
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", name, err)
			continue
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.6f\n",
			name, res.Len(), elapsed, float64(res.Len())/elapsed.Seconds(), res.Final())
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, exp, res, err := simulate(cmd)
	if err != nil {
		return err
	}
	if err := export.ToFile(args[0], res, exp.Loop().Plant(), cfg.Integrator); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d samples)\n", args[0], res.Len())
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	results, err := automation.RunScenario(cmd.Context(), sc, logger)
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPLANT\tSTEPS\tFINAL\tOVERSHOOT\tIAE\tSAVED")
	for _, r := range results {
		info := metrics.Step(r.Result.Times, r.Result.Feedback, r.Result.Params.Setpoint)
		saved := r.Step.SaveAs
		if saved == "" {
			saved = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.6f\t%.2f%%\t%.6f\t%s\n",
			r.Step.Name, r.Result.Plant, r.Result.Len(), r.Result.Final(), info.Overshoot, r.Result.Metrics["iae"], saved)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runRobust(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return err
	}

	mc := automation.MonteCarloConfig{
		Perturbation: perturb,
		NumTrials:    trials,
		Seed:         seed,
		Workers:      workers,
	}
	fmt.Printf("robustness of %s: %d trials, gains ±%.0f%%\n", exp.Loop().Plant().Name(), trials, perturb*100)
	start := time.Now()
	results, err := automation.RunMonteCarlo(cmd.Context(), exp.Factory(), cfg.Params(), mc)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	finals := make([]float64, 0, len(results))
	worst := 0.0
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		finals = append(finals, r.Final)
		worst = max(worst, r.MaxDev)
	}
	fmt.Printf("stable: %.1f%%\n", automation.StableFraction(results)*100)
	fmt.Printf("failed runs: %d\n", failed)
	fmt.Printf("worst deviation: %.6f\n", worst)
	if len(finals) > 0 {
		fmt.Printf("final values: %s\n", viz.SparklineChart(finals, min(len(finals), 60)))
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	return viz.RunTuner(cfg, logger)
}
