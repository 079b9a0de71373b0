package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/plants"
)

var (
	plantName  string
	setpoint   float64
	runtime    float64
	dt         float64
	kp         float64
	ki         float64
	kd         float64
	noP        bool
	noI        bool
	noD        bool
	integrator string
	tolerance  float64
	configFile string
	preset     string
	verbose    bool
	// Plot size
	width  int
	height int
	// Phase plot columns
	xCol int
	yCol int
	// Tuning
	points  int
	metric  string
	workers int
	saveTo  string
	// Gain sweep
	gain      string
	sweepMin  float64
	sweepMax  float64
	sweepN    int
	sweepTail float64
	// Monte Carlo
	trials  int
	perturb float64
	seed    int64

	logger = zap.NewNop()
)

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// resolveConfig builds the run config from a config file or preset, then
// applies any flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if configFile != "" && preset != "" {
		return nil, fmt.Errorf("use either --config or --preset, not both")
	}
	flags := cmd.Flags()

	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if flags.Changed("plant") {
			cfg.Plant = plantName
		}
	case preset != "":
		name := plants.Lookup(plantName).String()
		cfg = config.GetPreset(name, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
	default:
		cfg = config.ForPlant(plantName)
		// keep the name as typed so an unknown plant is reported
		cfg.Plant = plantName
	}

	if flags.Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if flags.Changed("runtime") {
		cfg.Runtime = runtime
	}
	if flags.Changed("dt") {
		cfg.Stepsize = dt
	}
	if flags.Changed("kp") {
		cfg.Gains.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Gains.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Gains.Kd = kd
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if noP {
		cfg.Enable.P = false
	}
	if noI {
		cfg.Enable.I = false
	}
	if noD {
		cfg.Enable.D = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// main registers the pidsim commands; with no subcommand it opens the
// interactive tuner.
func main() {
	rootCmd := &cobra.Command{
		Use:          "pidsim",
		Short:        "closed-loop pid simulation lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: runTUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&plantName, "plant", config.DefaultPlant, fmt.Sprintf("plant model %v", plants.Names()))
	pf.Float64Var(&setpoint, "setpoint", 0, "setpoint")
	pf.Float64Var(&runtime, "runtime", 0, "simulated seconds")
	pf.Float64Var(&dt, "dt", 0, "step size")
	pf.Float64Var(&kp, "kp", 0, "proportional gain")
	pf.Float64Var(&ki, "ki", 0, "integral gain")
	pf.Float64Var(&kd, "kd", 0, "derivative gain")
	pf.BoolVar(&noP, "no-p", false, "disable the proportional term")
	pf.BoolVar(&noI, "no-i", false, "disable the integral term")
	pf.BoolVar(&noD, "no-d", false, "disable the derivative term")
	pf.StringVar(&integrator, "integrator", config.DefaultIntegrator, "plant integrator (euler, rk4, rk45)")
	pf.Float64Var(&tolerance, "tolerance", 0, "rk45 tolerance")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one closed-loop simulation and print a summary",
		RunE:  runSimulation,
	}

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot the response and control effort in the terminal",
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 20, "plot height")

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "print the plant step log as CSV",
		RunE:  printLog,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase",
		Short: "phase portrait of two plant log columns",
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xCol, "x", 1, "log column for x-axis (0 is time)")
	phaseCmd.Flags().IntVar(&yCol, "y", 2, "log column for y-axis (0 is time)")
	phaseCmd.Flags().IntVar(&width, "width", 80, "plot width")
	phaseCmd.Flags().IntVar(&height, "height", 20, "plot height")

	plantsCmd := &cobra.Command{
		Use:   "plants",
		Short: "list plant models and their tuning ranges",
		RunE:  listPlants,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list available presets for a plant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := plants.Lookup(plantName).String()
			if len(args) > 0 {
				name = args[0]
			}
			presets := config.ListPresets(name)
			if len(presets) == 0 {
				fmt.Printf("no presets for plant: %s\n", name)
				return nil
			}
			fmt.Printf("presets for %s:\n", name)
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search the gains over the plant's ranges",
		RunE:  tuneGains,
	}
	tuneCmd.Flags().IntVar(&points, "points", 5, "grid points per gain")
	tuneCmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimize")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = one per CPU)")
	tuneCmd.Flags().StringVar(&saveTo, "save", "", "write the tuned config to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "step response summary and frequency analysis",
		RunE:  analyzeRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one gain and plot the late-time feedback values",
		RunE:  sweepGain,
	}
	sweepCmd.Flags().StringVar(&gain, "gain", "kp", "gain to sweep (kp, ki, kd)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep start")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "sweep end (0 = plant maximum)")
	sweepCmd.Flags().IntVar(&sweepN, "steps", 40, "number of gain values")
	sweepCmd.Flags().Float64Var(&sweepTail, "tail", 0, "seconds of each run to keep (0 = last fifth)")
	sweepCmd.Flags().IntVar(&width, "width", 80, "plot width")
	sweepCmd.Flags().IntVar(&height, "height", 20, "plot height")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the run with every integrator",
		RunE:  benchIntegrators,
	}

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "run and write the result (csv, json, svg, png, html)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write the resolved configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario in order",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	robustCmd := &cobra.Command{
		Use:   "robust",
		Short: "monte carlo study of random gain perturbations",
		RunE:  runRobust,
	}
	robustCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	robustCmd.Flags().Float64Var(&perturb, "perturb", 0.2, "relative gain perturbation")
	robustCmd.Flags().Int64Var(&seed, "seed", 1, "random seed (0 = clock)")
	robustCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = one per CPU)")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive gain tuner",
		RunE:  runTUI,
	}

	rootCmd.AddCommand(runCmd, plotCmd, logCmd, phaseCmd, plantsCmd, presetsCmd, tuneCmd, analyzeCmd, sweepCmd, benchCmd, exportCmd, initCmd, scenarioCmd, robustCmd, tuiCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
