package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/experiment"
	"github.com/san-kum/pidsim/internal/export"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string
	Description string
	Steps       []Step
}

// Step is one run of a scenario. Config is seeded from the step's preset,
// or the plant defaults, before the step's own fields are applied.
type Step struct {
	Name   string
	SaveAs string
	Config *config.Config
}

type rawScenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []yaml.Node `yaml:"steps"`
}

type stepHeader struct {
	Name   string `yaml:"name"`
	Plant  string `yaml:"plant"`
	Preset string `yaml:"preset"`
	SaveAs string `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func ParseScenario(data []byte) (*Scenario, error) {
	var raw rawScenario
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", raw.Name)
	}

	sc := &Scenario{Name: raw.Name, Description: raw.Description}
	for i := range raw.Steps {
		node := &raw.Steps[i]
		var h stepHeader
		if err := node.Decode(&h); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		var cfg *config.Config
		if h.Preset != "" {
			plant := plants.Lookup(h.Plant).String()
			cfg = config.GetPreset(plant, h.Preset)
			if cfg == nil {
				return nil, fmt.Errorf("step %d: unknown preset %s for %s", i+1, h.Preset, plant)
			}
		} else {
			cfg = config.ForPlant(h.Plant)
		}
		if err := node.Decode(cfg); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		name := h.Name
		if name == "" {
			name = fmt.Sprintf("%s #%d", cfg.Plant, i+1)
		}
		sc.Steps = append(sc.Steps, Step{Name: name, SaveAs: h.SaveAs, Config: cfg})
	}
	return sc, nil
}

// StepResult pairs a step with its run and the plant that produced it.
type StepResult struct {
	Step   Step
	Result *sim.Result
	Plant  plants.Plant
}

// RunScenario executes all steps in order. Steps with SaveAs are exported
// as soon as they finish. The first failing step stops the scenario and
// the results so far are returned with the error.
func RunScenario(ctx context.Context, sc *Scenario, logger *zap.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		logger.Info("scenario step",
			zap.String("scenario", sc.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(sc.Steps)),
			zap.String("name", step.Name),
		)

		exp, err := experiment.New(step.Config, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		plant := exp.Loop().Plant()

		if step.SaveAs != "" {
			if err := export.ToFile(step.SaveAs, res, plant, step.Config.Integrator); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, StepResult{Step: step, Result: res, Plant: plant})
	}

	return results, nil
}

// MonteCarloConfig defines a gain robustness study: every trial scales
// each gain by an independent factor drawn from [1-Perturbation, 1+Perturbation].
type MonteCarloConfig struct {
	Perturbation float64
	NumTrials    int
	Seed         int64
	Workers      int
	// Bound is the largest |feedback - setpoint| a stable run may reach.
	Bound float64
}

// MonteCarloResult holds the outcome of one trial
type MonteCarloResult struct {
	Trial  int
	Params sim.Params
	Final  float64
	MaxDev float64
	Stable bool
	Err    error
}

// Perturb draws the trial parameters. The same seed always gives the same
// trials; seed 0 uses the clock.
func Perturb(base sim.Params, cfg MonteCarloConfig) []sim.Params {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	factor := func() float64 {
		return 1 + (rng.Float64()-0.5)*2*cfg.Perturbation
	}

	out := make([]sim.Params, cfg.NumTrials)
	for i := range out {
		p := base
		p.Kp *= factor()
		p.Ki *= factor()
		p.Kd *= factor()
		out[i] = p
	}
	return out
}

// RunMonteCarlo runs the perturbed trials concurrently. A run that fails
// to integrate is reported as unstable rather than aborting the study.
func RunMonteCarlo(ctx context.Context, newLoop sim.Factory, base sim.Params, cfg MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo: need at least one trial, got %d", cfg.NumTrials)
	}
	bound := cfg.Bound
	if bound <= 0 {
		bound = 1e6
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	params := Perturb(base, cfg)
	results := make([]MonteCarloResult, len(params))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range params {
		g.Go(func() error {
			r := MonteCarloResult{Trial: i, Params: p}
			res, err := newLoop().Run(ctx, p)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				r.Err = err
				results[i] = r
				return nil
			}
			r.Final = res.Final()
			for _, v := range res.Feedback {
				r.MaxDev = math.Max(r.MaxDev, math.Abs(v-p.Setpoint))
			}
			r.Stable = r.MaxDev <= bound
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo: %w", err)
	}
	return results, nil
}

// StableFraction is the share of trials that stayed within bound.
func StableFraction(results []MonteCarloResult) float64 {
	if len(results) == 0 {
		return 0
	}
	n := 0
	for _, r := range results {
		if r.Stable {
			n++
		}
	}
	return float64(n) / float64(len(results))
}
