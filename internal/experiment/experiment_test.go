package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/sim"
)

func TestRegistryIntegrators(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"euler", "rk4", "rk45"} {
		if _, err := r.GetIntegrator(name, 1e-6); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := r.GetIntegrator("verlet", 0); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if got := r.ListIntegrators(); len(got) != 3 || got[0] != "euler" {
		t.Errorf("unexpected integrator list: %v", got)
	}
}

func TestRegistryPlants(t *testing.T) {
	r := NewRegistry()

	if len(r.ListPlants()) != 3 {
		t.Errorf("expected 3 plants, got %v", r.ListPlants())
	}
	if !r.HasPlant("DC Motor") || r.HasPlant("dc motor") {
		t.Error("HasPlant should match display names exactly")
	}

	p, err := r.GetPlant("Unknown", "rk4", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "Reactor" {
		t.Errorf("expected reactor fallback, got %s", p.Name())
	}
}

func TestExperimentRun(t *testing.T) {
	cfg := config.GetPreset("2nd Order ODE", "pi")
	cfg.Runtime = 5

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() != 101 {
		t.Errorf("expected 101 points, got %d", res.Len())
	}
	for _, name := range []string{"iae", "control_effort"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing metric %q", name)
		}
	}
}

func TestExperimentIntegratorsAgree(t *testing.T) {
	var finals []float64
	for _, integ := range []string{"rk45", "rk4"} {
		cfg := config.GetPreset("2nd Order ODE", "pi")
		cfg.Runtime = 5
		cfg.Integrator = integ

		exp, err := New(cfg, nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := exp.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		finals = append(finals, res.Final())
	}
	if d := finals[0] - finals[1]; d > 1e-5 || d < -1e-5 {
		t.Errorf("rk45 and rk4 disagree: %v", finals)
	}
}

func TestExperimentFactory(t *testing.T) {
	cfg := config.GetPreset("Reactor", "gentle")
	cfg.Runtime = 2

	exp, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	params := []sim.Params{cfg.Params(), cfg.Params()}
	results, err := sim.Sweep(context.Background(), exp.Factory(), params, 2)
	if err != nil {
		t.Fatal(err)
	}
	want, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.Final() != want.Final() {
			t.Errorf("sweep result %f differs from run %f", res.Final(), want.Final())
		}
	}
}

func TestExperimentInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Stepsize = 0
	if _, err := New(cfg, nil); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
