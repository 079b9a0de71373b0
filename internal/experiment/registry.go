package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/integrators"
	"github.com/san-kum/pidsim/internal/metrics"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

type Registry struct {
	plants      map[string]plants.Kind
	integrators map[string]func(tol float64) dynamo.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]plants.Kind),
		integrators: make(map[string]func(float64) dynamo.Solver),
	}

	for _, k := range plants.Kinds() {
		r.plants[k.String()] = k
	}

	r.integrators["euler"] = func(float64) dynamo.Solver { return integrators.NewEuler() }
	r.integrators["rk4"] = func(float64) dynamo.Solver { return integrators.NewRK4() }
	r.integrators["rk45"] = func(tol float64) dynamo.Solver { return integrators.NewRK45WithTolerance(tol) }

	return r
}

// GetPlant builds a plant using the named integrator. Unknown plant names
// select the reactor.
func (r *Registry) GetPlant(name, integrator string, tol float64) (plants.Plant, error) {
	solver, err := r.GetIntegrator(integrator, tol)
	if err != nil {
		return nil, err
	}
	return plants.New(plants.Lookup(name), plants.WithSolver(solver)), nil
}

// HasPlant reports whether name selects a plant without falling back.
func (r *Registry) HasPlant(name string) bool {
	_, ok := r.plants[name]
	return ok
}

func (r *Registry) GetIntegrator(name string, tol float64) (dynamo.Solver, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(tol), nil
}

func (r *Registry) ListPlants() []string {
	return plants.Names()
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(setpoint float64) []sim.Metric {
	return metrics.Default(setpoint)
}
