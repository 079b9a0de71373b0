package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pidsim/internal/control"
	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/integrators"
	"github.com/san-kum/pidsim/internal/plants"
	"github.com/san-kum/pidsim/internal/sim"
)

const (
	DefaultPlant      = "Reactor"
	DefaultIntegrator = "rk45"
)

type Config struct {
	Plant      string       `yaml:"plant"`
	Integrator string       `yaml:"integrator"`
	Tolerance  float64      `yaml:"tolerance"`
	Setpoint   float64      `yaml:"setpoint"`
	Runtime    float64      `yaml:"runtime"`
	Stepsize   float64      `yaml:"stepsize"`
	Gains      GainsConfig  `yaml:"gains"`
	Enable     EnableConfig `yaml:"enable"`
	PID        PIDConfig    `yaml:"pid"`
}

type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// EnableConfig switches individual PID terms on or off. A disabled term
// runs with a zero gain.
type EnableConfig struct {
	P bool `yaml:"p"`
	I bool `yaml:"i"`
	D bool `yaml:"d"`
}

type PIDConfig struct {
	Beta               float64 `yaml:"beta"`
	Gamma              float64 `yaml:"gamma"`
	Min                float64 `yaml:"min"`
	Max                float64 `yaml:"max"`
	AccumulateIntegral bool    `yaml:"accumulate_integral"`
}

func DefaultConfig() *Config {
	return ForPlant(DefaultPlant)
}

// ForPlant seeds a config from the plant's advertised controls. Unknown
// names resolve to the reactor.
func ForPlant(name string) *Config {
	kind := plants.Lookup(name)
	c := plants.New(kind).Controls()
	return &Config{
		Plant:      kind.String(),
		Integrator: DefaultIntegrator,
		Tolerance:  integrators.DefaultTolerance,
		Setpoint:   c.Setpoint,
		Runtime:    c.Runtime,
		Stepsize:   c.Stepsize,
		Gains: GainsConfig{
			Kp: c.Kp.Default,
			Ki: c.Ki.Default,
			Kd: c.Kd.Default,
		},
		Enable: EnableConfig{P: true, I: true, D: true},
		PID: PIDConfig{
			Min: -control.DefaultLimit,
			Max: control.DefaultLimit,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// seed defaults from the named plant before applying overrides
	var probe struct {
		Plant string `yaml:"plant"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg := ForPlant(probe.Plant)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params converts the config into loop parameters, zeroing disabled gains.
func (c *Config) Params() sim.Params {
	p := sim.Params{
		Setpoint: c.Setpoint,
		Runtime:  c.Runtime,
		Dt:       c.Stepsize,
		Kp:       c.Gains.Kp,
		Ki:       c.Gains.Ki,
		Kd:       c.Gains.Kd,
	}
	return p.Disable(!c.Enable.P, !c.Enable.I, !c.Enable.D)
}

// NewController builds a PID with the configured weights and limits.
func (c *Config) NewController() *control.PID {
	pid := control.NewPID()
	pid.Beta = c.PID.Beta
	pid.Gamma = c.PID.Gamma
	pid.AccumulateIntegral = c.PID.AccumulateIntegral
	pid.SetLimits(c.PID.Min, c.PID.Max)
	return pid
}

func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Runtime < 0 {
		return fmt.Errorf("runtime must not be negative, got %g: %w", c.Runtime, dynamo.ErrParameterBounds)
	}
	if c.PID.Min > c.PID.Max {
		return fmt.Errorf("pid min %g exceeds max %g: %w", c.PID.Min, c.PID.Max, dynamo.ErrParameterBounds)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g: %w", c.Tolerance, dynamo.ErrParameterBounds)
	}
	return nil
}
