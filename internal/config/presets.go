package config

import (
	"sort"

	"github.com/san-kum/pidsim/internal/control"
)

func preset(plant string, setpoint, runtime, dt, kp, ki, kd float64) *Config {
	return &Config{
		Plant: plant, Integrator: DefaultIntegrator, Setpoint: setpoint, Runtime: runtime, Stepsize: dt,
		Gains:  GainsConfig{Kp: kp, Ki: ki, Kd: kd},
		Enable: EnableConfig{P: true, I: true, D: true},
		PID:    PIDConfig{Min: -control.DefaultLimit, Max: control.DefaultLimit},
	}
}

var Presets = map[string]map[string]*Config{
	"Reactor": {
		"default":  preset("Reactor", 10, 30, 0.05, 5, 5, 5),
		"gentle":   preset("Reactor", 10, 30, 0.05, 1, 0.5, 0),
		"open":     preset("Reactor", 10, 30, 0.05, 0, 0, 0),
		"setpoint": preset("Reactor", 340, 30, 0.05, 5, 5, 0),
	},
	"DC Motor": {
		"default":  preset("DC Motor", 10, 100, 0.05, 500, 500, 500),
		"elevator": preset("DC Motor", 10, 100, 0.05, 500, 500, 0.01),
		"freefall": preset("DC Motor", 10, 10, 0.05, 0, 0, 0),
	},
	"2nd Order ODE": {
		"default": preset("2nd Order ODE", 10, 30, 0.05, 5, 5, 5),
		"open":    preset("2nd Order ODE", 10, 30, 0.05, 0, 0, 0),
		"pi":      preset("2nd Order ODE", 1, 30, 0.05, 0.5, 0.5, 0),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, name string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

// ListPresets returns the preset names for plant in sorted order.
func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
