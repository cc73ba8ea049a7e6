package config

import (
	"sort"

	"github.com/san-kum/polecart/internal/policy"
)

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"short": preset(func(c *Config) {
		c.BatchSize = 32
		c.MaxSteps = 200
	}),
	"long": preset(func(c *Config) {
		c.MaxSteps = 5000
	}),
	"explore": preset(func(c *Config) {
		c.Policy.Kind = policy.KindEpsilonGreedy
		c.Policy.EpsilonSchedule.Start = 1.0
		c.Policy.End = 0.1
		c.Policy.Decay = 500
	}),
	"random": preset(func(c *Config) {
		c.Policy.Kind = policy.KindRandom
	}),
	"pd_balance": preset(func(c *Config) {
		c.Model.Kind = policy.KindPD
		c.Policy.Start = StartRandom
	}),
	"heavy_pole": preset(func(c *Config) {
		c.Physics.PoleMass = 0.5
		c.Physics.Length = 1.0
		c.Physics.ForceMag = 20.0
	}),
	"fine_step": preset(func(c *Config) {
		c.Physics.Timestep = 0.005
		c.MaxSteps = 4000
	}),
}

func preset(modify func(c *Config)) *Config {
	cfg := DefaultConfig()
	modify(cfg)
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
