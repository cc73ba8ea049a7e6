package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/policy"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBackend  = "auto"
	DefaultMaxSteps = 1000
	DefaultSeed     = 42
	DefaultHidden   = 16

	DefaultEpsilonStart = 0.9
	DefaultEpsilonEnd   = 0.05
	DefaultEpsilonDecay = 200
)

type Config struct {
	Backend string `yaml:"backend"`
	// Workers caps the CPU backend's goroutines; 0 means GOMAXPROCS.
	Workers   int             `yaml:"workers"`
	BatchSize int             `yaml:"batch_size"`
	MaxSteps  int             `yaml:"max_steps"`
	Seed      uint64          `yaml:"seed"`
	Physics   cartpole.Params `yaml:"physics"`
	Policy    PolicyConfig    `yaml:"policy"`
	Model     ModelConfig     `yaml:"model"`
}

// Start values for PolicyConfig.Start. Empty keeps the policy's own default:
// zeroed for model-driven policies, randomized for the random policy.
const (
	StartZero   = "zero"
	StartRandom = "random"
)

type PolicyConfig struct {
	Kind                   string `yaml:"kind"`
	Start                  string `yaml:"start,omitempty"`
	policy.EpsilonSchedule `yaml:",inline"`
}

type ModelConfig struct {
	Kind   string `yaml:"kind"`
	Hidden int    `yaml:"hidden"`
	// Weights optionally points at a YAML weight file; empty means a freshly
	// initialized network seeded from Config.Seed.
	Weights string `yaml:"weights,omitempty"`

	// PD gains, used when Kind is "pd".
	Kp       float64 `yaml:"kp"`
	Kd       float64 `yaml:"kd"`
	Deadband float64 `yaml:"deadband"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:   DefaultBackend,
		BatchSize: cartpole.DefaultBatchSize,
		MaxSteps:  DefaultMaxSteps,
		Seed:      DefaultSeed,
		Physics:   cartpole.DefaultParams(),
		Policy: PolicyConfig{
			Kind: policy.KindDeterministic,
			EpsilonSchedule: policy.EpsilonSchedule{
				Start: DefaultEpsilonStart,
				End:   DefaultEpsilonEnd,
				Decay: DefaultEpsilonDecay,
			},
		},
		Model: ModelConfig{
			Kind:     policy.KindMLP,
			Hidden:   DefaultHidden,
			Kp:       policy.DefaultKp,
			Kd:       policy.DefaultKd,
			Deadband: policy.DefaultDeadband,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
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

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Validate() error {
	if c.Backend != DefaultBackend && !slices.Contains(compute.Backends(), c.Backend) {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be non-negative, got %d", ErrInvalidConfig, c.MaxSteps)
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("%w: physics: %w", ErrInvalidConfig, err)
	}
	if !slices.Contains(policy.Kinds(), c.Policy.Kind) {
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, c.Policy.Kind)
	}
	if c.Policy.Kind == policy.KindEpsilonGreedy {
		s := c.Policy.EpsilonSchedule
		if s.Start < 0 || s.Start > 1 || s.End < 0 || s.End > 1 {
			return fmt.Errorf("%w: epsilon must lie in [0, 1], got start=%f end=%f", ErrInvalidConfig, s.Start, s.End)
		}
		if s.Decay <= 0 {
			return fmt.Errorf("%w: epsilon_decay must be positive, got %f", ErrInvalidConfig, s.Decay)
		}
	}
	switch c.Policy.Start {
	case "", StartZero, StartRandom:
	default:
		return fmt.Errorf("%w: unknown start %q", ErrInvalidConfig, c.Policy.Start)
	}
	switch c.Model.Kind {
	case policy.KindMLP:
		if c.Model.Hidden <= 0 && c.Model.Weights == "" {
			return fmt.Errorf("%w: model hidden size must be positive, got %d", ErrInvalidConfig, c.Model.Hidden)
		}
	case policy.KindPD:
	default:
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model.Kind)
	}
	return nil
}
