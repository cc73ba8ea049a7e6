package world

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/episode"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/policy"
	"github.com/san-kum/polecart/internal/rollout"
)

type World struct {
	backend  compute.Backend
	stepper  *cartpole.Stepper
	batch    int
	maxSteps int
	log      logr.Logger
	metrics  []func() metrics.Metric
}

// New returns a world with the default batch size, horizon and physics.
func New(b compute.Backend) *World {
	return &World{
		backend:  b,
		stepper:  cartpole.NewStepper(cartpole.DefaultParams(), b),
		batch:    cartpole.DefaultBatchSize,
		maxSteps: config.DefaultMaxSteps,
		log:      logr.Discard(),
	}
}

// FromConfig validates cfg and builds a world from it. A nil backend is
// resolved from cfg.Backend, cfg.Workers and cfg.Seed.
func FromConfig(cfg *config.Config, b compute.Backend) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b == nil {
		var err error
		b, err = compute.NewBackend(cfg.Backend, cfg.Workers, cfg.Seed)
		if err != nil {
			return nil, err
		}
	}
	return &World{
		backend:  b,
		stepper:  cartpole.NewStepper(cfg.Physics, b),
		batch:    cfg.BatchSize,
		maxSteps: cfg.MaxSteps,
		log:      logr.Discard(),
	}, nil
}

func (w *World) Backend() compute.Backend { return w.backend }
func (w *World) Params() cartpole.Params  { return w.stepper.Params() }
func (w *World) BatchSize() int           { return w.batch }
func (w *World) MaxSteps() int            { return w.maxSteps }

func (w *World) SetLogger(log logr.Logger) { w.log = log }

// AddMetric registers a metric factory. Every rollout gets fresh instances so
// concurrent rollouts never share accumulators.
func (w *World) AddMetric(factory func() metrics.Metric) {
	w.metrics = append(w.metrics, factory)
}

// Run is the low-level entry point: it drives sel from x0 for the world's
// horizon and returns the raw result.
func (w *World) Run(x0 cartpole.BatchState, model policy.Model, sel policy.Selector) *rollout.Result {
	d := rollout.New(w.stepper, w.log)
	for _, f := range w.metrics {
		d.AddMetric(f())
	}
	return d.Run(x0, model, sel, w.maxSteps)
}

// DeterministicRollout runs the greedy policy from the zeroed state.
func (w *World) DeterministicRollout(model policy.Model) *episode.Record {
	return w.record(cartpole.NewBatchState(w.batch), model, policy.NewDeterministic(w.backend))
}

// EpsilonGreedyRollout runs an exploring policy from the zeroed state.
func (w *World) EpsilonGreedyRollout(model policy.Model, start, end, decay float64) *episode.Record {
	sel := policy.NewEpsilonGreedy(w.backend, policy.EpsilonSchedule{Start: start, End: end, Decay: decay})
	return w.record(cartpole.NewBatchState(w.batch), model, sel)
}

// RandomRollout runs uniformly random actions from a randomized start. No
// model is involved.
func (w *World) RandomRollout() *episode.Record {
	return w.record(cartpole.RandomBatchState(w.backend, w.batch), nil, policy.NewRandom(w.backend, w.batch))
}

// Rollout runs a job as described in configuration files: the policy is
// looked up by name and the start state follows job.Start.
func (w *World) Rollout(job Job) (*episode.Record, error) {
	sel, err := policy.NewSelector(job.Policy, w.backend, w.batch, job.Schedule)
	if err != nil {
		return nil, err
	}

	model := job.Model
	if job.Policy == policy.KindRandom {
		model = nil
	} else if model == nil {
		return nil, fmt.Errorf("%w: %s", policy.ErrModelRequired, job.Policy)
	}

	var x0 cartpole.BatchState
	switch job.Start {
	case config.StartRandom:
		x0 = cartpole.RandomBatchState(w.backend, w.batch)
	case config.StartZero:
		x0 = cartpole.NewBatchState(w.batch)
	case "":
		if job.Policy == policy.KindRandom {
			x0 = cartpole.RandomBatchState(w.backend, w.batch)
		} else {
			x0 = cartpole.NewBatchState(w.batch)
		}
	default:
		return nil, fmt.Errorf("%w: unknown start %q", config.ErrInvalidConfig, job.Start)
	}

	return w.record(x0, model, sel), nil
}

func (w *World) record(x0 cartpole.BatchState, model policy.Model, sel policy.Selector) *episode.Record {
	res := w.Run(x0, model, sel)
	rec := episode.FromSnapshots(res.Snapshots, w.log)
	rec.ID = res.ID
	rec.Policy = sel.Name()
	if len(res.Metrics) > 0 {
		rec.Metrics = res.Metrics
	}
	return rec
}

// NewModel builds the model described by cfg. An MLP comes from its weight
// file when one is given, otherwise it is freshly seeded.
func NewModel(cfg *config.Config) (policy.Model, error) {
	m := cfg.Model
	switch m.Kind {
	case policy.KindPD:
		return policy.NewPD(m.Kp, m.Kd, m.Deadband), nil
	case policy.KindMLP, "":
		if m.Weights != "" {
			mlp, err := policy.LoadMLP(m.Weights)
			if err != nil {
				return nil, err
			}
			return mlp, nil
		}
		return policy.NewMLP(m.Hidden, cfg.Seed), nil
	default:
		return nil, fmt.Errorf("%w: unknown model %q", config.ErrInvalidConfig, m.Kind)
	}
}

// JobFromConfig describes the rollout cfg asks for.
func JobFromConfig(cfg *config.Config, model policy.Model) Job {
	return Job{
		Policy:   cfg.Policy.Kind,
		Model:    model,
		Schedule: cfg.Policy.EpsilonSchedule,
		Start:    cfg.Policy.Start,
	}
}
