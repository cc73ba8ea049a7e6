package rollout

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/policy"
	"gonum.org/v1/gonum/mat"
)

type Driver struct {
	stepper Stepper
	log     logr.Logger
	metrics []metrics.Metric
}

func New(stepper Stepper, log logr.Logger) *Driver {
	return &Driver{
		stepper: stepper,
		log:     log,
		metrics: make([]metrics.Metric, 0),
	}
}

func (d *Driver) AddMetric(m metrics.Metric) { d.metrics = append(d.metrics, m) }

// Run simulates up to maxSteps steps from x0. The model is consulted once per
// step; a nil model passes nil scores to the selector, which only a random
// selector accepts.
func (d *Driver) Run(x0 cartpole.BatchState, model policy.Model, sel policy.Selector, maxSteps int) *Result {
	if maxSteps < 0 {
		maxSteps = 0
	}

	result := &Result{
		ID:        uuid.New(),
		Snapshots: make([]cartpole.BatchState, 0, maxSteps+1),
		Actions:   make([]compute.Vector, 0, maxSteps),
		Rewards:   make([]compute.Vector, 0, maxSteps),
		Metrics:   make(map[string]float64),
	}

	for _, m := range d.metrics {
		m.Reset()
	}

	log := d.log.WithValues("rollout", result.ID, "policy", sel.Name())
	log.V(1).Info("starting rollout", "batch_size", x0.Len(), "max_steps", maxSteps)

	state := x0
	result.Snapshots = append(result.Snapshots, state)

	for step := 0; step < maxSteps; step++ {
		var scores *mat.Dense
		if model != nil {
			scores = model.Forward(state.CartPositions, state.CartVelocities, state.PoleAngles, state.PoleAngularVelocities)
		}
		actions := sel.Select(step, scores)

		res := d.stepper.Step(state, actions)

		for _, m := range d.metrics {
			m.Observe(step, res.Next, actions, res.Reward)
		}

		state = res.Next
		result.StepsTaken++
		result.Snapshots = append(result.Snapshots, state)
		result.Actions = append(result.Actions, actions)
		result.Rewards = append(result.Rewards, res.Reward)

		if res.Terminated {
			result.Terminated = true
			log.V(1).Info("terminated early", "step", step)
			break
		}
	}

	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	log.V(1).Info("rollout finished", "steps_taken", result.StepsTaken)
	return result
}
