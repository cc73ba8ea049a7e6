package rollout

import (
	"github.com/google/uuid"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
)

// Stepper advances a batch by one step. *cartpole.Stepper is the production
// implementation.
type Stepper interface {
	Step(state cartpole.BatchState, actions compute.Vector) cartpole.StepResult
}

type Result struct {
	ID uuid.UUID
	// Snapshots holds the initial state followed by one state per step taken.
	Snapshots  []cartpole.BatchState
	Actions    []compute.Vector
	Rewards    []compute.Vector
	StepsTaken int
	Metrics    map[string]float64
	Terminated bool
}

// FinalState is the last recorded snapshot.
func (r *Result) FinalState() cartpole.BatchState {
	return r.Snapshots[len(r.Snapshots)-1]
}
