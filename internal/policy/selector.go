package policy

import (
	"fmt"
	"math"

	"github.com/san-kum/polecart/internal/compute"
	"gonum.org/v1/gonum/mat"
)

const (
	KindDeterministic = "deterministic"
	KindEpsilonGreedy = "epsilon_greedy"
	KindRandom        = "random"
)

// Selector turns raw model scores (one row of left/none/right per instance)
// into actions in {-1, 0, 1}.
type Selector interface {
	Name() string
	Select(step int, scores *mat.Dense) compute.Vector
}

// Deterministic always takes the highest scoring action.
type Deterministic struct {
	backend compute.Backend
}

func NewDeterministic(b compute.Backend) *Deterministic {
	return &Deterministic{backend: b}
}

func (d *Deterministic) Name() string { return KindDeterministic }

func (d *Deterministic) Select(_ int, scores *mat.Dense) compute.Vector {
	return d.backend.AddScalar(d.backend.ArgmaxRows(scores), -1)
}

// EpsilonSchedule decays the exploration rate from Start towards End with
// time constant Decay (in steps).
type EpsilonSchedule struct {
	Start float64 `yaml:"epsilon_start" json:"epsilon_start"`
	End   float64 `yaml:"epsilon_end" json:"epsilon_end"`
	Decay float64 `yaml:"epsilon_decay" json:"epsilon_decay"`
}

func (s EpsilonSchedule) Threshold(step int) float64 {
	return s.End + (s.Start-s.End)*math.Exp(-float64(step)/s.Decay)
}

// EpsilonGreedy takes a uniformly random action with probability
// Threshold(step) and the greedy action otherwise. Draws are independent for
// every instance and every step.
type EpsilonGreedy struct {
	EpsilonSchedule
	backend compute.Backend
	greedy  *Deterministic
}

func NewEpsilonGreedy(b compute.Backend, schedule EpsilonSchedule) *EpsilonGreedy {
	return &EpsilonGreedy{
		EpsilonSchedule: schedule,
		backend:         b,
		greedy:          NewDeterministic(b),
	}
}

func (e *EpsilonGreedy) Name() string { return KindEpsilonGreedy }

func (e *EpsilonGreedy) Select(step int, scores *mat.Dense) compute.Vector {
	b := e.backend
	n, _ := scores.Dims()

	greedy := e.greedy.Select(step, scores)
	random := randomActions(b, n)
	gate := b.Uniform(n, 0, 1)

	explore := b.Lower(gate, e.Threshold(step))
	return b.Where(explore, random, greedy)
}

// Random ignores the model entirely.
type Random struct {
	backend compute.Backend
	n       int
}

func NewRandom(b compute.Backend, batchSize int) *Random {
	return &Random{backend: b, n: batchSize}
}

func (r *Random) Name() string { return KindRandom }

func (r *Random) Select(_ int, _ *mat.Dense) compute.Vector {
	return randomActions(r.backend, r.n)
}

// randomActions maps uniform(-1, 2) onto {-1, 0, 1} with equal weight.
func randomActions(b compute.Backend, n int) compute.Vector {
	return b.ClampMax(b.Floor(b.Uniform(n, -1, 2)), 1)
}

// NewSelector builds a selector from its configuration name.
func NewSelector(kind string, b compute.Backend, batchSize int, schedule EpsilonSchedule) (Selector, error) {
	switch kind {
	case KindDeterministic:
		return NewDeterministic(b), nil
	case KindEpsilonGreedy:
		if schedule.Decay <= 0 {
			return nil, fmt.Errorf("%w: epsilon decay must be positive, got %f", ErrInvalidSchedule, schedule.Decay)
		}
		return NewEpsilonGreedy(b, schedule), nil
	case KindRandom:
		return NewRandom(b, batchSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
	}
}

// Kinds lists the selector names NewSelector understands.
func Kinds() []string {
	return []string{KindDeterministic, KindEpsilonGreedy, KindRandom}
}
