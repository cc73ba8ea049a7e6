package metrics

import (
	"math"

	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"gonum.org/v1/gonum/floats"
)

// Metric accumulates a scalar over a rollout. Observe sees the state reached
// by a step together with the actions and rewards that produced it.
type Metric interface {
	Name() string
	Observe(step int, next cartpole.BatchState, actions, reward compute.Vector)
	Value() float64
	Reset()
}

// BalanceRate is the fraction of instance-steps spent inside the reward band.
type BalanceRate struct {
	sum     float64
	samples int
}

func NewBalanceRate() *BalanceRate { return &BalanceRate{} }

func (b *BalanceRate) Name() string { return "balance_rate" }

func (b *BalanceRate) Observe(_ int, _ cartpole.BatchState, _, reward compute.Vector) {
	b.sum += floats.Sum(reward)
	b.samples += len(reward)
}

func (b *BalanceRate) Value() float64 {
	if b.samples == 0 {
		return 0
	}
	return b.sum / float64(b.samples)
}

func (b *BalanceRate) Reset() {
	b.sum = 0
	b.samples = 0
}

// ActionEffort is the mean absolute action.
type ActionEffort struct {
	sum     float64
	samples int
}

func NewActionEffort() *ActionEffort { return &ActionEffort{} }

func (a *ActionEffort) Name() string { return "action_effort" }

func (a *ActionEffort) Observe(_ int, _ cartpole.BatchState, actions, _ compute.Vector) {
	if len(actions) == 0 {
		return
	}
	a.sum += floats.Norm(actions, 1)
	a.samples += len(actions)
}

func (a *ActionEffort) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *ActionEffort) Reset() {
	a.sum = 0
	a.samples = 0
}

// MaxCartOffset is the largest |cart position| reached by any instance.
type MaxCartOffset struct {
	max float64
}

func NewMaxCartOffset() *MaxCartOffset { return &MaxCartOffset{} }

func (m *MaxCartOffset) Name() string { return "max_cart_offset" }

func (m *MaxCartOffset) Observe(_ int, next cartpole.BatchState, _, _ compute.Vector) {
	if next.Len() == 0 {
		return
	}
	hi := math.Abs(floats.Max(next.CartPositions))
	lo := math.Abs(floats.Min(next.CartPositions))
	m.max = math.Max(m.max, math.Max(hi, lo))
}

func (m *MaxCartOffset) Value() float64 { return m.max }

func (m *MaxCartOffset) Reset() { m.max = 0 }

// Defaults returns a fresh set of the standard rollout metrics.
func Defaults() []Metric {
	return []Metric{
		NewBalanceRate(),
		NewActionEffort(),
		NewMaxCartOffset(),
	}
}
