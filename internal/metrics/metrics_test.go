package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
)

func TestBalanceRate(t *testing.T) {
	m := NewBalanceRate()
	state := cartpole.NewBatchState(4)

	m.Observe(0, state, nil, compute.Vector{1, 1, 0, 0})
	m.Observe(1, state, nil, compute.Vector{1, 1, 1, 0})

	if got := m.Value(); math.Abs(got-5.0/8.0) > 1e-12 {
		t.Errorf("expected 0.625, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestActionEffort(t *testing.T) {
	m := NewActionEffort()
	state := cartpole.NewBatchState(4)

	m.Observe(0, state, compute.Vector{-1, 0, 1, 1}, nil)
	if got := m.Value(); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("expected 0.75, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestMaxCartOffset(t *testing.T) {
	m := NewMaxCartOffset()

	s1 := cartpole.NewBatchState(3)
	s1.CartPositions = compute.Vector{0.5, -2.5, 1}
	s2 := cartpole.NewBatchState(3)
	s2.CartPositions = compute.Vector{0.1, 0.2, 1.5}

	m.Observe(0, s1, nil, nil)
	m.Observe(1, s2, nil, nil)

	if got := m.Value(); got != 2.5 {
		t.Errorf("expected 2.5, got %f", got)
	}
}

func TestDefaultsAreFresh(t *testing.T) {
	a := Defaults()
	b := Defaults()
	if len(a) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(a))
	}

	a[0].Observe(0, cartpole.NewBatchState(1), compute.Vector{1}, compute.Vector{1})
	if b[0].Value() != 0 {
		t.Error("Defaults shared state between calls")
	}

	names := map[string]bool{}
	for _, m := range a {
		names[m.Name()] = true
	}
	for _, want := range []string{"balance_rate", "action_effort", "max_cart_offset"} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}
