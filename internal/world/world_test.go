package world

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/episode"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/policy"
)

func smallWorld(t *testing.T) *World {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BatchSize = 16
	cfg.MaxSteps = 40
	w, err := FromConfig(cfg, compute.NewCPUBackend(2, 42))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return w
}

func TestNewDefaults(t *testing.T) {
	w := New(compute.NewSerialBackend(1))
	if w.BatchSize() != 128 {
		t.Errorf("expected batch 128, got %d", w.BatchSize())
	}
	if w.MaxSteps() != 1000 {
		t.Errorf("expected 1000 steps, got %d", w.MaxSteps())
	}
	if w.Params() != cartpole.DefaultParams() {
		t.Errorf("unexpected params %+v", w.Params())
	}
}

func TestDefaultDeterministicRollout(t *testing.T) {
	w := New(compute.NewCPUBackend(0, 1))
	rec := w.DeterministicRollout(policy.NewMLP(16, 1))

	if rec.EpisodeCount != 128 || rec.TotalSteps != 1001 {
		t.Fatalf("expected 128 x 1001, got %d x %d", rec.EpisodeCount, rec.TotalSteps)
	}
	ep, err := rec.Episode(127)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Len() != 1001 {
		t.Errorf("expected 1001 steps, got %d", ep.Len())
	}
	if _, err := rec.Episode(128); !errors.Is(err, episode.ErrInvalidEpisodeIndex) {
		t.Errorf("expected ErrInvalidEpisodeIndex, got %v", err)
	}
}

func TestDeterministicRolloutZeroStart(t *testing.T) {
	w := smallWorld(t)
	rec := w.DeterministicRollout(policy.NewMLP(16, 3))

	if rec.Policy != policy.KindDeterministic {
		t.Errorf("expected policy %s, got %s", policy.KindDeterministic, rec.Policy)
	}

	first, _ := rec.Episode(0)
	if first.CartPositions[0] != 0 || first.PoleAngles[0] != 0 {
		t.Errorf("expected zeroed start, got x=%f angle=%f", first.CartPositions[0], first.PoleAngles[0])
	}

	// identical starts under a greedy policy stay identical
	for i := 1; i < rec.Len(); i++ {
		ep, _ := rec.Episode(i)
		if diff := cmp.Diff(first, ep); diff != "" {
			t.Fatalf("episode %d diverged from episode 0 (-0 +%d):\n%s", i, i, diff)
		}
	}
}

func TestEpsilonGreedyWithoutExplorationMatchesGreedy(t *testing.T) {
	w := smallWorld(t)
	model := policy.NewMLP(16, 5)

	greedy := w.DeterministicRollout(model)
	eps := w.EpsilonGreedyRollout(model, 0, 0, 100)

	if diff := cmp.Diff(greedy.CartPositions, eps.CartPositions); diff != "" {
		t.Errorf("cart positions differ (-greedy +eps):\n%s", diff)
	}
	if diff := cmp.Diff(greedy.PoleAngles, eps.PoleAngles); diff != "" {
		t.Errorf("pole angles differ (-greedy +eps):\n%s", diff)
	}
	if eps.Policy != policy.KindEpsilonGreedy {
		t.Errorf("expected policy %s, got %s", policy.KindEpsilonGreedy, eps.Policy)
	}
}

func TestRandomRolloutStartsInBand(t *testing.T) {
	w := smallWorld(t)
	rec := w.RandomRollout()

	for i, ep := range rec.Batch() {
		a := ep.PoleAngles[0]
		if a < cartpole.StartAngleMin || a >= cartpole.StartAngleMax {
			t.Errorf("episode %d starts at %f", i, a)
		}
		if ep.CartPositions[0] != 0 {
			t.Errorf("episode %d starts off-centre at %f", i, ep.CartPositions[0])
		}
	}
	if rec.TotalSteps != 41 {
		t.Errorf("expected 41 steps, got %d", rec.TotalSteps)
	}
}

func TestRolloutUnknownPolicy(t *testing.T) {
	w := smallWorld(t)
	if _, err := w.Rollout(Job{Policy: "softmax"}); !errors.Is(err, policy.ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
	if _, err := w.Rollout(Job{Policy: policy.KindDeterministic}); !errors.Is(err, policy.ErrModelRequired) {
		t.Errorf("expected ErrModelRequired, got %v", err)
	}
	if _, err := w.Rollout(Job{Policy: policy.KindRandom, Start: "upright"}); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRolloutStartOverride(t *testing.T) {
	w := smallWorld(t)

	rec, err := w.Rollout(Job{Policy: policy.KindRandom, Start: config.StartZero})
	if err != nil {
		t.Fatal(err)
	}
	for i, ep := range rec.Batch() {
		if ep.PoleAngles[0] != 0 {
			t.Fatalf("episode %d did not start zeroed", i)
		}
	}

	rec, err = w.Rollout(Job{Policy: policy.KindDeterministic, Model: policy.NewMLP(4, 1), Start: config.StartRandom})
	if err != nil {
		t.Fatal(err)
	}
	ep, _ := rec.Episode(0)
	if ep.PoleAngles[0] < cartpole.StartAngleMin {
		t.Errorf("expected randomized start, got %f", ep.PoleAngles[0])
	}
}

func TestPDBalancesFromRandomStart(t *testing.T) {
	cfg := config.GetPreset("pd_balance")
	cfg.BatchSize = 32
	cfg.MaxSteps = 500
	w, err := FromConfig(cfg, compute.NewCPUBackend(2, 7))
	if err != nil {
		t.Fatal(err)
	}
	w.AddMetric(func() metrics.Metric { return metrics.NewBalanceRate() })

	model, err := NewModel(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := model.(*policy.PD); !ok {
		t.Fatalf("expected PD model, got %T", model)
	}

	balanced, err := w.Rollout(JobFromConfig(cfg, model))
	if err != nil {
		t.Fatal(err)
	}
	random := w.RandomRollout()

	if got := balanced.Metrics["balance_rate"]; got < 0.95 {
		t.Errorf("pd balance rate %f, want >= 0.95", got)
	}
	if balanced.Metrics["balance_rate"] <= random.Metrics["balance_rate"] {
		t.Errorf("pd (%f) did no better than random (%f)", balanced.Metrics["balance_rate"], random.Metrics["balance_rate"])
	}
}

func TestRunReportsMetrics(t *testing.T) {
	w := smallWorld(t)
	w.AddMetric(func() metrics.Metric { return metrics.NewBalanceRate() })
	w.AddMetric(func() metrics.Metric { return metrics.NewMaxCartOffset() })

	res := w.Run(cartpole.NewBatchState(w.BatchSize()), nil, policy.NewRandom(w.Backend(), w.BatchSize()))
	if len(res.Metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %v", res.Metrics)
	}
	if res.Metrics["balance_rate"] < 0 || res.Metrics["balance_rate"] > 1 {
		t.Errorf("balance rate out of range: %f", res.Metrics["balance_rate"])
	}
}

func TestRecordCarriesMetrics(t *testing.T) {
	w := smallWorld(t)
	rec := w.RandomRollout()
	if rec.Metrics != nil {
		t.Errorf("expected no metrics, got %v", rec.Metrics)
	}

	for _, m := range metrics.Defaults() {
		m := m
		w.AddMetric(func() metrics.Metric { return m })
	}
	rec = w.DeterministicRollout(policy.NewMLP(16, 1))
	if len(rec.Metrics) != 3 {
		t.Errorf("expected 3 metrics, got %v", rec.Metrics)
	}
}

func TestFromConfigInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 0
	if _, err := FromConfig(cfg, nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromConfigResolvesBackend(t *testing.T) {
	cfg := config.GetPreset("short")
	cfg.Backend = "serial"
	w, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.Backend().Name() != "serial" {
		t.Errorf("expected serial backend, got %s", w.Backend().Name())
	}
	if w.BatchSize() != 32 || w.MaxSteps() != 200 {
		t.Errorf("preset not applied: batch=%d steps=%d", w.BatchSize(), w.MaxSteps())
	}
}

func TestNewModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Hidden = 8
	m, err := NewModel(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if mlp, ok := m.(*policy.MLP); !ok || mlp.Hidden() != 8 {
		t.Errorf("expected 8-unit MLP, got %T", m)
	}

	cfg.Model.Weights = "does-not-exist.yaml"
	if _, err := NewModel(cfg); err == nil {
		t.Error("expected error for missing weights file")
	}
}

func TestPoolPreservesOrder(t *testing.T) {
	w := smallWorld(t)
	model := policy.NewMLP(16, 9)
	schedule := policy.EpsilonSchedule{Start: 0.5, End: 0.1, Decay: 20}

	jobs := []Job{
		{Policy: policy.KindRandom},
		{Policy: policy.KindDeterministic, Model: model},
		{Policy: policy.KindEpsilonGreedy, Model: model, Schedule: schedule},
		{Policy: policy.KindDeterministic, Model: model},
		{Policy: policy.KindRandom},
	}

	records, err := NewPool(w, 2).Run(context.Background(), jobs)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != len(jobs) {
		t.Fatalf("expected %d records, got %d", len(jobs), len(records))
	}
	for i, rec := range records {
		if rec.Policy != jobs[i].Policy {
			t.Errorf("record %d has policy %s, want %s", i, rec.Policy, jobs[i].Policy)
		}
		if rec.EpisodeCount != 16 || rec.TotalSteps != 41 {
			t.Errorf("record %d has shape %d x %d", i, rec.EpisodeCount, rec.TotalSteps)
		}
	}
	if diff := cmp.Diff(records[1].PoleAngles, records[3].PoleAngles); diff != "" {
		t.Errorf("concurrent greedy rollouts differ:\n%s", diff)
	}
}

func TestPoolCancelled(t *testing.T) {
	w := smallWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPool(w, 0).Run(ctx, []Job{{Policy: policy.KindRandom}, {Policy: policy.KindRandom}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPoolPropagatesErrors(t *testing.T) {
	w := smallWorld(t)
	_, err := NewPool(w, 1).Run(context.Background(), []Job{{Policy: "boltzmann"}})
	if !errors.Is(err, policy.ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}
