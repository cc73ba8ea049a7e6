package episode

import (
	"errors"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/polecart/internal/cartpole"
	"github.com/san-kum/polecart/internal/compute"
)

// snapshots builds steps states for batch instances where cart position
// encodes step*100+instance and the angle encodes step+instance/10.
func snapshots(steps, batch int) []cartpole.BatchState {
	out := make([]cartpole.BatchState, steps)
	for s := range out {
		st := cartpole.NewBatchState(batch)
		for i := 0; i < batch; i++ {
			st.CartPositions[i] = float64(s*100 + i)
			st.PoleAngles[i] = float64(s) + float64(i)/10
		}
		out[s] = st
	}
	return out
}

func TestFromSnapshotsLayout(t *testing.T) {
	rec := FromSnapshots(snapshots(3, 2), logr.Discard())

	if rec.EpisodeCount != 2 || rec.TotalSteps != 3 {
		t.Fatalf("expected 2 episodes x 3 steps, got %d x %d", rec.EpisodeCount, rec.TotalSteps)
	}
	want := []float64{0, 1, 100, 101, 200, 201}
	if diff := cmp.Diff(want, rec.CartPositions); diff != "" {
		t.Errorf("cart positions not step-major (-want +got):\n%s", diff)
	}
	if len(rec.PoleAngles) != 6 {
		t.Errorf("expected 6 angles, got %d", len(rec.PoleAngles))
	}
}

func TestEpisodeRoundTrip(t *testing.T) {
	steps, batch := 5, 4
	snaps := snapshots(steps, batch)
	rec := FromSnapshots(snaps, logr.Discard())

	for i := 0; i < batch; i++ {
		ep, err := rec.Episode(i)
		if err != nil {
			t.Fatalf("Episode(%d): %v", i, err)
		}
		want := Episode{
			CartPositions: make([]float64, steps),
			PoleAngles:    make([]float64, steps),
		}
		for s := 0; s < steps; s++ {
			want.CartPositions[s] = snaps[s].CartPositions[i]
			want.PoleAngles[s] = snaps[s].PoleAngles[i]
		}
		if diff := cmp.Diff(want, ep); diff != "" {
			t.Errorf("episode %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestEpisodeIndexBounds(t *testing.T) {
	rec := FromSnapshots(snapshots(3, 4), logr.Discard())

	for _, i := range []int{-1, 4, 5} {
		_, err := rec.Episode(i)
		if !errors.Is(err, ErrInvalidEpisodeIndex) {
			t.Errorf("Episode(%d): expected ErrInvalidEpisodeIndex, got %v", i, err)
		}
		var ie *IndexError
		if !errors.As(err, &ie) || ie.Index != i || ie.Count != 4 {
			t.Errorf("Episode(%d): expected IndexError{%d, 4}, got %v", i, i, err)
		}
	}

	if _, err := rec.Episode(3); err != nil {
		t.Errorf("last episode rejected: %v", err)
	}
}

func TestEmptySnapshots(t *testing.T) {
	rec := FromSnapshots(nil, logr.Discard())
	if rec.Len() != 0 || rec.TotalSteps != 0 {
		t.Errorf("expected empty record, got %d x %d", rec.EpisodeCount, rec.TotalSteps)
	}
	if _, err := rec.Episode(0); !errors.Is(err, ErrInvalidEpisodeIndex) {
		t.Errorf("expected ErrInvalidEpisodeIndex, got %v", err)
	}
}

func TestBatch(t *testing.T) {
	rec := FromSnapshots(snapshots(2, 3), logr.Discard())
	eps := rec.Batch()
	if len(eps) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(eps))
	}
	if eps[2].CartPositions[1] != 102 {
		t.Errorf("expected 102, got %f", eps[2].CartPositions[1])
	}
}

func TestRewards(t *testing.T) {
	ep := Episode{
		CartPositions: make([]float64, 5),
		PoleAngles: []float64{
			math.Pi / 2,
			cartpole.RewardBandMin,
			cartpole.RewardBandMax,
			0,
			math.Pi / 3,
		},
	}
	want := []float64{1, 0, 0, 0, 1}
	if diff := cmp.Diff(want, ep.Rewards()); diff != "" {
		t.Errorf("rewards (-want +got):\n%s", diff)
	}
	if ep.BalancedSteps() != 2 {
		t.Errorf("expected 2 balanced steps, got %d", ep.BalancedSteps())
	}
}

func TestRecordFromRollout(t *testing.T) {
	b := compute.NewSerialBackend(9)
	stepper := cartpole.NewStepper(cartpole.DefaultParams(), b)
	snaps := []cartpole.BatchState{cartpole.RandomBatchState(b, 6)}
	for i := 0; i < 10; i++ {
		snaps = append(snaps, stepper.Step(snaps[i], b.Zeros(6)).Next)
	}

	rec := FromSnapshots(snaps, logr.Discard())
	ep, err := rec.Episode(5)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Len() != 11 {
		t.Fatalf("expected 11 steps, got %d", ep.Len())
	}
	if ep.PoleAngles[10] != snaps[10].PoleAngles[5] {
		t.Errorf("last angle mismatch: %f vs %f", ep.PoleAngles[10], snaps[10].PoleAngles[5])
	}
}
