package episode

import (
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/san-kum/polecart/internal/cartpole"
)

// Record stores a rollout step-major: entry step*EpisodeCount+i belongs to
// episode i at step.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Policy        string    `json:"policy"`
	CartPositions []float64 `json:"cart_positions"`
	PoleAngles    []float64 `json:"pole_angles"`
	EpisodeCount  int       `json:"episode_count"`
	TotalSteps    int       `json:"total_steps"`

	// Metrics holds the rollout's metric values by name, if any were
	// registered.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Episode is one instance's trajectory across all recorded steps.
type Episode struct {
	CartPositions []float64 `json:"cart_positions"`
	PoleAngles    []float64 `json:"pole_angles"`
}

// FromSnapshots flattens the snapshots in order. TotalSteps is the number of
// snapshots, initial state included.
func FromSnapshots(snapshots []cartpole.BatchState, log logr.Logger) *Record {
	steps := len(snapshots)
	batch := 0
	if steps > 0 {
		batch = snapshots[0].Len()
	}
	total := steps * batch

	log.V(1).Info("recording episodes", "num_steps", steps, "batch_size", batch, "total_size", total)

	rec := &Record{
		ID:            uuid.New(),
		CartPositions: make([]float64, 0, total),
		PoleAngles:    make([]float64, 0, total),
		EpisodeCount:  batch,
		TotalSteps:    steps,
	}
	for _, s := range snapshots {
		rec.CartPositions = append(rec.CartPositions, s.CartPositions...)
		rec.PoleAngles = append(rec.PoleAngles, s.PoleAngles...)
	}
	return rec
}

func (r *Record) Len() int { return r.EpisodeCount }

// Episode gathers the trajectory of instance i.
func (r *Record) Episode(i int) (Episode, error) {
	if i < 0 || i >= r.EpisodeCount {
		return Episode{}, &IndexError{Index: i, Count: r.EpisodeCount}
	}

	ep := Episode{
		CartPositions: make([]float64, r.TotalSteps),
		PoleAngles:    make([]float64, r.TotalSteps),
	}
	for step := 0; step < r.TotalSteps; step++ {
		k := step*r.EpisodeCount + i
		ep.CartPositions[step] = r.CartPositions[k]
		ep.PoleAngles[step] = r.PoleAngles[k]
	}
	return ep, nil
}

// Batch returns every episode in index order.
func (r *Record) Batch() []Episode {
	eps := make([]Episode, r.EpisodeCount)
	for i := range eps {
		eps[i], _ = r.Episode(i)
	}
	return eps
}

func (e Episode) Len() int { return len(e.PoleAngles) }

// Rewards is the balanced indicator for every recorded angle.
func (e Episode) Rewards() []float64 {
	out := make([]float64, len(e.PoleAngles))
	for i, a := range e.PoleAngles {
		if a > cartpole.RewardBandMin && a < cartpole.RewardBandMax {
			out[i] = 1
		}
	}
	return out
}

// BalancedSteps counts recorded angles inside the reward band.
func (e Episode) BalancedSteps() int {
	n := 0
	for _, r := range e.Rewards() {
		n += int(r)
	}
	return n
}
