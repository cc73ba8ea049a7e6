package world

import (
	"context"

	"github.com/san-kum/polecart/internal/episode"
	"github.com/san-kum/polecart/internal/policy"
	"golang.org/x/sync/errgroup"
)

// Job describes one rollout. Start is "", "zero" or "random"; empty picks
// the policy's default start.
type Job struct {
	Policy   string
	Model    policy.Model
	Schedule policy.EpsilonSchedule
	Start    string
}

// Pool runs independent rollouts of one world side by side.
type Pool struct {
	world *World
	limit int
}

// NewPool caps concurrency at limit rollouts; limit <= 0 means unbounded.
func NewPool(w *World, limit int) *Pool {
	return &Pool{world: w, limit: limit}
}

// Run executes every job and returns the records in submission order. The
// context is checked before each rollout starts; a running rollout is never
// interrupted.
func (p *Pool) Run(ctx context.Context, jobs []Job) ([]*episode.Record, error) {
	records := make([]*episode.Record, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.world.log.V(1).Info("pool rollout", "job", i, "policy", job.Policy)

			rec, err := p.world.Rollout(job)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
