// Package world is the public face of the simulator. A World owns the
// execution backend, physics and horizon, and turns a model plus a policy
// into an episode.Record.
//
//	w := world.New(compute.AutoSelectBackend(1))
//	rec := w.DeterministicRollout(policy.NewMLP(16, 1))
//	ep, err := rec.Episode(0)
package world
