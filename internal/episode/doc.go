// Package episode flattens rollout snapshots into a compact record and
// reconstructs per-instance trajectories from it.
package episode
