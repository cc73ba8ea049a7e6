// Package policy maps model output to discrete cart actions.
//
// A [Model] produces an N x 3 score matrix (left, none, right) for a batch.
// A [Selector] turns that matrix into actions in {-1, 0, 1}:
//
//   - [Deterministic]: argmax - 1, first maximum wins
//   - [EpsilonGreedy]: random action with a decaying probability
//   - [Random]: uniform over the three actions, no model needed
//
// [MLP] is a small reference model; training it is not this package's job.
package policy
