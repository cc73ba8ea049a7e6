// Package rollout drives a batch of cart-poles for a fixed horizon.
//
// Each step queries the model, picks actions, advances the stepper and
// records the resulting state. Snapshots always start with the initial state,
// so a full run yields maxSteps+1 of them.
package rollout
