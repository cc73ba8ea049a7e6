// Package cartpole provides the batched pole-balancing environment.
//
// A [BatchState] carries N independent carts; [Stepper.Step] advances all of
// them at once through a [compute.Backend]:
//
//	backend := compute.NewCPUBackend(0, 1)
//	stepper := cartpole.NewStepper(cartpole.DefaultParams(), backend)
//	state := cartpole.RandomBatchState(backend, 128)
//	res := stepper.Step(state, backend.Zeros(128))
//
// # Angle Convention
//
// The stored pole angle is offset and mirrored relative to the angle used in
// the equations of motion (theta = -angle - π/2). The start band and reward
// band are both expressed in the stored convention, with π/2 the balanced
// position.
package cartpole
