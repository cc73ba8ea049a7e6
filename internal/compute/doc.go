// Package compute provides execution backends for batched elementwise math.
//
// A [Backend] is constructed once by the host and handed to whatever needs
// it; nothing in this package holds a process-wide default.
//
//   - cpu: splits each operation across worker goroutines
//   - serial: single goroutine, useful as a reference and for small batches
//   - auto: cpu when more than one core is present, else serial
//
// # Example
//
//	backend, err := compute.NewBackend("cpu", 0, 42)
//	if err != nil {
//	    return err
//	}
//	angles := backend.Uniform(128, math.Pi/4, 3*math.Pi/4)
//
// Random draws are independent per call. Sampling is serialized behind a
// mutex so a single backend may serve concurrent rollouts.
package compute
