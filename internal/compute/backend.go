package compute

import (
	"fmt"
	"runtime"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Vector is one scalar per batch instance.
type Vector []float64

func (v Vector) Len() int { return len(v) }

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Backend is the execution context for batched elementwise math. Every
// operation returns a fresh vector and leaves its inputs untouched.
type Backend interface {
	Name() string
	Available() bool
	Cleanup()

	Zeros(n int) Vector
	Full(n int, v float64) Vector
	// Uniform draws n independent samples from [lo, hi).
	Uniform(n int, lo, hi float64) Vector

	Add(a, b Vector) Vector
	Sub(a, b Vector) Vector
	Mul(a, b Vector) Vector
	Div(a, b Vector) Vector
	AddScalar(a Vector, k float64) Vector
	MulScalar(a Vector, k float64) Vector
	DivScalar(a Vector, k float64) Vector

	Square(a Vector) Vector
	Sin(a Vector) Vector
	Cos(a Vector) Vector
	Floor(a Vector) Vector
	ClampMax(a Vector, k float64) Vector
	// Remainder wraps a into [0, m).
	Remainder(a Vector, m float64) Vector

	// Lower and Greater are strict comparisons yielding 1 or 0.
	Lower(a Vector, k float64) Vector
	Greater(a Vector, k float64) Vector
	// Where picks a[i] where mask[i] != 0, else b[i].
	Where(mask, a, b Vector) Vector

	// ArgmaxRows returns the column index of each row's maximum; the first
	// maximum wins on ties.
	ArgmaxRows(m *mat.Dense) Vector
}

var factories = map[string]func(workers int, seed uint64) Backend{
	"cpu": func(workers int, seed uint64) Backend {
		return NewCPUBackend(workers, seed)
	},
	"serial": func(_ int, seed uint64) Backend {
		return NewSerialBackend(seed)
	},
	"auto": func(_ int, seed uint64) Backend {
		return AutoSelectBackend(seed)
	},
}

// NewBackend resolves a backend by name. A non-positive worker count means
// one worker per CPU.
func NewBackend(name string, workers int, seed uint64) (Backend, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	return fn(workers, seed), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func AutoSelectBackend(seed uint64) Backend {
	if runtime.NumCPU() > 1 {
		return NewCPUBackend(runtime.NumCPU(), seed)
	}
	return NewSerialBackend(seed)
}
