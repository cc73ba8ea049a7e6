package compute

import (
	"math"
	"runtime"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMinChunk is the smallest slice a worker is handed; shorter vectors
// are processed on the calling goroutine.
const DefaultMinChunk = 256

type CPUBackend struct {
	name     string
	workers  int
	minChunk int

	mu  sync.Mutex
	src rand.Source
}

func NewCPUBackend(workers int, seed uint64) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		name:     "cpu",
		workers:  workers,
		minChunk: DefaultMinChunk,
		src:      rand.NewSource(seed),
	}
}

// NewSerialBackend runs every operation on the calling goroutine.
func NewSerialBackend(seed uint64) *CPUBackend {
	c := NewCPUBackend(1, seed)
	c.name = "serial"
	return c
}

func (c *CPUBackend) Name() string    { return c.name }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}
func (c *CPUBackend) Workers() int    { return c.workers }

// SetMinChunk lowers or raises the parallel cutoff.
func (c *CPUBackend) SetMinChunk(n int) {
	if n < 1 {
		n = 1
	}
	c.minChunk = n
}

func (c *CPUBackend) parallelFor(n int, fn func(start, end int)) {
	if n <= c.minChunk || c.workers <= 1 {
		fn(0, n)
		return
	}

	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

func (c *CPUBackend) unary(a Vector, f func(float64) float64) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f(a[i])
		}
	})
	return out
}

func (c *CPUBackend) Zeros(n int) Vector {
	return make(Vector, n)
}

func (c *CPUBackend) Full(n int, v float64) Vector {
	out := make(Vector, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (c *CPUBackend) Uniform(n int, lo, hi float64) Vector {
	out := make(Vector, n)

	c.mu.Lock()
	defer c.mu.Unlock()

	dist := distuv.Uniform{Min: lo, Max: hi, Src: c.src}
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func (c *CPUBackend) Add(a, b Vector) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		floats.AddTo(out[start:end], a[start:end], b[start:end])
	})
	return out
}

func (c *CPUBackend) Sub(a, b Vector) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		floats.SubTo(out[start:end], a[start:end], b[start:end])
	})
	return out
}

func (c *CPUBackend) Mul(a, b Vector) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		floats.MulTo(out[start:end], a[start:end], b[start:end])
	})
	return out
}

func (c *CPUBackend) Div(a, b Vector) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		floats.DivTo(out[start:end], a[start:end], b[start:end])
	})
	return out
}

func (c *CPUBackend) AddScalar(a Vector, k float64) Vector {
	out := a.Clone()
	c.parallelFor(len(a), func(start, end int) {
		floats.AddConst(k, out[start:end])
	})
	return out
}

func (c *CPUBackend) MulScalar(a Vector, k float64) Vector {
	out := make(Vector, len(a))
	c.parallelFor(len(a), func(start, end int) {
		floats.ScaleTo(out[start:end], k, a[start:end])
	})
	return out
}

func (c *CPUBackend) DivScalar(a Vector, k float64) Vector {
	return c.unary(a, func(x float64) float64 { return x / k })
}

func (c *CPUBackend) Square(a Vector) Vector {
	return c.unary(a, func(x float64) float64 { return x * x })
}

func (c *CPUBackend) Sin(a Vector) Vector   { return c.unary(a, math.Sin) }
func (c *CPUBackend) Cos(a Vector) Vector   { return c.unary(a, math.Cos) }
func (c *CPUBackend) Floor(a Vector) Vector { return c.unary(a, math.Floor) }

func (c *CPUBackend) ClampMax(a Vector, k float64) Vector {
	return c.unary(a, func(x float64) float64 { return math.Min(x, k) })
}

func (c *CPUBackend) Remainder(a Vector, m float64) Vector {
	return c.unary(a, func(x float64) float64 {
		r := math.Mod(x, m)
		if r < 0 {
			r += m
		}
		// r+m can round up to m for tiny negative r
		if r >= m {
			r = 0
		}
		return r
	})
}

func (c *CPUBackend) Lower(a Vector, k float64) Vector {
	return c.unary(a, func(x float64) float64 {
		if x < k {
			return 1
		}
		return 0
	})
}

func (c *CPUBackend) Greater(a Vector, k float64) Vector {
	return c.unary(a, func(x float64) float64 {
		if x > k {
			return 1
		}
		return 0
	})
}

func (c *CPUBackend) Where(mask, a, b Vector) Vector {
	out := make(Vector, len(mask))
	c.parallelFor(len(mask), func(start, end int) {
		for i := start; i < end; i++ {
			if mask[i] != 0 {
				out[i] = a[i]
			} else {
				out[i] = b[i]
			}
		}
	})
	return out
}

func (c *CPUBackend) ArgmaxRows(m *mat.Dense) Vector {
	rows, _ := m.Dims()
	out := make(Vector, rows)
	c.parallelFor(rows, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = float64(floats.MaxIdx(m.RawRowView(i)))
		}
	})
	return out
}
