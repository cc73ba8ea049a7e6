package cartpole

import (
	"math"

	"github.com/san-kum/polecart/internal/compute"
)

const DefaultBatchSize = 128

// Randomized starts draw the pole angle from this band. It is expressed in
// the same shifted convention as the reward band.
const (
	StartAngleMin = math.Pi / 4
	StartAngleMax = 3 * math.Pi / 4
)

// BatchState holds N environments side by side. All four vectors always have
// the same length.
type BatchState struct {
	CartPositions         compute.Vector
	CartVelocities        compute.Vector
	PoleAngles            compute.Vector
	PoleAngularVelocities compute.Vector
}

// Observation is what a consumer outside the simulation gets to see of one
// instance.
type Observation struct {
	CartPosition float64 `json:"cart_position"`
	PoleAngle    float64 `json:"pole_angle"`
}

// DefaultBatchState is NewBatchState(DefaultBatchSize).
func DefaultBatchState() BatchState {
	return NewBatchState(DefaultBatchSize)
}

// NewBatchState returns n zeroed instances.
func NewBatchState(n int) BatchState {
	return BatchState{
		CartPositions:         make(compute.Vector, n),
		CartVelocities:        make(compute.Vector, n),
		PoleAngles:            make(compute.Vector, n),
		PoleAngularVelocities: make(compute.Vector, n),
	}
}

// RandomBatchState returns n instances at rest with pole angles drawn
// uniformly from [StartAngleMin, StartAngleMax).
func RandomBatchState(b compute.Backend, n int) BatchState {
	return BatchState{
		CartPositions:         b.Zeros(n),
		CartVelocities:        b.Zeros(n),
		PoleAngles:            b.Uniform(n, StartAngleMin, StartAngleMax),
		PoleAngularVelocities: b.Zeros(n),
	}
}

func (s BatchState) Len() int {
	return len(s.CartPositions)
}

func (s BatchState) Clone() BatchState {
	return BatchState{
		CartPositions:         s.CartPositions.Clone(),
		CartVelocities:        s.CartVelocities.Clone(),
		PoleAngles:            s.PoleAngles.Clone(),
		PoleAngularVelocities: s.PoleAngularVelocities.Clone(),
	}
}

// Observations projects every instance in index order.
func (s BatchState) Observations() []Observation {
	obs := make([]Observation, s.Len())
	for i := range obs {
		obs[i] = Observation{
			CartPosition: s.CartPositions[i],
			PoleAngle:    s.PoleAngles[i],
		}
	}
	return obs
}
