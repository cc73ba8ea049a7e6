package cartpole

import (
	"math"

	"github.com/san-kum/polecart/internal/compute"
)

// Reward band, in the same shifted convention as the pole angle.
const (
	RewardBandMin = math.Pi / 4
	RewardBandMax = 3 * math.Pi / 4
)

type StepResult struct {
	// Terminated is never set by Stepper; episodes end at the horizon.
	Terminated bool
	Reward     compute.Vector
	Next       BatchState
}

// Stepper advances a batch by one timestep using the backend's vector ops.
type Stepper struct {
	params  Params
	backend compute.Backend
}

func NewStepper(params Params, backend compute.Backend) *Stepper {
	return &Stepper{params: params, backend: backend}
}

func (s *Stepper) Params() Params            { return s.params }
func (s *Stepper) Backend() compute.Backend { return s.backend }

// Step applies actions in {-1, 0, 1} to every instance and returns the next
// state together with the balanced indicator reward.
//
// The dynamics run in theta = -pole_angle - π/2. The stored angle is wrapped
// into [0, 2π) after integration.
func (s *Stepper) Step(state BatchState, actions compute.Vector) StepResult {
	b := s.backend
	p := s.params

	force := b.MulScalar(actions, p.ForceMag)

	theta := b.AddScalar(b.MulScalar(state.PoleAngles, -1), -math.Pi/2)
	cosTheta := b.Cos(theta)
	sinTheta := b.Sin(theta)

	totalMass := p.TotalMass()
	poleMassLength := p.PoleMassLength()

	omega := state.PoleAngularVelocities

	temp := b.DivScalar(
		b.Add(force, b.MulScalar(b.Mul(b.Square(omega), sinTheta), poleMassLength)),
		totalMass,
	)

	thetaAccNum := b.Sub(b.MulScalar(sinTheta, p.Gravity), b.Mul(cosTheta, temp))
	thetaAccDen := b.MulScalar(
		b.Sub(b.Full(state.Len(), 4.0/3.0), b.DivScalar(b.MulScalar(b.Square(cosTheta), p.PoleMass), totalMass)),
		p.Length,
	)
	thetaAcc := b.Div(thetaAccNum, thetaAccDen)

	xAcc := b.Sub(temp, b.DivScalar(b.MulScalar(b.Mul(thetaAcc, cosTheta), poleMassLength), totalMass))

	next := BatchState{
		CartPositions:         b.Add(state.CartPositions, b.MulScalar(state.CartVelocities, p.Timestep)),
		CartVelocities:        b.Add(state.CartVelocities, b.MulScalar(xAcc, p.Timestep)),
		PoleAngles:            b.Add(state.PoleAngles, b.MulScalar(omega, p.Timestep)),
		PoleAngularVelocities: b.DivScalar(b.Add(omega, b.MulScalar(thetaAcc, p.Timestep)), AngularDamping),
	}
	next.PoleAngles = b.Remainder(next.PoleAngles, 2*math.Pi)

	reward := b.Mul(
		b.Lower(next.PoleAngles, RewardBandMax),
		b.Greater(next.PoleAngles, RewardBandMin),
	)

	return StepResult{
		Terminated: false,
		Reward:     reward,
		Next:       next,
	}
}
