package policy

import (
	"math"

	"github.com/san-kum/polecart/internal/compute"
	"gonum.org/v1/gonum/mat"
)

const (
	KindMLP = "mlp"
	KindPD  = "pd"

	DefaultKp       = 10.0
	DefaultKd       = 1.0
	DefaultDeadband = 0.1
)

// PD is a proportional-derivative balancer on the pole angle, written as a
// Model so any selector can drive it. The control signal
//
//	u = -(Kp*(angle - π/2) + Kd*angular_velocity)
//
// scores left as -u, right as u, and doing nothing as Deadband. The angle
// error is wrapped into [-π, π).
type PD struct {
	Kp       float64
	Kd       float64
	Deadband float64
}

func NewPD(kp, kd, deadband float64) *PD {
	return &PD{Kp: kp, Kd: kd, Deadband: deadband}
}

func (p *PD) Forward(cartPositions, _, poleAngles, poleAngularVelocities compute.Vector) *mat.Dense {
	n := len(cartPositions)
	out := mat.NewDense(n, NumActions, nil)
	for i := 0; i < n; i++ {
		u := -(p.Kp*angleError(poleAngles[i]) + p.Kd*poleAngularVelocities[i])
		out.SetRow(i, []float64{-u, p.Deadband, u})
	}
	return out
}

// angleError is the signed distance from upright.
func angleError(a float64) float64 {
	e := math.Mod(a-math.Pi/2+math.Pi, 2*math.Pi)
	if e < 0 {
		e += 2 * math.Pi
	}
	return e - math.Pi
}

// ModelKinds lists the built-in model names.
func ModelKinds() []string {
	return []string{KindMLP, KindPD}
}
