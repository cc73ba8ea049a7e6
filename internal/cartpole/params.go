package cartpole

import (
	"fmt"
	"math"
)

// AngularDamping divides the pole's angular velocity after every step. It is
// a fixed drag on top of the textbook dynamics.
const AngularDamping = 1.02

type Params struct {
	Gravity  float64 `yaml:"gravity" json:"gravity"`
	CartMass float64 `yaml:"cart_mass" json:"cart_mass"`
	PoleMass float64 `yaml:"pole_mass" json:"pole_mass"`
	// Length is the pole's half-length.
	Length   float64 `yaml:"length" json:"length"`
	ForceMag float64 `yaml:"force_mag" json:"force_mag"`
	Timestep float64 `yaml:"timestep" json:"timestep"`
}

func DefaultParams() Params {
	return Params{
		Gravity:  9.8,
		CartMass: 1.0,
		PoleMass: 0.1,
		Length:   0.5,
		ForceMag: 10.0,
		Timestep: 0.02,
	}
}

func (p Params) TotalMass() float64      { return p.CartMass + p.PoleMass }
func (p Params) PoleMassLength() float64 { return p.PoleMass * p.Length }

func (p Params) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"cart_mass", p.CartMass},
		{"pole_mass", p.PoleMass},
		{"length", p.Length},
		{"timestep", p.Timestep},
	}
	for _, c := range checks {
		if c.value <= 0 || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s must be positive, got %f", ErrParameterBounds, c.name, c.value)
		}
	}
	if math.IsNaN(p.Gravity) || math.IsNaN(p.ForceMag) {
		return fmt.Errorf("%w: gravity and force_mag must be numbers", ErrParameterBounds)
	}
	return nil
}

func (p Params) GetParams() map[string]float64 {
	return map[string]float64{
		"gravity":   p.Gravity,
		"cart_mass": p.CartMass,
		"pole_mass": p.PoleMass,
		"length":    p.Length,
		"force_mag": p.ForceMag,
		"timestep":  p.Timestep,
	}
}

func (p *Params) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		p.Gravity = value
	case "cart_mass":
		p.CartMass = value
	case "pole_mass":
		p.PoleMass = value
	case "length":
		p.Length = value
	case "force_mag":
		p.ForceMag = value
	case "timestep":
		p.Timestep = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
