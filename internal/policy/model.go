package policy

import (
	"fmt"
	"math"
	"os"

	"github.com/san-kum/polecart/internal/compute"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

// NumActions is the width of every score row: left, none, right.
const NumActions = 3

// Input scaling applied before the first layer.
const (
	PositionScale = 1000.0
	AngleScale    = 2 * math.Pi
)

// Model scores every instance of a batch. Forward must not have side effects;
// it is called once per rollout step.
type Model interface {
	Forward(cartPositions, cartVelocities, poleAngles, poleAngularVelocities compute.Vector) *mat.Dense
}

// MLP is a two layer linear network with a softmax head.
type MLP struct {
	w1 *mat.Dense // 4 x hidden
	b1 []float64
	w2 *mat.Dense // hidden x NumActions
	b2 []float64
}

type MLPWeights struct {
	W1 [][]float64 `yaml:"w1"`
	B1 []float64   `yaml:"b1"`
	W2 [][]float64 `yaml:"w2"`
	B2 []float64   `yaml:"b2"`
}

// NewMLP draws every weight uniformly from ±1/sqrt(fan_in).
func NewMLP(hidden int, seed uint64) *MLP {
	src := rand.NewSource(seed)
	layer := func(in, out int) (*mat.Dense, []float64) {
		bound := 1 / math.Sqrt(float64(in))
		dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
		w := mat.NewDense(in, out, nil)
		for i := 0; i < in; i++ {
			for j := 0; j < out; j++ {
				w.Set(i, j, dist.Rand())
			}
		}
		b := make([]float64, out)
		for j := range b {
			b[j] = dist.Rand()
		}
		return w, b
	}

	m := &MLP{}
	m.w1, m.b1 = layer(4, hidden)
	m.w2, m.b2 = layer(hidden, NumActions)
	return m
}

func NewMLPFromWeights(w MLPWeights) (*MLP, error) {
	if len(w.W1) != 4 {
		return nil, fmt.Errorf("%w: w1 has %d rows, want 4", ErrWeightShape, len(w.W1))
	}
	hidden := len(w.B1)
	if hidden == 0 {
		return nil, fmt.Errorf("%w: empty hidden layer", ErrWeightShape)
	}
	if len(w.W2) != hidden {
		return nil, fmt.Errorf("%w: w2 has %d rows, want %d", ErrWeightShape, len(w.W2), hidden)
	}
	if len(w.B2) != NumActions {
		return nil, fmt.Errorf("%w: b2 has %d entries, want %d", ErrWeightShape, len(w.B2), NumActions)
	}

	w1, err := denseFromRows(w.W1, hidden)
	if err != nil {
		return nil, fmt.Errorf("w1: %w", err)
	}
	w2, err := denseFromRows(w.W2, NumActions)
	if err != nil {
		return nil, fmt.Errorf("w2: %w", err)
	}

	return &MLP{
		w1: w1,
		b1: append([]float64(nil), w.B1...),
		w2: w2,
		b2: append([]float64(nil), w.B2...),
	}, nil
}

func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w MLPWeights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return NewMLPFromWeights(w)
}

// SaveMLP writes the weights in the format LoadMLP reads.
func SaveMLP(path string, m *MLP) error {
	data, err := yaml.Marshal(m.Weights())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *MLP) Hidden() int {
	_, c := m.w1.Dims()
	return c
}

func (m *MLP) Weights() MLPWeights {
	return MLPWeights{
		W1: rowsFromDense(m.w1),
		B1: append([]float64(nil), m.b1...),
		W2: rowsFromDense(m.w2),
		B2: append([]float64(nil), m.b2...),
	}
}

func (m *MLP) Forward(cartPositions, cartVelocities, poleAngles, poleAngularVelocities compute.Vector) *mat.Dense {
	n := len(cartPositions)
	in := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		in.Set(i, 0, cartPositions[i]/PositionScale)
		in.Set(i, 1, cartVelocities[i]/PositionScale)
		in.Set(i, 2, poleAngles[i]/AngleScale)
		in.Set(i, 3, poleAngularVelocities[i]/AngleScale)
	}

	var h mat.Dense
	h.Mul(in, m.w1)
	addBias(&h, m.b1)

	out := &mat.Dense{}
	out.Mul(&h, m.w2)
	addBias(out, m.b2)
	softmaxRows(out)
	return out
}

func addBias(m *mat.Dense, b []float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		floats.Add(m.RawRowView(i), b)
	}
}

func softmaxRows(m *mat.Dense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		maxLogit := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - maxLogit)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

func denseFromRows(rows [][]float64, cols int) (*mat.Dense, error) {
	d := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrWeightShape, i, len(r), cols)
		}
		d.SetRow(i, r)
	}
	return d, nil
}

func rowsFromDense(d *mat.Dense) [][]float64 {
	r, _ := d.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, d)
	}
	return rows
}
