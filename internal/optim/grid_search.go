package optim

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

type Trial struct {
	Params map[string]float64
	Score  float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Size is the number of grid points. An empty grid has one point: no
// parameters overridden.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search scores every grid point in order and returns all trials together
// with the highest scoring one. The first evaluation error aborts the search.
func (g *GridSearch) Search(
	ctx context.Context,
	evaluate func(ctx context.Context, params map[string]float64) (float64, error),
) ([]Trial, Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, Trial{}, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	trials := make([]Trial, 0, g.Size())
	best := Trial{Score: math.Inf(-1)}

	err := g.searchRecursive(ctx, 0, make(map[string]float64), evaluate, &trials, &best)
	if err != nil {
		return trials, best, err
	}
	return trials, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate func(context.Context, map[string]float64) (float64, error),
	trials *[]Trial,
	best *Trial,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}

		score, err := evaluate(ctx, current)
		if err != nil {
			return fmt.Errorf("optim: evaluate %v: %w", current, err)
		}

		trial := Trial{Params: current, Score: score}
		*trials = append(*trials, trial)
		if score > best.Score {
			*best = trial
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, evaluate, trials, best); err != nil {
			return err
		}
	}
	return nil
}

// ParseAxis reads "name=v1,v2,...".
func ParseAxis(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: axis %q is not name=v1,v2,...", s)
	}

	parts := strings.Split(list, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: axis %s: %w", name, err)
		}
		values[i] = v
	}
	return name, values, nil
}
