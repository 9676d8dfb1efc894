package solver

import (
	"fmt"
	"math"

	"github.com/turtacn/FormulaInfer/internal/domain/formula"
	"github.com/turtacn/FormulaInfer/internal/domain/periodic"
	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// problem is the read-only view of a request shared by all partitions of one
// Solve call.
type problem struct {
	comps    []formula.Component
	targets  formula.Targets
	keys     []string    // target symbols in byte order; keys[0] is the base element
	percents []float64   // target percentages aligned with keys
	contrib  [][]float64 // contrib[c][t]: mass of keys[t] in one unit of comps[c]
	maxCount int
	tol      float64
}

func newProblem(table *periodic.Table, comps []formula.Component, targets formula.Targets,
	maxCount int, tolerance float64) (*problem, error) {

	if maxCount < 1 {
		return nil, errors.InputError(fmt.Sprintf("max count must be at least 1, got %d", maxCount))
	}
	if math.IsNaN(tolerance) || tolerance <= 0 {
		return nil, errors.InputError(fmt.Sprintf("tolerance must be positive, got %g", tolerance))
	}
	if err := formula.NewParser(table).CheckTargets(targets); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(comps))
	for _, c := range comps {
		if c.Symbol == formula.Placeholder {
			return nil, errors.InputError("the unknown placeholder is not a known component")
		}
		if _, dup := seen[c.Symbol]; dup {
			return nil, errors.InputError(fmt.Sprintf("component symbol %q is defined more than once", c.Symbol))
		}
		seen[c.Symbol] = struct{}{}
	}

	p := &problem{
		comps:    comps,
		targets:  targets,
		keys:     targets.Keys(),
		maxCount: maxCount,
		tol:      tolerance,
	}
	p.percents = make([]float64, len(p.keys))
	atomic := make([]float64, len(p.keys))
	for t, sym := range p.keys {
		p.percents[t] = targets[sym]
		atomic[t], _ = table.Mass(sym)
	}
	p.contrib = make([][]float64, len(comps))
	for c, comp := range comps {
		row := make([]float64, len(p.keys))
		for t, sym := range p.keys {
			row[t] = comp.ElementMass(sym, atomic[t])
		}
		p.contrib[c] = row
	}
	return p, nil
}

// elementMasses writes into dst the mass of each target element contributed
// by the known components at the given multiplicities.
func (p *problem) elementMasses(counts []int, dst []float64) {
	for t := range dst {
		dst[t] = 0
	}
	for c, n := range counts {
		if n == 0 {
			continue
		}
		row := p.contrib[c]
		for t := range dst {
			dst[t] += float64(n) * row[t]
		}
	}
}

// fractionsMatch reports whether every target percentage is reproduced
// within tolerance by elemMass over total.
func (p *problem) fractionsMatch(elemMass []float64, total float64) bool {
	for t, want := range p.percents {
		got := elemMass[t] / total * 100.0
		if math.Abs(got-want) > p.tol {
			return false
		}
	}
	return true
}
