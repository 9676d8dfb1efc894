package solver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/FormulaInfer/internal/domain/formula"
)

// BruteForceSolver infers formulas built only from known components.
type BruteForceSolver struct {
	opts Options
}

// NewBruteForceSolver returns a solver configured by opts.
func NewBruteForceSolver(opts ...Option) *BruteForceSolver {
	return &BruteForceSolver{opts: buildOptions(opts)}
}

// Solve enumerates every tuple of multiplicities in [1, maxCount] over the
// components (no component may be absent) and keeps the tuples whose
// elemental mass fractions all lie within tolerance percentage points of the
// targets.  The cost is maxCount^len(components).
//
// An empty target set is accepted and matches every tuple.
func (s *BruteForceSolver) Solve(ctx context.Context, components []formula.Component,
	targets formula.Targets, maxCount int, tolerance float64) ([]formula.Formula, error) {

	p, err := newProblem(s.opts.Table, components, targets, maxCount, tolerance)
	if err != nil {
		return nil, err
	}
	if len(p.comps) == 0 {
		return []formula.Formula{}, nil
	}

	// Partition on the multiplicity of the first component.
	parts := make([][]formula.Formula, maxCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for first := 1; first <= maxCount; first++ {
		first := first
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := bruteForcePartition(gctx, p, first)
			if err != nil {
				return err
			}
			parts[first-1] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []formula.Formula{}
	for _, part := range parts {
		out = append(out, part...)
	}
	SortFormulas(out)
	return out, nil
}

// bruteForcePartition walks all tuples whose first multiplicity is first,
// advancing the remaining positions like an odometer (last position fastest).
func bruteForcePartition(ctx context.Context, p *problem, first int) ([]formula.Formula, error) {
	counts := make([]int, len(p.comps))
	for i := range counts {
		counts[i] = 1
	}
	counts[0] = first
	elemMass := make([]float64, len(p.keys))

	var out []formula.Formula
	for leaves := 1; ; leaves++ {
		if leaves&cancelCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		total := 0.0
		for c, n := range counts {
			total += float64(n) * p.comps[c].Mass
		}
		if total > formula.Epsilon {
			p.elementMasses(counts, elemMass)
			if p.fractionsMatch(elemMass, total) {
				f := make(formula.Formula, len(counts))
				for c, n := range counts {
					f[p.comps[c].Symbol] = n
				}
				out = append(out, f)
			}
		}

		i := len(counts) - 1
		for i > 0 && counts[i] == p.maxCount {
			counts[i] = 1
			i--
		}
		if i == 0 {
			return out, nil
		}
		counts[i]++
	}
}
