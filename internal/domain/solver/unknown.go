package solver

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/FormulaInfer/internal/domain/formula"
	"github.com/turtacn/FormulaInfer/internal/domain/periodic"
	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// UnknownSolution is one resolved hypothesis of the single-unknown search.
type UnknownSolution struct {
	// Formula maps component symbols, including the placeholder, to their
	// multiplicities.  Absent components are omitted.
	Formula formula.Formula `json:"formula"`

	// UnknownMass is the back-solved atomic mass of the unknown element.
	UnknownMass float64 `json:"unknown_mass"`

	// Element is the catalog element the unknown mass resolved to.
	Element string `json:"element"`
}

// Resolved returns the formula with the placeholder replaced by Element.
func (s UnknownSolution) Resolved() formula.Formula {
	return s.Formula.Substitute(s.Element)
}

// SingleUnknownSolver infers formulas that contain one unidentified element.
type SingleUnknownSolver struct {
	opts    Options
	matcher *periodic.Matcher
}

// NewSingleUnknownSolver returns a solver configured by opts.
func NewSingleUnknownSolver(opts ...Option) *SingleUnknownSolver {
	o := buildOptions(opts)
	return &SingleUnknownSolver{opts: o, matcher: periodic.NewMatcher(o.Table)}
}

// Solve searches, for every unknown count u in [1, maxCount], all
// assignments of multiplicities in [0, maxCount] to the known components.
//
// At each complete assignment the unknown atomic mass is back-solved from the
// base element (the lexicographically smallest target symbol):
//
//	m = (baseMassFromKnown - w*knownMass) / (w*u),  w = target/100
//
// The branch survives only if m lies in [MinUnknownMass, MaxUnknownMass],
// every target fraction is reproduced within tolerance, m matches a catalog
// element within tolerance that passes filter, and that element is not itself
// one of the targets.  Rejected branches are dropped silently.
//
// An empty target set, a non-positive maxCount or tolerance, and invalid
// targets are reported as input errors before the search starts.  If ctx is
// cancelled the search stops between branches and ctx.Err() is returned.
func (s *SingleUnknownSolver) Solve(ctx context.Context, components []formula.Component,
	targets formula.Targets, maxCount int, tolerance float64, filter periodic.Filter) ([]UnknownSolution, error) {

	if len(targets) == 0 {
		return nil, errors.InputError("at least one known mass fraction required")
	}
	p, err := newProblem(s.opts.Table, components, targets, maxCount, tolerance)
	if err != nil {
		return nil, err
	}

	parts := make([][]UnknownSolution, maxCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for u := 1; u <= maxCount; u++ {
		u := u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w := &unknownWalk{
				ctx:      gctx,
				p:        p,
				matcher:  s.matcher,
				filter:   filter,
				u:        u,
				counts:   make([]int, len(p.comps)),
				elemMass: make([]float64, len(p.keys)),
			}
			if err := w.walk(0, 0); err != nil {
				return err
			}
			parts[u-1] = w.out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []UnknownSolution
	for _, part := range parts {
		out = append(out, part...)
	}
	if out == nil {
		out = []UnknownSolution{}
	}
	SortUnknownSolutions(out)
	return out, nil
}

// unknownWalk is the private state of one unknown-count partition.
type unknownWalk struct {
	ctx      context.Context
	p        *problem
	matcher  *periodic.Matcher
	filter   periodic.Filter
	u        int
	counts   []int
	elemMass []float64
	leaves   int
	out      []UnknownSolution
}

// walk assigns a multiplicity to component i and recurses.  Depth is bounded
// by the number of known components.
func (w *unknownWalk) walk(i int, knownMass float64) error {
	if i == len(w.p.comps) {
		return w.leaf(knownMass)
	}
	mass := w.p.comps[i].Mass
	for n := 0; n <= w.p.maxCount; n++ {
		w.counts[i] = n
		if err := w.walk(i+1, knownMass+float64(n)*mass); err != nil {
			return err
		}
	}
	w.counts[i] = 0
	return nil
}

func (w *unknownWalk) leaf(knownMass float64) error {
	w.leaves++
	if w.leaves&cancelCheckMask == 0 {
		if err := w.ctx.Err(); err != nil {
			return err
		}
	}

	if knownMass <= formula.Epsilon {
		return nil
	}
	w.p.elementMasses(w.counts, w.elemMass)

	weight := w.p.percents[0] / 100.0
	if weight <= formula.Epsilon || w.u == 0 {
		return nil
	}
	denom := weight * float64(w.u)
	if math.Abs(denom) <= formula.Epsilon {
		return nil
	}
	unknownMass := (w.elemMass[0] - weight*knownMass) / denom
	if !(unknownMass >= MinUnknownMass && unknownMass <= MaxUnknownMass) {
		return nil
	}

	total := knownMass + float64(w.u)*unknownMass
	if total <= formula.Epsilon {
		return nil
	}
	if !w.p.fractionsMatch(w.elemMass, total) {
		return nil
	}

	el, ok := w.matcher.Find(unknownMass, w.p.tol, w.filter)
	if !ok {
		return nil
	}
	if _, constrained := w.p.targets[el.Symbol]; constrained {
		return nil
	}

	f := formula.Formula{formula.Placeholder: w.u}
	for c, n := range w.counts {
		if n > 0 {
			f[w.p.comps[c].Symbol] = n
		}
	}
	w.out = append(w.out, UnknownSolution{Formula: f, UnknownMass: unknownMass, Element: el.Symbol})
	return nil
}
