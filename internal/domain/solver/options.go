// Package solver implements the two formula-inference searches:
//
//   - SingleUnknownSolver enumerates multiplicities of the known components
//     and of one unknown element, back-solves the unknown's atomic mass from a
//     mass-fraction target and resolves it to a real element.
//   - BruteForceSolver enumerates every multiplicity tuple of fully known
//     components and keeps those whose elemental mass fractions match.
//
// Solvers hold only immutable configuration.  Every Solve call builds its own
// search state, so a solver may be shared by concurrent callers.  Work is
// split into independent partitions run on an errgroup; each partition owns
// its accumulator and results are merged in partition order before the final
// stable sort, so output does not depend on the worker count.
package solver

import (
	"runtime"

	"github.com/turtacn/FormulaInfer/internal/domain/periodic"
)

const (
	// MinUnknownMass and MaxUnknownMass bound the plausible atomic mass of the
	// unknown element.  Back-solved masses outside the band are discarded
	// before any catalog lookup.
	MinUnknownMass = 1.0
	MaxUnknownMass = 300.0

	// cancelCheckMask sets how often (in leaves) a search polls its context.
	cancelCheckMask = 1<<10 - 1
)

// Options configures a solver.
type Options struct {
	// Workers caps the number of partitions searched concurrently.
	// Values below 1 mean runtime.GOMAXPROCS(0).
	Workers int

	// Table supplies atomic masses for target elements and the catalog that
	// unknown masses are matched against.  Nil means periodic.Standard().
	Table *periodic.Table
}

// Option mutates Options.
type Option func(*Options)

// WithWorkers sets the partition concurrency.  1 makes the search sequential.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithTable sets the element catalog.
func WithTable(t *periodic.Table) Option {
	return func(o *Options) { o.Table = t }
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.GOMAXPROCS(0),
		Table:   periodic.Standard(),
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Workers < 1 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Table == nil {
		o.Table = periodic.Standard()
	}
	return o
}
