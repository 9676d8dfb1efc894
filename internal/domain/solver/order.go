package solver

import (
	"math"
	"sort"

	"github.com/turtacn/FormulaInfer/internal/domain/formula"
)

// simpler orders formulas by distinct component count, then total atom count.
func simpler(a, b formula.Formula) bool {
	da, db := a.DistinctCount(), b.DistinctCount()
	if da != db {
		return da < db
	}
	return a.AtomCount() < b.AtomCount()
}

// SortFormulas stable-sorts fs structurally simplest first.
func SortFormulas(fs []formula.Formula) {
	sort.SliceStable(fs, func(i, j int) bool { return simpler(fs[i], fs[j]) })
}

// SortUnknownSolutions stable-sorts ss by their formulas, simplest first.
func SortUnknownSolutions(ss []UnknownSolution) {
	sort.SliceStable(ss, func(i, j int) bool { return simpler(ss[i].Formula, ss[j].Formula) })
}

// UnknownSearchSpace estimates the leaves visited by SingleUnknownSolver for
// p known components: maxCount unknown counts times (maxCount+1)^p.
func UnknownSearchSpace(p, maxCount int) float64 {
	return float64(maxCount) * math.Pow(float64(maxCount+1), float64(p))
}

// BruteForceSearchSpace estimates the tuples visited by BruteForceSolver for
// p components: maxCount^p.
func BruteForceSearchSpace(p, maxCount int) float64 {
	return math.Pow(float64(maxCount), float64(p))
}
