// Package formula models the inputs and hypotheses of formula inference:
// parsing component formula strings into mass and elemental composition,
// preparing components for a search, checking user-supplied components and
// mass-fraction targets, and representing candidate formulas.
package formula

import (
	"sort"
	"strconv"
	"strings"
)

// Placeholder is the reserved symbol standing for the element to be deduced.
const Placeholder = "?"

// Epsilon guards mass divisions: a total or known mass at or below it is
// treated as zero.
const Epsilon = 1e-6

// Composition maps element symbols to atom counts within one formula unit.
type Composition map[string]int

// Formula maps component symbols to multiplicities.  A formula produced by a
// solver never carries zero entries.
type Formula map[string]int

// DistinctCount returns the number of components with a positive multiplicity.
func (f Formula) DistinctCount() int {
	n := 0
	for _, c := range f {
		if c > 0 {
			n++
		}
	}
	return n
}

// AtomCount returns the sum of all multiplicities.
func (f Formula) AtomCount() int {
	n := 0
	for _, c := range f {
		n += c
	}
	return n
}

// Clone returns an independent copy of f.
func (f Formula) Clone() Formula {
	out := make(Formula, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// HasPlaceholder reports whether f contains the unknown placeholder.
func (f Formula) HasPlaceholder() bool {
	return f[Placeholder] > 0
}

// Symbols returns the symbols with positive multiplicity in byte order.
func (f Formula) Symbols() []string {
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// String renders f with symbols sorted and counts of one omitted, separated by
// spaces: {C:1, O:2} is "C O2" and {?:2, O:1} is "?2 O".
func (f Formula) String() string {
	var sb strings.Builder
	for i, sym := range f.Symbols() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(sym)
		if c := f[sym]; c > 1 {
			sb.WriteString(strconv.Itoa(c))
		}
	}
	return sb.String()
}

// Substitute returns a copy of f where the placeholder is replaced by element,
// merging its count with an existing entry for the same symbol.
func (f Formula) Substitute(element string) Formula {
	out := f.Clone()
	n, ok := out[Placeholder]
	if !ok {
		return out
	}
	delete(out, Placeholder)
	if n > 0 {
		out[element] += n
	}
	return out
}

// Targets maps element symbols to target mass percentages in (0, 100).
type Targets map[string]float64

// Keys returns the target symbols in byte order.
func (t Targets) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BaseElement returns the lexicographically smallest target symbol.  It is the
// anchor used to back-solve an unknown atomic mass, chosen by a fixed rule so
// that the result does not depend on map iteration order.
func (t Targets) BaseElement() (string, bool) {
	base, found := "", false
	for k := range t {
		if !found || k < base {
			base, found = k, true
		}
	}
	return base, found
}
