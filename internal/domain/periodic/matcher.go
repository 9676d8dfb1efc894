package periodic

import "math"

// Matcher resolves a computed atomic mass to the closest catalog element.
type Matcher struct {
	table *Table
}

// NewMatcher returns a Matcher over table.  A nil table means Standard().
func NewMatcher(table *Table) *Matcher {
	if table == nil {
		table = Standard()
	}
	return &Matcher{table: table}
}

// Table returns the catalog the matcher scans.
func (m *Matcher) Table() *Table { return m.table }

// Find returns the element whose mass is closest to mass and no further than
// tolerance away, considering only elements that pass filter.
//
// Elements are scanned in ascending atomic number and a candidate replaces
// the current best only when its difference is strictly smaller, so of two
// equidistant elements the lower atomic number wins.
func (m *Matcher) Find(mass, tolerance float64, filter Filter) (Element, bool) {
	var (
		best    Element
		found   bool
		minDiff = math.Inf(1)
	)
	m.table.each(func(e Element) bool {
		if !filter.Allows(e.Category) {
			return true
		}
		diff := math.Abs(mass - e.Mass)
		if diff <= tolerance && diff < minDiff {
			best, minDiff, found = e, diff, true
		}
		return true
	})
	return best, found
}
