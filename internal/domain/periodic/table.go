// Package periodic holds the element catalog used by the formula-inference
// engine: atomic masses, metal/nonmetal membership, and the canonical scan
// order (ascending atomic number) that makes element matching reproducible.
//
// A Table is immutable after construction and safe for concurrent use.
package periodic

import (
	"fmt"
	"sort"
	"strings"
)

// Category classifies an element for matching filters.
type Category string

const (
	CategoryMetal    Category = "metal"
	CategoryNonmetal Category = "nonmetal"
	// CategoryOther covers every element that is neither listed as a metal
	// nor as a nonmetal (metalloids such as Ge).  Such elements are excluded
	// from both the metal-only and the nonmetal-only filters.
	CategoryOther Category = "other"
)

// Filter restricts which categories an element lookup may return.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterMetal    Filter = "metal"
	FilterNonmetal Filter = "nonmetal"
)

// ParseFilter converts user input into a Filter.  The empty string and the
// aliases "any", "unrestricted" and "none" mean FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any", "unrestricted", "none":
		return FilterAll, nil
	case "metal", "metals":
		return FilterMetal, nil
	case "nonmetal", "nonmetals", "non-metal":
		return FilterNonmetal, nil
	default:
		return "", fmt.Errorf("periodic: unknown category filter %q (want metal, nonmetal or all)", s)
	}
}

// Allows reports whether an element of category c passes the filter.
func (f Filter) Allows(c Category) bool {
	switch f {
	case FilterMetal:
		return c == CategoryMetal
	case FilterNonmetal:
		return c == CategoryNonmetal
	default:
		return true
	}
}

// Element is one catalog entry.
type Element struct {
	Symbol   string   `json:"symbol"`
	Number   int      `json:"number"`
	Mass     float64  `json:"mass"`
	Category Category `json:"category"`
}

// Table is an immutable element catalog ordered by atomic number.
type Table struct {
	elements []Element
	index    map[string]int
}

// NewTable validates elements and builds a Table ordered by ascending atomic
// number.  Symbols and atomic numbers must be unique and masses positive.
func NewTable(elements []Element) (*Table, error) {
	sorted := make([]Element, len(elements))
	copy(sorted, elements)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	t := &Table{elements: sorted, index: make(map[string]int, len(sorted))}
	numbers := make(map[int]string, len(sorted))
	for i, e := range sorted {
		if e.Symbol == "" {
			return nil, fmt.Errorf("periodic: element #%d has an empty symbol", e.Number)
		}
		if !(e.Mass > 0) {
			return nil, fmt.Errorf("periodic: element %s has non-positive mass %g", e.Symbol, e.Mass)
		}
		if _, dup := t.index[e.Symbol]; dup {
			return nil, fmt.Errorf("periodic: duplicate symbol %s", e.Symbol)
		}
		if other, dup := numbers[e.Number]; dup {
			return nil, fmt.Errorf("periodic: %s and %s share atomic number %d", other, e.Symbol, e.Number)
		}
		if e.Category == "" {
			sorted[i].Category = CategoryOther
		}
		t.index[e.Symbol] = i
		numbers[e.Number] = e.Symbol
	}
	return t, nil
}

// Lookup returns the element with the given symbol.
func (t *Table) Lookup(symbol string) (Element, bool) {
	i, ok := t.index[symbol]
	if !ok {
		return Element{}, false
	}
	return t.elements[i], true
}

// Mass returns the atomic mass of symbol.
func (t *Table) Mass(symbol string) (float64, bool) {
	i, ok := t.index[symbol]
	if !ok {
		return 0, false
	}
	return t.elements[i].Mass, true
}

// Contains reports whether symbol is a catalog element.
func (t *Table) Contains(symbol string) bool {
	_, ok := t.index[symbol]
	return ok
}

// Len returns the number of catalog entries.
func (t *Table) Len() int { return len(t.elements) }

// Elements returns the entries passing filter, in canonical order.  The
// returned slice is a copy.
func (t *Table) Elements(filter Filter) []Element {
	out := make([]Element, 0, len(t.elements))
	for _, e := range t.elements {
		if filter.Allows(e.Category) {
			out = append(out, e)
		}
	}
	return out
}

// each calls fn for every element in canonical order until fn returns false.
func (t *Table) each(fn func(Element) bool) {
	for _, e := range t.elements {
		if !fn(e) {
			return
		}
	}
}
