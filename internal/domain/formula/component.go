package formula

import (
	"fmt"

	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// RawComponent is a user-defined building block before parsing: a symbol
// such as "OAc" and its formula string such as "C2H3O2".
type RawComponent struct {
	Symbol  string `json:"symbol" yaml:"symbol"`
	Formula string `json:"formula" yaml:"formula"`
}

// Component is a prepared building block with precomputed molar mass and
// elemental composition.  Components are read-only during a search.
type Component struct {
	Symbol      string      `json:"symbol"`
	Formula     string      `json:"formula"`
	Mass        float64     `json:"mass"`
	Composition Composition `json:"composition"`
}

// Prepare parses each raw component with the standard table.
func Prepare(raws []RawComponent) ([]Component, error) {
	return defaultParser.Prepare(raws)
}

// Prepare parses each raw component and returns the prepared list in input
// order.  Entries whose symbol is the placeholder are skipped; the solver
// models the unknown structurally.  A parse failure aborts preparation and
// names the offending component.
func (p *Parser) Prepare(raws []RawComponent) ([]Component, error) {
	out := make([]Component, 0, len(raws))
	for _, raw := range raws {
		if raw.Symbol == Placeholder {
			continue
		}
		mass, comp, err := p.Parse(raw.Formula)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown,
				fmt.Sprintf("component %q: %s", raw.Symbol, errors.MessageOf(err)))
		}
		out = append(out, Component{
			Symbol:      raw.Symbol,
			Formula:     raw.Formula,
			Mass:        mass,
			Composition: comp,
		})
	}
	return out, nil
}

// ElementMass returns the mass contributed by element in one unit of c.
func (c Component) ElementMass(element string, atomicMass float64) float64 {
	return float64(c.Composition[element]) * atomicMass
}
