package formula

import (
	"fmt"
	"math"
	"strings"

	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// minComponentMass is the smallest molar mass accepted for a user-defined
// group.  Anything lighter means the formula was effectively empty.
const minComponentMass = 1e-5

// CheckComponent validates one user-defined component and returns its
// normalized form.
//
//   - The placeholder "?" may only carry an empty formula or "?".
//   - A symbol naming a catalog element cannot redefine its composition: the
//     formula must be empty or equal to the symbol, and is normalized to it.
//   - Any other symbol needs a formula whose molar mass exceeds 1e-5.
func (p *Parser) CheckComponent(symbol, text string) (RawComponent, error) {
	symbol = strings.TrimSpace(symbol)
	text = strings.TrimSpace(text)

	if symbol == "" {
		return RawComponent{}, errors.New(errors.ErrCodeComponentInvalid, "component symbol is required")
	}
	if symbol == Placeholder {
		if text != "" && text != Placeholder {
			return RawComponent{}, errors.New(errors.ErrCodeComponentInvalid,
				"the unknown placeholder cannot carry a formula").WithDetail("formula=" + text)
		}
		return RawComponent{Symbol: Placeholder, Formula: Placeholder}, nil
	}
	if p.table.Contains(symbol) {
		if text == "" || text == symbol {
			return RawComponent{Symbol: symbol, Formula: symbol}, nil
		}
		return RawComponent{}, errors.New(errors.ErrCodeComponentInvalid,
			fmt.Sprintf("symbol %s is a periodic-table element; its composition cannot be overridden", symbol)).
			WithDetail("formula=" + text)
	}

	mass, _, err := p.Parse(text)
	if err != nil {
		return RawComponent{}, errors.Wrap(err, errors.CodeUnknown,
			fmt.Sprintf("component %q: %s", symbol, errors.MessageOf(err)))
	}
	if mass <= minComponentMass {
		return RawComponent{}, errors.New(errors.ErrCodeComponentInvalid,
			fmt.Sprintf("symbol %s is not a periodic-table element; a formula is required", symbol))
	}
	return RawComponent{Symbol: symbol, Formula: text}, nil
}

// CheckComponents validates every component, then enforces symbol
// uniqueness.  Since the placeholder is a symbol, at most one unknown is
// allowed.
func (p *Parser) CheckComponents(raws []RawComponent) ([]RawComponent, error) {
	if len(raws) == 0 {
		return nil, errors.New(errors.ErrCodeComponentInvalid, "at least one component is required")
	}
	out := make([]RawComponent, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		c, err := p.CheckComponent(raw.Symbol, raw.Formula)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c.Symbol]; dup {
			return nil, errors.New(errors.ErrCodeComponentInvalid,
				fmt.Sprintf("component symbol %q is defined more than once", c.Symbol))
		}
		seen[c.Symbol] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// CheckFraction validates one mass-fraction entry.  The value is a
// percentage and must lie strictly between 0 and 100.
func CheckFraction(symbol string, value float64) error {
	if strings.TrimSpace(symbol) == "" {
		return errors.New(errors.ErrCodeFractionInvalid, "mass fraction symbol is required")
	}
	if math.IsNaN(value) || value <= 0 || value >= 100 {
		return errors.New(errors.ErrCodeFractionInvalid,
			fmt.Sprintf("mass fraction of %s must be within (0, 100), got %g", symbol, value))
	}
	return nil
}

// CheckTargets validates a target set: every key must be a catalog element
// and every value a valid percentage.  The placeholder is never a valid key.
// An empty set passes; callers that need targets check for that themselves.
func (p *Parser) CheckTargets(targets Targets) error {
	for _, sym := range targets.Keys() {
		if err := CheckFraction(sym, targets[sym]); err != nil {
			return err
		}
		if sym == Placeholder {
			return errors.New(errors.ErrCodeFractionInvalid,
				"mass fraction targets cannot include the unknown placeholder")
		}
		if !p.table.Contains(sym) {
			return errors.New(errors.ErrCodeFractionInvalid,
				fmt.Sprintf("mass fraction target %s is not a periodic-table element", sym))
		}
	}
	return nil
}

// HasPlaceholder reports whether raws define the unknown placeholder.
func HasPlaceholder(raws []RawComponent) bool {
	for _, r := range raws {
		if strings.TrimSpace(r.Symbol) == Placeholder {
			return true
		}
	}
	return false
}
