package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/FormulaInfer/internal/domain/periodic"
	"github.com/turtacn/FormulaInfer/pkg/errors"
)

// Parser turns formula strings such as "C2H3O2" into molar mass and
// composition, validated against a periodic table.
type Parser struct {
	table *periodic.Table
}

// NewParser returns a Parser over table.  A nil table means periodic.Standard().
func NewParser(table *periodic.Table) *Parser {
	if table == nil {
		table = periodic.Standard()
	}
	return &Parser{table: table}
}

// Table returns the catalog the parser validates against.
func (p *Parser) Table() *periodic.Table { return p.table }

// Parse parses text using the standard periodic table.
func Parse(text string) (float64, Composition, error) {
	return defaultParser.Parse(text)
}

var defaultParser = NewParser(nil)

// Parse returns the molar mass and composition of text.
//
// A formula is a sequence of element tokens, each an uppercase letter
// optionally followed by one lowercase letter, then an optional decimal count
// (absent means 1).  Repeated symbols accumulate.  Only ASCII letters and
// digits are accepted; surrounding whitespace is ignored.  The literal
// placeholder "?" parses to mass 0 and composition {?: 1}.  An empty string
// parses to mass 0 and an empty composition.
func (p *Parser) Parse(text string) (float64, Composition, error) {
	text = strings.TrimSpace(text)
	if text == Placeholder {
		return 0, Composition{Placeholder: 1}, nil
	}

	for i := 0; i < len(text); i++ {
		if !isAlnum(text[i]) {
			r := []rune(text[i:])[0]
			return 0, nil, errors.New(errors.ErrCodeFormulaIllegalChar,
				fmt.Sprintf("illegal character '%c' in formula %q", r, text)).
				WithDetail(fmt.Sprintf("position=%d", i))
		}
	}

	comp := make(Composition)
	mass := 0.0
	for i := 0; i < len(text); {
		start := i
		if !isUpper(text[i]) {
			// A token must open with an uppercase letter; report the stray run.
			stray := isLower
			if isDigit(text[i]) {
				stray = isDigit
			}
			for i < len(text) && stray(text[i]) {
				i++
			}
			return 0, nil, errors.New(errors.ErrCodeFormulaUnknownElement,
				fmt.Sprintf("element '%s' is not in the periodic table", text[start:i])).
				WithDetail(fmt.Sprintf("formula=%q position=%d", text, start))
		}
		i++
		if i < len(text) && isLower(text[i]) {
			i++
		}
		symbol := text[start:i]

		digits := i
		for i < len(text) && isDigit(text[i]) {
			i++
		}
		count := 1
		if i > digits {
			n, err := strconv.Atoi(text[digits:i])
			if err != nil || n <= 0 {
				return 0, nil, errors.New(errors.ErrCodeFormulaBadCount,
					fmt.Sprintf("invalid count %q for element '%s'", text[digits:i], symbol)).
					WithDetail(fmt.Sprintf("formula=%q", text))
			}
			count = n
		}

		atomic, ok := p.table.Mass(symbol)
		if !ok {
			return 0, nil, errors.New(errors.ErrCodeFormulaUnknownElement,
				fmt.Sprintf("element '%s' is not in the periodic table", symbol)).
				WithDetail(fmt.Sprintf("formula=%q position=%d", text, start))
		}
		mass += atomic * float64(count)
		comp[symbol] += count
	}
	return mass, comp, nil
}

func isUpper(c byte) bool { return 'A' <= c && c <= 'Z' }
func isLower(c byte) bool { return 'a' <= c && c <= 'z' }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }
func isAlnum(c byte) bool { return isUpper(c) || isLower(c) || isDigit(c) }
