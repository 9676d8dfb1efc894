package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/pkg/errors"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

type solveOptions struct {
	input             string
	components        []string
	fractions         []string
	maxCount          int
	massTolerance     float64
	fractionTolerance float64
	filter            string
	mode              string
}

// NewSolveCmd creates the solve command.
func NewSolveCmd() *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Infer formulas matching measured mass fractions",
		Long: `Searches for the simplest combinations of components whose elemental mass
fractions match the given targets.

Declare a component "?" to solve for one unidentified element instead; its
atomic mass is back-solved from the fractions and matched against the
periodic table.`,
		Example: `  # Which multiples of C and O give 27.27% carbon?
  formulactl solve -C C -C O -f C=27.27

  # Sodium acetate with an unknown cation
  formulactl solve -C '?' -C Ac=C2H3O2 -f C=29.28 -f H=3.69 -f O=39.01 --filter metal

  # Request file, with a flag override
  formulactl solve --input request.yaml --max-count 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "YAML request file; flags override its fields")
	f.StringArrayVarP(&opts.components, "component", "C", nil, "component as SYMBOL[=FORMULA]; repeatable, \"?\" is the unknown element")
	f.StringArrayVarP(&opts.fractions, "fraction", "f", nil, "target mass percentage as ELEMENT=PERCENT; repeatable")
	f.IntVar(&opts.maxCount, "max-count", 0, "largest multiplicity per component (0 uses the configured default)")
	f.Float64Var(&opts.massTolerance, "mass-tolerance", 0, "atomic-mass tolerance in unknown-element mode")
	f.Float64Var(&opts.fractionTolerance, "fraction-tolerance", 0, "percentage-point tolerance in general mode")
	f.StringVar(&opts.filter, "filter", "", "restrict the unknown element: metal, nonmetal or all")
	f.StringVar(&opts.mode, "mode", "", "auto, unknown or general (alias brute-force)")

	return cmd
}

func runSolve(cmd *cobra.Command, opts *solveOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	req, err := buildSolveRequest(cmd, opts)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	cliCtx.Logger.Debug("solving",
		logging.Int("components", len(req.Components)),
		logging.Int("fractions", len(req.Fractions)),
		logging.String("mode", string(req.Mode)))

	resp, err := cliCtx.Service.Infer(ctx, req)
	if err != nil {
		return err
	}
	return PrintResult(cmd, &solveOutput{resp})
}

// buildSolveRequest merges the optional request file with command-line flags.
// A flag that was set explicitly replaces the file's value.
func buildSolveRequest(cmd *cobra.Command, opts *solveOptions) (*ftypes.InferenceRequest, error) {
	req := &ftypes.InferenceRequest{}
	if opts.input != "" {
		raw, err := os.ReadFile(opts.input)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read request file")
		}
		if err := yaml.Unmarshal(raw, req); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "request file is not valid YAML").
				WithDetail(err.Error())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("component") {
		req.Components = req.Components[:0]
		for _, s := range opts.components {
			req.Components = append(req.Components, parseComponentFlag(s))
		}
	}
	if flags.Changed("fraction") {
		fractions, err := parseFractionFlags(opts.fractions)
		if err != nil {
			return nil, err
		}
		req.Fractions = fractions
	}
	if flags.Changed("max-count") {
		req.MaxCount = opts.maxCount
	}
	if flags.Changed("mass-tolerance") {
		req.MassTolerance = opts.massTolerance
	}
	if flags.Changed("fraction-tolerance") {
		req.FractionTolerance = opts.fractionTolerance
	}
	if flags.Changed("filter") {
		req.Filter = opts.filter
	}
	if flags.Changed("mode") {
		req.Mode = ftypes.Mode(opts.mode)
	}

	mode, ok := ftypes.ParseMode(string(req.Mode))
	if !ok {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "unknown mode %q: want auto, unknown or brute-force", req.Mode)
	}
	req.Mode = mode

	if len(req.Components) == 0 {
		return nil, errors.New(errors.ErrCodeBadRequest, "at least one --component is required")
	}
	return req, nil
}

// parseComponentFlag splits "SYMBOL=FORMULA".  A bare symbol leaves the
// formula empty, which the solver reads as the element itself.
func parseComponentFlag(s string) ftypes.Component {
	sym, formula, _ := strings.Cut(s, "=")
	return ftypes.Component{Symbol: strings.TrimSpace(sym), Formula: strings.TrimSpace(formula)}
}

func parseFractionFlags(values []string) (map[string]float64, error) {
	out := make(map[string]float64, len(values))
	for _, s := range values {
		sym, pct, ok := strings.Cut(s, "=")
		sym = strings.TrimSpace(sym)
		if !ok || sym == "" {
			return nil, errors.Newf(errors.ErrCodeBadRequest, "fraction %q must look like ELEMENT=PERCENT", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeBadRequest, "fraction %q: %q is not a number", s, pct)
		}
		if _, dup := out[sym]; dup {
			return nil, errors.Newf(errors.ErrCodeBadRequest, "fraction for %s given more than once", sym)
		}
		out[sym] = v
	}
	return out, nil
}

// solveOutput renders an inference response for the terminal.
type solveOutput struct {
	*ftypes.InferenceResponse
}

func (o *solveOutput) unknown() bool { return o.Mode == ftypes.ModeUnknown }

func (o *solveOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mode=%s max_count=%d tolerance=%g", o.Mode, o.MaxCount, o.Tolerance)
	if o.Filter != "" {
		fmt.Fprintf(&sb, " filter=%s", o.Filter)
	}
	fmt.Fprintf(&sb, " search_space=%.0f\n", o.SearchSpace)

	if o.Count == 0 {
		sb.WriteString("no solutions\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d solution(s)\n", o.Count)
	for i, s := range o.Solutions {
		if o.unknown() {
			fmt.Fprintf(&sb, "%3d. %s  ->  %s  (? = %s, mass %.3f)\n",
				i+1, s.Display, s.FinalDisplay, s.Element, s.UnknownMass)
			continue
		}
		fmt.Fprintf(&sb, "%3d. %s  (%d atoms, %d distinct)\n", i+1, s.Display, s.AtomCount, s.DistinctCount)
	}
	return sb.String()
}

func (o *solveOutput) TableHeaders() []string {
	if o.unknown() {
		return []string{"#", "FINAL", "ELEMENT", "CALC MASS", "FORMULA"}
	}
	return []string{"#", "FORMULA", "ATOMS", "DISTINCT", "COUNTS"}
}

func (o *solveOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.Solutions))
	for i, s := range o.Solutions {
		idx := strconv.Itoa(i + 1)
		if o.unknown() {
			rows = append(rows, []string{idx, s.FinalDisplay, s.Element,
				strconv.FormatFloat(s.UnknownMass, 'f', 3, 64), s.Display})
			continue
		}
		rows = append(rows, []string{idx, s.Display, strconv.Itoa(s.AtomCount),
			strconv.Itoa(s.DistinctCount), formatCounts(s.Formula)})
	}
	return rows
}

// formatCounts renders a symbol->count map as "A:1 B:2" in symbol order.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
