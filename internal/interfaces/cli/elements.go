package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/FormulaInfer/pkg/errors"
	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// NewElementsCmd creates the elements command.
func NewElementsCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "elements",
		Short: "List the periodic-table catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			list, err := cliCtx.Service.Elements(ctx, category)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &elementsOutput{list})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "metal, nonmetal or all")
	return cmd
}

// NewMatchCmd creates the match command.
func NewMatchCmd() *cobra.Command {
	var (
		tolerance float64
		category  string
	)

	cmd := &cobra.Command{
		Use:     "match MASS",
		Short:   "Find the element whose atomic mass is closest to MASS",
		Example: "  formulactl match 22.99 --tolerance 0.1 --category metal",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mass, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return errors.Newf(errors.ErrCodeBadRequest, "mass %q is not a number", args[0])
			}

			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Service.Match(ctx, mass, tolerance, category)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &matchOutput{resp})
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", 0, "largest accepted mass difference (0 uses the configured default)")
	cmd.Flags().StringVar(&category, "category", "", "metal, nonmetal or all")
	return cmd
}

type elementsOutput struct {
	*ftypes.ElementList
}

func (o *elementsOutput) String() string {
	var sb strings.Builder
	for _, e := range o.Elements {
		fmt.Fprintf(&sb, "%3d %-3s %10.4f %s\n", e.Number, e.Symbol, e.Mass, e.Category)
	}
	fmt.Fprintf(&sb, "%d element(s)\n", o.Count)
	return sb.String()
}

func (o *elementsOutput) TableHeaders() []string {
	return []string{"Z", "SYMBOL", "MASS", "CATEGORY"}
}

func (o *elementsOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Elements))
	for i, e := range o.Elements {
		rows[i] = []string{strconv.Itoa(e.Number), e.Symbol, fmt.Sprintf("%.4f", e.Mass), e.Category}
	}
	return rows
}

type matchOutput struct {
	*ftypes.MatchResponse
}

func (o *matchOutput) String() string {
	if !o.Found || o.Element == nil {
		return fmt.Sprintf("no element within %g of %g\n", o.Tolerance, o.Mass)
	}
	return fmt.Sprintf("%s (Z=%d, mass %.4f, diff %.4f)\n",
		o.Element.Symbol, o.Element.Number, o.Element.Mass, o.Difference)
}
