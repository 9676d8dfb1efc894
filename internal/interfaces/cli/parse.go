package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	ftypes "github.com/turtacn/FormulaInfer/pkg/types/formula"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FORMULA...",
		Short: "Compute molar mass and elemental composition",
		Example: `  formulactl parse H2O
  formulactl parse 'CuSO4(H2O)5' 'Ca3(PO4)2' -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParse,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	out := make(parseOutput, 0, len(args))
	for _, text := range args {
		resp, err := cliCtx.Service.Parse(ctx, text)
		if err != nil {
			return fmt.Errorf("%s: %w", text, err)
		}
		out = append(out, resp)
	}
	return PrintResult(cmd, out)
}

type parseOutput []*ftypes.ParseResponse

func (o parseOutput) String() string {
	var sb strings.Builder
	for _, p := range o {
		fmt.Fprintf(&sb, "%s  mass=%.4f  %s\n", p.Formula, p.Mass, formatCounts(p.Composition))
	}
	return sb.String()
}

func (o parseOutput) TableHeaders() []string {
	return []string{"FORMULA", "MASS", "COMPOSITION"}
}

func (o parseOutput) TableRows() [][]string {
	rows := make([][]string, len(o))
	for i, p := range o {
		rows[i] = []string{p.Formula, fmt.Sprintf("%.4f", p.Mass), formatCounts(p.Composition)}
	}
	return rows
}
