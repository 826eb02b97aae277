package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/printer"
	"github.com/Sumatoshi-tech/qodana/pkg/terminal"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	var (
		includeAbsent bool
		noColor       bool
	)

	cmd := &cobra.Command{
		Use:   "compare <current.sarif> <baseline.sarif>",
		Short: "Compare two SARIF reports",
		Long: `Compare the results of a SARIF report with a baseline report and print
every result with its baseline state: new, updated, unchanged or absent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := baseline.LoadReport(args[0])
			if err != nil {
				return startupError(err)
			}

			base, err := baseline.LoadReport(args[1])
			if err != nil {
				return startupError(err)
			}

			cmp := baseline.Compare(
				baseline.EntriesFromReport(current),
				baseline.EntriesFromReport(base),
				baseline.Options{IncludeAbsent: includeAbsent},
			)

			return printer.New(cmd.OutOrStdout(), terminal.NewConfig(noColor)).Comparison(cmp)
		},
	}

	cmd.Flags().BoolVar(&includeAbsent, "include-absent", false, "List baseline results missing from the current report")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
