package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/qodana/pkg/baseline"
	"github.com/Sumatoshi-tech/qodana/pkg/printer"
	"github.com/Sumatoshi-tech/qodana/pkg/report"
	"github.com/Sumatoshi-tech/qodana/pkg/resultstore"
	"github.com/Sumatoshi-tech/qodana/pkg/terminal"
)

// NewPrintCommand creates the print command.
func NewPrintCommand() *cobra.Command {
	var (
		format        string
		noColor       bool
		baselinePath  string
		includeAbsent bool
	)

	cmd := &cobra.Command{
		Use:   "print <results-dir>",
		Short: "Print the summary of a finished run",
		Long:  "Reopen the result store of a finished run and print its problem summary, split by baseline state with --baseline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := printer.ParseFormat(format)
			if err != nil {
				return startupError(err)
			}

			reader, err := resultstore.Open(filepath.Join(args[0], resultstore.FileName))
			if err != nil {
				return startupError(err)
			}
			defer reader.Close()

			var base []baseline.Entry

			if baselinePath != "" {
				doc, loadErr := baseline.LoadReport(baselinePath)
				if loadErr != nil {
					return startupError(loadErr)
				}

				base = baseline.EntriesFromReport(doc)
			}

			rep, err := report.Build(cmd.Context(), reader, report.Options{})
			if err != nil {
				return err
			}

			if baselinePath != "" {
				rep.ApplyBaseline(base, baseline.Options{IncludeAbsent: includeAbsent})
			}

			return printer.New(cmd.OutOrStdout(), terminal.NewConfig(noColor)).Summary(rep.Summary(), f)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(printer.FormatText), "Output format: text, json, yaml, html")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Baseline SARIF report to classify problems against")
	cmd.Flags().BoolVar(&includeAbsent, "baseline-include-absent", false, "Count baseline problems that are gone")

	return cmd
}
