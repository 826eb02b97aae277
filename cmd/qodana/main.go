// Package main provides the entry point for the qodana CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/qodana/cmd/qodana/commands"
	"github.com/Sumatoshi-tech/qodana/pkg/exitstatus"
	"github.com/Sumatoshi-tech/qodana/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "qodana",
		Short: "Qodana result pipeline",
		Long: `Qodana collects inspection results into a result store, compares them
with a baseline and decides the exit status of the run.

Commands:
  run       Collect inspection output and evaluate failure conditions
  compare   Compare two SARIF reports
  print     Print the summary of a finished run
  mcp       Serve a finished run over MCP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewCompareCommand())
	rootCmd.AddCommand(commands.NewPrintCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	err := rootCmd.Execute()
	if err == nil {
		return
	}

	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var exitErr *commands.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return int(exitstatus.StartupError)
	}

	if exitErr.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
	}

	return int(exitErr.Status.Code)
}
