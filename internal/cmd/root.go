package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for eprimestat
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eprimestat",
		Short: "Batch statistics for E-Prime experiment logs",
		Long: `eprimestat reads E-Prime LogFrame exports, filters and normalises the
trials each paradigm cares about, and reduces every log to a row of
summary statistics.

Files are processed concurrently; the summary always lists them in the
order they were given on the command line.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewFramesCommand())
	cmd.AddCommand(NewStrategiesCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
