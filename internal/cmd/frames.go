package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/logframe"
)

// NewFramesCommand creates the frames command
func NewFramesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames <file>",
		Short: "Dump the LogFrames parsed from one log",
		Long: `Parse one E-Prime log and print every recovered LogFrame with its
line range and fields, in the order the frames were closed.

Skipped lines are reported on stderr, one line per contiguous run.`,
		Args: cobra.ExactArgs(1),
		RunE: framesCommand,
	}

	cmd.Flags().String("encoding", "", "Input encoding: auto, utf-8, utf-16le, utf-16be")
	cmd.Flags().Bool("quiet", false, "Do not report skipped lines")
	cmd.Flags().Bool("summary", false, "Print {start~end: N items} instead of every field")
	cmd.Flags().Bool("report-unterminated", false, "Report a block still open at end of file")
	cmd.Flags().Bool("warn-duplicate-keys", false, "Report keys repeated within a block")

	return cmd
}

func framesCommand(cmd *cobra.Command, args []string) error {
	encName, _ := cmd.Flags().GetString("encoding")
	enc, err := logframe.ParseEncoding(encName)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	short, _ := cmd.Flags().GetBool("summary")
	reportUnterminated, _ := cmd.Flags().GetBool("report-unterminated")
	warnDuplicates, _ := cmd.Flags().GetBool("warn-duplicate-keys")

	var reporter logframe.Reporter
	if !quiet {
		reporter = &stderrReporter{cmd: cmd}
	}
	parser := logframe.NewParser(reporter, logframe.ParseOptions{
		ReportUnterminated: reportUnterminated,
		WarnDuplicateKeys:  warnDuplicates,
	})

	res, err := logframe.ParseFile(args[0], enc, parser)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range res.Frames {
		if short {
			fmt.Fprintln(out, f.String())
		} else {
			fmt.Fprintln(out, f.GoString())
		}
	}
	return nil
}

// stderrReporter writes parser diagnostics as bare lines on stderr.
type stderrReporter struct {
	cmd *cobra.Command
}

func (r *stderrReporter) LogDebug(message string) {
	fmt.Fprintln(r.cmd.ErrOrStderr(), message)
}

func (r *stderrReporter) LogWarn(message string) {
	fmt.Fprintln(r.cmd.ErrOrStderr(), "warning: "+message)
}
