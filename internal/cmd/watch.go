package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/executor"
	"github.com/harrison/eprimestat/internal/fileutil"
	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/strategy"
	"github.com/harrison/eprimestat/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <strategy> <dir>...",
		Short: "Re-analyze logs whenever they are written",
		Long: `Watch directories and rerun a strategy on each log after it has been
created or rewritten. The whole file is read again once writes have
stopped for the debounce delay, and its detail CSV is replaced.

Runs until interrupted.

Examples:
  eprimestat watch IGT data/
  eprimestat watch EFT data/ --recursive --initial`,
		Args: cobra.MinimumNArgs(2),
		RunE: watchCommand,
	}

	addBatchFlags(cmd)
	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period after the last write before a file is analyzed")
	cmd.Flags().Bool("initial", false, "Analyze the files already present before watching")

	return cmd
}

func watchCommand(cmd *cobra.Command, args []string) error {
	strategyName, dirs := args[0], args[1:]
	if _, err := strategy.Lookup(strategyName); err != nil {
		return err
	}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	proc, err := newProcessor(cfg, log)
	if err != nil {
		return err
	}
	// A rewritten file must be analyzed again even though its detail exists.
	proc.SkipHandled = false
	orch := executor.NewOrchestrator(proc, log, executor.Options{MaxConcurrency: cfg.MaxConcurrency})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	analyze := func(ctx context.Context, targets []string) {
		batch, err := orch.Run(ctx, strategyName, targets)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.LogDebug(err.Error())
		}
		if batch == nil {
			return
		}
		for _, f := range batch.Succeeded() {
			row := []string{time.Now().Format("15:04:05"), f.Base()}
			for _, k := range batch.Keys {
				row = append(row, fmt.Sprintf("%s=%s", k, models.FormatValue(f.Result[k])))
			}
			fmt.Fprintln(out, strings.Join(row, "  "))
		}
	}

	if initial, _ := cmd.Flags().GetBool("initial"); initial {
		targets, err := fileutil.ResolveTargets(dirs, scanOptions(cmd, cfg), log)
		if err != nil {
			return err
		}
		if len(targets) > 0 {
			analyze(ctx, targets)
		}
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	w, err := watch.New(dirs, watch.Options{
		Extension: cfg.Extension,
		Pattern:   scanOptions(cmd, cfg).Pattern,
		Recursive: cfg.Recursive,
		Debounce:  debounce,
	})
	if err != nil {
		return fmt.Errorf("failed to watch: %w", err)
	}
	defer w.Close()

	log.LogInfo(fmt.Sprintf("watching %d director(ies) for %s files; press Ctrl+C to stop", len(dirs), cfg.Extension))
	return watch.Run(ctx, w, func(ctx context.Context, path string) {
		analyze(ctx, []string{path})
	}, func(err error) {
		log.LogWarn("watcher: " + err.Error())
	})
}
