package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/config"
	"github.com/harrison/eprimestat/internal/executor"
	"github.com/harrison/eprimestat/internal/fileutil"
	"github.com/harrison/eprimestat/internal/history"
	"github.com/harrison/eprimestat/internal/logger"
	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/output"
)

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <strategy> <target>...",
		Short: "Run a strategy over E-Prime logs",
		Long: `Run an analysis strategy over one or more E-Prime logs.

Targets may be files or directories. A directory contributes every file
with the input extension (.txt by default), sorted by name. Each file's
transformed trials and results are written to a detail CSV beside it,
and one summary row per file is written to <strategy>-summary.csv and
printed as a table.

Configuration is loaded from .eprimestat/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  eprimestat analyze IGT data/
  eprimestat analyze EFT s01.txt s02.txt --skip-handled
  eprimestat analyze AttentionalBias data/ --recursive --report ab.html
  eprimestat analyze test data/ --max-concurrency 4 --verbose`,
		Args: cobra.MinimumNArgs(2),
		RunE: analyzeCommand,
	}

	addBatchFlags(cmd)
	cmd.Flags().String("summary", "", "Summary CSV path (default: <strategy>-summary.csv)")
	cmd.Flags().String("report", "", "Write an HTML report to this path")
	cmd.Flags().String("metrics", "", "Write a Prometheus textfile to this path")
	cmd.Flags().Bool("no-history", false, "Do not record the batch in the history database")

	return cmd
}

func analyzeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	targets, err := fileutil.ResolveTargets(args[1:], scanOptions(cmd, cfg), log)
	if err != nil {
		return err
	}

	proc, err := newProcessor(cfg, log)
	if err != nil {
		return err
	}

	orch := executor.NewOrchestrator(proc, log, executor.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		FailFast:       cfg.FailFast,
	})

	ctx := cmd.Context()
	batch, runErr := orch.Run(ctx, args[0], targets)
	if batch == nil {
		return runErr
	}

	if err := writeArtifacts(ctx, cfg, batch, log); err != nil {
		return err
	}

	if rows := batch.SummaryRows(); len(rows) > 0 {
		header := batch.SummaryHeader()
		header[0] = "file"
		if err := writeTable(cmd.OutOrStdout(), header, rows); err != nil {
			return err
		}
	}

	if runErr != nil {
		var batchErr *executor.BatchError
		if errors.As(runErr, &batchErr) {
			return fmt.Errorf("analysis failed: %w", runErr)
		}
		return runErr
	}
	return nil
}

// writeArtifacts writes the summary CSV, optional report and metrics, and
// records the batch in history. Only a summary write failure is fatal.
func writeArtifacts(ctx context.Context, cfg *config.Config, batch *models.BatchResult, log logger.Logger) error {
	summaryPath := ""
	if len(batch.Succeeded()) > 0 {
		summaryPath = cfg.SummaryFile(batch.Strategy)
		if err := output.WriteSummary(ctx, summaryPath, batch); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		log.LogInfo("summary written to " + summaryPath)
	} else {
		log.LogWarn("no file produced a result; summary not written")
	}

	if cfg.ReportPath != "" {
		if err := output.WriteReport(ctx, cfg.ReportPath, batch); err != nil {
			log.LogWarn("report not written: " + err.Error())
		} else {
			log.LogInfo("report written to " + cfg.ReportPath)
		}
	}

	if cfg.MetricsPath != "" {
		if err := output.WriteMetrics(ctx, cfg.MetricsPath, batch); err != nil {
			log.LogWarn("metrics not written: " + err.Error())
		}
	}

	if cfg.History.Enabled {
		if err := recordHistory(ctx, cfg, batch, summaryPath); err != nil {
			log.LogWarn("batch not recorded in history: " + err.Error())
		} else {
			log.LogDebug("batch recorded as run " + batch.RunID)
		}
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, batch *models.BatchResult, summaryPath string) error {
	dbPath, err := cfg.HistoryDB()
	if err != nil {
		return err
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordBatch(ctx, batch, summaryPath)
}
