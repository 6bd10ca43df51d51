package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/history"
	"github.com/harrison/eprimestat/internal/models"
)

// NewHistoryCommand creates the history command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded batches",
		Long: `Every analyze run is recorded in a SQLite database
($EPRIMESTAT_HOME/history.db unless history.db_path is set).`,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .eprimestat/config.yaml)")
	cmd.PersistentFlags().String("db", "", "History database path (overrides config)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent batches, newest first",
		Args:  cobra.NoArgs,
		RunE:  historyListCommand,
	}
	list.Flags().String("strategy", "", "Only list batches of this strategy")
	list.Flags().Int("limit", 20, "Maximum batches to list (0 = all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one batch and its files (a unique id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE:  historyShowCommand,
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete batches older than a cutoff",
		Args:  cobra.NoArgs,
		RunE:  historyPruneCommand,
	}
	prune.Flags().Duration("older-than", 90*24*time.Hour, "Delete batches started longer ago than this")

	cmd.AddCommand(list, show, prune)
	return cmd
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		dbPath, err = cfg.HistoryDB()
		if err != nil {
			return nil, err
		}
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	strategyName, _ := cmd.Flags().GetString("strategy")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), strategyName, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No batches recorded.")
		return nil
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Strategy,
			strconv.Itoa(r.FilesTotal),
			strconv.Itoa(r.FilesOK),
			strconv.Itoa(r.FilesFailed),
			r.Duration.Round(time.Millisecond).String(),
		}
	}
	return writeTable(cmd.OutOrStdout(),
		[]string{"run", "started", "strategy", "files", "ok", "failed", "duration"}, rows)
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	run, files, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Strategy: %s\n", run.Strategy)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Files:    %d (%d ok, %d failed, %d skipped)\n",
		run.FilesTotal, run.FilesOK, run.FilesFailed, run.FilesSkipped)
	if run.SummaryPath != "" {
		fmt.Fprintf(out, "Summary:  %s\n", run.SummaryPath)
	}
	fmt.Fprintln(out)

	header := append([]string{"file", "status", "frames"}, run.Keys...)
	rows := make([][]string, len(files))
	for i, f := range files {
		row := []string{filepath.Base(f.Path), string(f.Status), fmt.Sprintf("%d/%d", f.FramesRetained, f.FramesParsed)}
		for _, k := range run.Keys {
			if v, ok := f.Result[k]; ok {
				row = append(row, models.FormatValue(v))
			} else {
				row = append(row, "")
			}
		}
		rows[i] = row
	}
	if err := writeTable(out, header, rows); err != nil {
		return err
	}

	var failures []string
	for _, f := range files {
		if f.Error != "" {
			failures = append(failures, fmt.Sprintf("  %s: %s", filepath.Base(f.Path), f.Error))
		}
	}
	if len(failures) > 0 {
		fmt.Fprintf(out, "\nFailures:\n%s\n", strings.Join(failures, "\n"))
	}
	return nil
}

func historyPruneCommand(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	olderThan, _ := cmd.Flags().GetDuration("older-than")
	n, err := store.DeleteRunsBefore(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d batch(es).\n", n)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
