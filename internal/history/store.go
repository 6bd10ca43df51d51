// Package history records every batch in a SQLite database so earlier
// runs can be listed and inspected without re-reading the input logs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/eprimestat/internal/models"
)

// ErrRunNotFound is returned when no recorded run matches an id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded batch.
type Run struct {
	ID           string
	Strategy     string
	StartedAt    time.Time
	Duration     time.Duration
	FilesTotal   int
	FilesOK      int
	FilesFailed  int
	FilesSkipped int
	Keys         []string
	SummaryPath  string
}

// FileRecord is one file's outcome within a recorded batch.
type FileRecord struct {
	Position       int
	Path           string
	Status         models.FileStatus
	Error          string
	FramesParsed   int
	FramesRetained int
	DroppedLines   int
	Duration       time.Duration
	DetailPath     string
	Result         models.AnalysisResult
}

// Store manages the SQLite batch history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath and
// brings its schema up to date.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordBatch stores batch and its files in one transaction. A batch
// without a RunID is given one. summaryPath may be empty.
func (s *Store) RecordBatch(ctx context.Context, batch *models.BatchResult, summaryPath string) error {
	if batch.RunID == "" {
		batch.RunID = uuid.NewString()
	}

	keys, err := json.Marshal(batch.Keys)
	if err != nil {
		return fmt.Errorf("marshal result keys: %w", err)
	}

	var ok, failed, skipped int
	for _, f := range batch.Files {
		switch f.Status {
		case models.FileStatusOK:
			ok++
		case models.FileStatusFailed:
			failed++
		case models.FileStatusSkipped:
			skipped++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO batch_runs
		(id, strategy, started_at, duration_ms, files_total, files_ok, files_failed, files_skipped, result_keys, summary_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.RunID, batch.Strategy, batch.StartedAt.UTC(), batch.Duration.Milliseconds(),
		len(batch.Files), ok, failed, skipped, string(keys), summaryPath)
	if err != nil {
		return fmt.Errorf("insert batch run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_results
		(run_id, position, path, status, error_message, frames_parsed, frames_retained, dropped_lines, duration_ms, detail_path, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range batch.Files {
		var errMsg sql.NullString
		if f.Error != nil {
			errMsg = sql.NullString{String: f.Error.Error(), Valid: true}
		}
		var result sql.NullString
		if f.Result != nil {
			data, err := json.Marshal(f.Result)
			if err != nil {
				return fmt.Errorf("marshal result for %s: %w", f.Path, err)
			}
			result = sql.NullString{String: string(data), Valid: true}
		}
		dropped := 0
		for _, d := range f.Drops {
			dropped += d.Lines()
		}

		if _, err := stmt.ExecContext(ctx, batch.RunID, i, f.Path, string(f.Status), errMsg,
			f.FramesParsed, f.FramesRetained, dropped, f.Duration.Milliseconds(), f.DetailPath, result); err != nil {
			return fmt.Errorf("insert file result %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

const runColumns = `id, strategy, started_at, duration_ms, files_total, files_ok, files_failed, files_skipped, result_keys, summary_path`

// ListRuns returns the most recent runs first, optionally restricted to one
// strategy. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, strategy string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM batch_runs`
	var args []any
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY started_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose id starts with idPrefix, with its files in
// input order. A prefix matching more than one run is an error.
func (s *Store) GetRun(ctx context.Context, idPrefix string) (*Run, []*FileRecord, error) {
	if idPrefix == "" {
		return nil, nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM batch_runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`, idPrefix, idPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("query run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
	default:
		return nil, nil, fmt.Errorf("run id %q is ambiguous", idPrefix)
	}

	run := matches[0]
	files, err := s.fileRecords(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, files, nil
}

func (s *Store) fileRecords(ctx context.Context, runID string) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT position, path, status, error_message, frames_parsed,
		frames_retained, dropped_lines, duration_ms, detail_path, result
		FROM file_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query file results: %w", err)
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		var (
			rec        FileRecord
			status     string
			errMsg     sql.NullString
			durationMS int64
			detail     sql.NullString
			result     sql.NullString
		)
		if err := rows.Scan(&rec.Position, &rec.Path, &status, &errMsg, &rec.FramesParsed,
			&rec.FramesRetained, &rec.DroppedLines, &durationMS, &detail, &result); err != nil {
			return nil, fmt.Errorf("scan file result: %w", err)
		}
		rec.Status = models.FileStatus(status)
		rec.Error = errMsg.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.DetailPath = detail.String
		if result.Valid {
			if err := json.Unmarshal([]byte(result.String), &rec.Result); err != nil {
				return nil, fmt.Errorf("unmarshal result for %s: %w", rec.Path, err)
			}
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file results: %w", err)
	}
	return out, nil
}

// DeleteRunsBefore removes runs started before cutoff along with their
// file results, returning the number of runs removed.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_results WHERE run_id IN
		(SELECT id FROM batch_runs WHERE started_at < ?)`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("delete file results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM batch_runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		durationMS int64
		keys       string
		summary    sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Strategy, &run.StartedAt, &durationMS, &run.FilesTotal,
		&run.FilesOK, &run.FilesFailed, &run.FilesSkipped, &keys, &summary); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.SummaryPath = summary.String
	if err := json.Unmarshal([]byte(keys), &run.Keys); err != nil {
		return nil, fmt.Errorf("unmarshal result keys: %w", err)
	}
	return &run, nil
}
