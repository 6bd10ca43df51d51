package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/eprimestat/internal/models"
)

// DefaultLogDir is where run logs go when no directory is configured.
var DefaultLogDir = filepath.Join(".eprimestat", "logs")

// FileLogger logs batch events to timestamped per-run files and maintains
// a latest.log symlink pointing to the most recent run.
// It is thread-safe and implements the executor.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in DefaultLogDir at level "info".
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(DefaultLogDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a FileLogger with a custom log
// directory and log level. The directory is created if missing.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== eprimestat Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogBatchStart records the strategy and file count at INFO level.
func (fl *FileLogger) LogBatchStart(strategy string, files int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] Starting %s: %d files\n", timestamp(), strategy, files))
}

// LogFileResult records one file's outcome, including its result values
// and drop reasons so the run log is self-contained.
func (fl *FileLogger) LogFileResult(result models.FileResult) {
	switch result.Status {
	case models.FileStatusFailed:
		fl.LogError(fmt.Sprintf("%s: %v", result.Path, result.Error))
		return
	case models.FileStatusSkipped:
		fl.LogInfo(fmt.Sprintf("%s: skipped", result.Path))
		return
	}

	if !fl.shouldLog("info") {
		return
	}

	var sb strings.Builder
	ts := timestamp()
	fmt.Fprintf(&sb, "[%s] %s: OK in %s\n", ts, result.Path, formatDuration(result.Duration))
	fmt.Fprintf(&sb, "[%s]   frames: %d parsed, %d retained\n", ts, result.FramesParsed, result.FramesRetained)
	fmt.Fprintf(&sb, "[%s]   lines: %s\n", ts, describeDrops(result.DroppedLines()))
	if len(result.DropReasons) > 0 {
		fmt.Fprintf(&sb, "[%s]   frames dropped: %s\n", ts, describeReasons(result.DropReasons))
	}
	if result.DetailPath != "" {
		fmt.Fprintf(&sb, "[%s]   detail: %s\n", ts, result.DetailPath)
	}
	fl.writeRunLog(sb.String())
}

// LogSummary records the batch summary at INFO level, with one line per
// successful file carrying its result row.
func (fl *FileLogger) LogSummary(result models.BatchResult) {
	if !fl.shouldLog("info") {
		return
	}

	var sb strings.Builder
	sb.WriteString("\n=== Batch Summary ===\n")
	fmt.Fprintf(&sb, "Run: %s\n", result.RunID)
	fmt.Fprintf(&sb, "Strategy: %s\n", result.Strategy)
	fmt.Fprintf(&sb, "Total files: %d\n", len(result.Files))
	fmt.Fprintf(&sb, "Succeeded: %d\n", len(result.Succeeded()))
	fmt.Fprintf(&sb, "Failed: %d\n", len(result.Failed()))
	fmt.Fprintf(&sb, "Duration: %s\n", formatDuration(result.Duration))

	sb.WriteString(strings.Join(result.SummaryHeader(), ","))
	sb.WriteByte('\n')
	for _, row := range result.SummaryRows() {
		sb.WriteString(strings.Join(row, ","))
		sb.WriteByte('\n')
	}
	fl.writeRunLog(sb.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}

func describeReasons(reasons map[string]int) string {
	out := describeDrops(reasons)
	return strings.TrimPrefix(out, "dropped ")
}
