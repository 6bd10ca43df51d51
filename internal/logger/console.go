// Package logger provides logging implementations for eprimestat batches.
//
// Loggers report batch progress, per-file outcomes and parser diagnostics.
// Implementations are thread-safe: a batch logs from one goroutine per file.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/eprimestat/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs batch progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor already accounts for NO_COLOR and non-TTY output.
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Coalesced parser drop runs arrive here.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, levelColor(level).Sprint(level), message)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// LogBatchStart logs the start of a batch at INFO level and resets progress.
// Format: "[HH:MM:SS] Starting <strategy>: <count> files"
func (cl *ConsoleLogger) LogBatchStart(strategy string, files int) {
	cl.mutex.Lock()
	cl.progress = NewProgressBar(files, 20, cl.colorOutput)
	cl.mutex.Unlock()

	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	name := strategy
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(strategy)
	}
	fmt.Fprintf(cl.writer, "[%s] Starting %s: %d files\n", timestamp(), name, files)
}

// LogFileResult logs one file's outcome. Failures are logged at ERROR with
// the cause, skips at INFO, successes at DEBUG with frame counts. A progress
// line follows at INFO.
func (cl *ConsoleLogger) LogFileResult(result models.FileResult) {
	switch result.Status {
	case models.FileStatusFailed:
		cl.LogError(fmt.Sprintf("%s: %v", result.Base(), result.Error))
	case models.FileStatusSkipped:
		reason := "already handled"
		if result.Error != nil {
			reason = result.Error.Error()
		}
		cl.LogInfo(fmt.Sprintf("%s: skipped (%s)", result.Base(), reason))
	default:
		cl.LogDebug(fmt.Sprintf("%s: %d/%d frames retained, %s (%s)",
			result.Base(), result.FramesRetained, result.FramesParsed,
			describeDrops(result.DroppedLines()), formatDuration(result.Duration)))
	}

	cl.mutex.Lock()
	pb := cl.progress
	cl.mutex.Unlock()
	if pb == nil {
		return
	}
	pb.Increment()
	cl.LogInfo("Progress: " + pb.Render())
}

// LogSummary logs the batch summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.BatchResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	succeeded := len(result.Succeeded())
	failed := result.Failed()
	skipped := len(result.Files) - succeeded - len(failed)

	var sb strings.Builder
	header := "=== Batch Summary ==="
	okText := fmt.Sprintf("Succeeded: %d", succeeded)
	failText := fmt.Sprintf("Failed: %d", len(failed))
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		okText = color.New(color.FgGreen).Sprint(okText)
		if len(failed) > 0 {
			failText = color.New(color.FgRed).Sprint(failText)
		}
	}
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	fmt.Fprintf(&sb, "[%s] Strategy: %s (run %s)\n", ts, result.Strategy, result.RunID)
	fmt.Fprintf(&sb, "[%s] Total files: %d\n", ts, len(result.Files))
	fmt.Fprintf(&sb, "[%s] %s\n", ts, okText)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, failText)
	if skipped > 0 {
		fmt.Fprintf(&sb, "[%s] Skipped: %d\n", ts, skipped)
	}
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))
	if len(failed) > 0 {
		fmt.Fprintf(&sb, "[%s] Failed files:\n", ts)
		for _, f := range failed {
			fmt.Fprintf(&sb, "[%s]   - %s: %v\n", ts, f.Base(), f.Error)
		}
	}

	io.WriteString(cl.writer, sb.String())
}

// describeDrops renders dropped line counts per category, sorted by name.
func describeDrops(drops map[string]int) string {
	if len(drops) == 0 {
		return "no lines dropped"
	}
	cats := make([]string, 0, len(drops))
	for c := range drops {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = fmt.Sprintf("%d %s", drops[c], c)
	}
	return "dropped " + strings.Join(parts, ", ")
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "350ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogBatchStart(string, int) {}
func (n *NoOpLogger) LogFileResult(models.FileResult) {}
func (n *NoOpLogger) LogSummary(models.BatchResult) {}
