package logger

import (
	"github.com/harrison/eprimestat/internal/models"
)

// Logger is the full logging surface shared by ConsoleLogger, FileLogger
// and NoOpLogger.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogBatchStart(strategy string, files int)
	LogFileResult(result models.FileResult)
	LogSummary(result models.BatchResult)
}

// Multi fans every call out to each logger in order. Nil entries are
// skipped.
type Multi []Logger

func (m Multi) each(fn func(Logger)) {
	for _, l := range m {
		if l != nil {
			fn(l)
		}
	}
}

// LogTrace logs message at TRACE level on every logger.
func (m Multi) LogTrace(message string) {
	m.each(func(l Logger) { l.LogTrace(message) })
}

// LogDebug logs message at DEBUG level on every logger.
func (m Multi) LogDebug(message string) {
	m.each(func(l Logger) { l.LogDebug(message) })
}

// LogInfo logs message at INFO level on every logger.
func (m Multi) LogInfo(message string) {
	m.each(func(l Logger) { l.LogInfo(message) })
}

// LogWarn logs message at WARN level on every logger.
func (m Multi) LogWarn(message string) {
	m.each(func(l Logger) { l.LogWarn(message) })
}

// LogError logs message at ERROR level on every logger.
func (m Multi) LogError(message string) {
	m.each(func(l Logger) { l.LogError(message) })
}

// LogBatchStart announces a batch on every logger.
func (m Multi) LogBatchStart(strategy string, files int) {
	m.each(func(l Logger) { l.LogBatchStart(strategy, files) })
}

// LogFileResult records one file's outcome on every logger.
func (m Multi) LogFileResult(result models.FileResult) {
	m.each(func(l Logger) { l.LogFileResult(result) })
}

// LogSummary records the batch summary on every logger.
func (m Multi) LogSummary(result models.BatchResult) {
	m.each(func(l Logger) { l.LogSummary(result) })
}
