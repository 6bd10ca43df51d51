package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/eprimestat/internal/models"
)

func readLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	data, err := os.ReadFile(fl.Path())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	return string(data)
}

// TestDefaultLogDirectory verifies .eprimestat/logs/ is created on initialization
func TestDefaultLogDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	logger, err := NewFileLogger()
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(filepath.Join(".eprimestat", "logs")); err != nil {
		t.Errorf("expected default log directory: %v", err)
	}
}

// TestLatestSymlink verifies latest.log points at the current run log
func TestLatestSymlink(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLoggerWithDirAndLevel(dir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer logger.Close()

	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	if err != nil {
		t.Fatalf("expected latest.log symlink: %v", err)
	}
	if target != filepath.Base(logger.Path()) {
		t.Errorf("symlink target = %q, want %q", target, filepath.Base(logger.Path()))
	}
	if !strings.HasPrefix(target, "run-") || !strings.HasSuffix(target, ".log") {
		t.Errorf("unexpected run log name %q", target)
	}

	// A second logger in the same second reuses the file name; the symlink
	// must still be replaced without error.
	second, err := NewFileLoggerWithDirAndLevel(dir, "info")
	if err != nil {
		t.Fatalf("second logger: %v", err)
	}
	second.Close()
}

func TestFileLogger_BatchEvents(t *testing.T) {
	logger, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}

	logger.LogBatchStart("AttentionalBias", 2)
	logger.LogDebug("filtered out at info")
	logger.LogFileResult(models.FileResult{
		Path:           "/data/p01.txt",
		Status:         models.FileStatusOK,
		FramesParsed:   100,
		FramesRetained: 80,
		DropReasons:    map[string]int{"example procedure": 12, "no reaction": 8},
		DetailPath:     "/data/p01.csv",
		Result:         models.AnalysisResult{"Neg_avg_rt": 412.5},
	})
	logger.LogFileResult(models.FileResult{
		Path:   "/data/p02.txt",
		Status: models.FileStatusFailed,
		Error:  errors.New("illegal frame"),
	})
	logger.LogSummary(models.BatchResult{
		RunID:    "abc",
		Strategy: "AttentionalBias",
		Keys:     []string{"Neg_avg_rt"},
		Files: []models.FileResult{
			{Path: "/data/p01.txt", Status: models.FileStatusOK, Result: models.AnalysisResult{"Neg_avg_rt": 412.5}},
		},
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := readLog(t, logger)
	for _, want := range []string{
		"=== eprimestat Run Log ===",
		"Starting AttentionalBias: 2 files",
		"frames: 100 parsed, 80 retained",
		"frames dropped: 12 example procedure, 8 no reaction",
		"detail: /data/p01.csv",
		"[ERROR] /data/p02.txt: illegal frame",
		"Run: abc",
		",Neg_avg_rt\np01.txt,412.5\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("run log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "filtered out at info") {
		t.Error("debug message should be filtered at info level")
	}
}

func TestFileLogger_CloseTwice(t *testing.T) {
	logger, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	// Writes after close are dropped silently.
	logger.LogError("late")
}

func TestNewFileLoggerInvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileLoggerWithDirAndLevel(filepath.Join(file, "logs"), "info"); err == nil {
		t.Error("expected error when log dir cannot be created")
	}
}
