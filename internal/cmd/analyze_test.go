package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrison/eprimestat/internal/executor"
	"github.com/harrison/eprimestat/internal/history"
	"github.com/harrison/eprimestat/internal/strategy"
)

// igtLog builds a log whose frames carry the given Stimulus.RESP values.
// An empty response omits the field so the frame is dropped.
func igtLog(responses ...string) string {
	var sb strings.Builder
	sb.WriteString("*** Header Start ***\nExperiment: IGT\n*** Header End ***\n")
	for _, r := range responses {
		sb.WriteString("\t*** LogFrame Start ***\n")
		sb.WriteString("\tProcedure: TrialProc\n")
		if r != "" {
			sb.WriteString("\tStimulus.RESP: " + r + "\n")
		}
		sb.WriteString("\t*** LogFrame End ***\n")
	}
	return sb.String()
}

// setupWorkspace creates an isolated working directory with its own
// eprimestat home and chdirs into it.
func setupWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EPRIMESTAT_HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestAnalyzeCommand_IGT(t *testing.T) {
	dir := setupWorkspace(t, map[string]string{
		"data/s02.txt":   igtLog("DD", "1C"),
		"data/s01.txt":   igtLog("C", "", "A", "D"),
		"data/notes.md":  "not a log",
		"extra/s03.txt":  igtLog("A"),
		"extra/skip.dat": "x",
	})

	stdout, stderr, err := executeCommand(t, "analyze", "IGT",
		"extra/s03.txt", "data", "--log-dir", "", "--no-history")
	if err != nil {
		t.Fatalf("analyze failed: %v\nstderr:\n%s", err, stderr)
	}

	// Summary rows follow target order: explicit file first, then the
	// directory's files sorted by name.
	summary := readFile(t, filepath.Join(dir, "IGT-summary.csv"))
	if want := ",IGT\ns03.txt,-1\ns01.txt,1\ns02.txt,2\n"; summary != want {
		t.Errorf("summary =\n%q\nwant\n%q", summary, want)
	}

	detail := readFile(t, filepath.Join(dir, "data", "s01.csv"))
	if want := "Choice\nC\nA\nD\n\nIGT,1\n"; detail != want {
		t.Errorf("detail =\n%q\nwant\n%q", detail, want)
	}

	i1, i3 := strings.Index(stdout, "s01.txt"), strings.Index(stdout, "s03.txt")
	if i1 < 0 || i3 < 0 || i3 > i1 {
		t.Errorf("stdout table out of order:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "home", "history.db")); !os.IsNotExist(err) {
		t.Errorf("history should not be written with --no-history")
	}
}

func TestAnalyzeCommand_SkipHandled(t *testing.T) {
	dir := setupWorkspace(t, map[string]string{
		"data/s01.txt": igtLog("C"),
		"data/s01.csv": "already,done\n",
		"data/s02.txt": igtLog("D", "D"),
	})

	_, stderr, err := executeCommand(t, "analyze", "IGT", "data",
		"--skip-handled", "--log-dir", "", "--no-history")
	if err != nil {
		t.Fatalf("analyze failed: %v\nstderr:\n%s", err, stderr)
	}

	if got := readFile(t, filepath.Join(dir, "data", "s01.csv")); got != "already,done\n" {
		t.Errorf("handled file was rewritten: %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "IGT-summary.csv")); got != ",IGT\ns02.txt,2\n" {
		t.Errorf("summary = %q", got)
	}
}

func TestAnalyzeCommand_OutputDirAndArtifacts(t *testing.T) {
	dir := setupWorkspace(t, map[string]string{
		"data/s01.txt": igtLog("C", "C"),
	})
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0755); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := executeCommand(t, "analyze", "IGT", "data",
		"--log-dir", "",
		"--output-dir", outDir,
		"--summary", filepath.Join(outDir, "summary.csv"),
		"--report", filepath.Join(outDir, "report.html"),
		"--metrics", filepath.Join(outDir, "batch.prom"))
	if err != nil {
		t.Fatalf("analyze failed: %v\nstderr:\n%s", err, stderr)
	}

	for _, name := range []string{"s01.csv", "summary.csv", "report.html", "batch.prom"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "s01.csv")); !os.IsNotExist(err) {
		t.Errorf("detail should go to the output dir only")
	}

	store, err := history.NewStore(filepath.Join(dir, "home", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Strategy != "IGT" || runs[0].FilesOK != 1 {
		t.Fatalf("history runs = %+v", runs)
	}

	out, _, err := executeCommand(t, "history", "show", runs[0].ID[:8])
	if err != nil {
		t.Fatalf("history show failed: %v", err)
	}
	if !strings.Contains(out, "s01.txt") || !strings.Contains(out, "OK") {
		t.Errorf("history show output:\n%s", out)
	}

	out, _, err = executeCommand(t, "history", "list")
	if err != nil {
		t.Fatalf("history list failed: %v", err)
	}
	if !strings.Contains(out, runs[0].ID[:8]) {
		t.Errorf("history list output:\n%s", out)
	}
}

func TestAnalyzeCommand_AllFilesFail(t *testing.T) {
	// The smoke strategy needs an integer Slide1.OnsetTime in every
	// retained frame; six frames without one leave a non-numeric average.
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString("\t*** LogFrame Start ***\n\tSlide1.OnsetTime: soon\n\t*** LogFrame End ***\n")
	}
	dir := setupWorkspace(t, map[string]string{"data/bad.txt": sb.String()})

	_, _, err := executeCommand(t, "analyze", "test", "data", "--log-dir", "", "--no-history")
	if err == nil {
		t.Fatal("expected an error when every file fails")
	}
	var batchErr *executor.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("error = %v, want BatchError", err)
	}
	if !errors.Is(err, strategy.ErrInvalidField) {
		t.Errorf("error should wrap ErrInvalidField: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "test-summary.csv")); !os.IsNotExist(err) {
		t.Errorf("no summary expected when nothing succeeded")
	}
}

func TestAnalyzeCommand_FatalErrors(t *testing.T) {
	setupWorkspace(t, map[string]string{"data/s01.txt": igtLog("C")})

	_, _, err := executeCommand(t, "analyze", "Stroop", "data", "--log-dir", "", "--no-history")
	if !errors.Is(err, strategy.ErrUnknownStrategy) {
		t.Errorf("unknown strategy error = %v", err)
	}

	_, _, err = executeCommand(t, "analyze", "IGT", "missing", "--log-dir", "", "--no-history")
	if !errors.Is(err, executor.ErrNoTargets) {
		t.Errorf("no targets error = %v", err)
	}

	_, _, err = executeCommand(t, "analyze", "IGT", "data", "--log-dir", "", "--encoding", "latin1")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("bad encoding error = %v", err)
	}
}

func TestFramesCommand(t *testing.T) {
	dir := setupWorkspace(t, map[string]string{
		"s01.txt": "junk\n\t*** LogFrame Start ***\n\tA: 1\n\tB: x:y\n\t*** LogFrame End ***\n",
	})

	stdout, stderr, err := executeCommand(t, "frames", filepath.Join(dir, "s01.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "LogFrame(start=2,end=5,size=2,A:1,B:x:y)\n"; stdout != want {
		t.Errorf("frames output = %q, want %q", stdout, want)
	}
	if !strings.Contains(stderr, "line 1") {
		t.Errorf("expected dropped line diagnostic, got %q", stderr)
	}

	stdout, stderr, err = executeCommand(t, "frames", "--summary", "--quiet", filepath.Join(dir, "s01.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "{2~5: 2 items}\n" || stderr != "" {
		t.Errorf("summary output = %q, stderr = %q", stdout, stderr)
	}
}
