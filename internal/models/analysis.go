package models

import (
	"path/filepath"
	"strconv"
	"time"
)

// Drop categories reported by the frame parser.
const (
	DropZeroIndent = "0-indent data"
	DropIllegal    = "illegal data"
	DropOther      = "other data"
)

// Structural anomaly categories. These are reported immediately rather
// than coalesced.
const (
	AnomalyIncompleteStart = "incomplete LogFrame start"
	AnomalyIncompleteEnd   = "incomplete LogFrame end"
)

// DropRun is one contiguous range of skipped input lines under a category.
type DropRun struct {
	Category  string `msgpack:"category"`
	FirstLine int    `msgpack:"first"`
	LastLine  int    `msgpack:"last"`
}

// Lines returns the number of lines covered by the run.
func (d DropRun) Lines() int {
	return d.LastLine - d.FirstLine + 1
}

// AnalysisResult maps a strategy's result keys to numeric values.
type AnalysisResult map[string]float64

// FormatValue renders a result value in the shortest form that round-trips,
// so integral values print without a fractional part.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileStatus is the outcome of processing one input file.
type FileStatus string

const (
	// FileStatusOK means the pipeline produced a result.
	FileStatusOK FileStatus = "OK"
	// FileStatusFailed means the file was degraded to failed.
	FileStatusFailed FileStatus = "FAILED"
	// FileStatusSkipped means the file was not processed (already handled).
	FileStatusSkipped FileStatus = "SKIPPED"
)

// FileResult is the per-file outcome of a batch.
type FileResult struct {
	Path           string
	Status         FileStatus
	Result         AnalysisResult
	Error          error
	FramesParsed   int
	FramesRetained int
	Drops          []DropRun
	DropReasons    map[string]int
	DetailPath     string
	Duration       time.Duration
}

// Base returns the file's basename, used as the summary row label.
func (r FileResult) Base() string {
	return filepath.Base(r.Path)
}

// Succeeded reports whether the file produced a result row.
func (r FileResult) Succeeded() bool {
	return r.Status == FileStatusOK
}

// DroppedLines totals the dropped lines per category.
func (r FileResult) DroppedLines() map[string]int {
	out := make(map[string]int)
	for _, d := range r.Drops {
		out[d.Category] += d.Lines()
	}
	return out
}

// BatchResult is the merged outcome of a batch, in input order.
type BatchResult struct {
	RunID     string
	Strategy  string
	Keys      []string
	Files     []FileResult
	StartedAt time.Time
	Duration  time.Duration
}

// Succeeded returns the files that produced a result, in input order.
func (b *BatchResult) Succeeded() []FileResult {
	var out []FileResult
	for _, f := range b.Files {
		if f.Succeeded() {
			out = append(out, f)
		}
	}
	return out
}

// Failed returns the files degraded to failed, in input order.
func (b *BatchResult) Failed() []FileResult {
	var out []FileResult
	for _, f := range b.Files {
		if f.Status == FileStatusFailed {
			out = append(out, f)
		}
	}
	return out
}

// SummaryHeader returns the summary table header: a blank basename column
// followed by the strategy's result keys.
func (b *BatchResult) SummaryHeader() []string {
	header := make([]string, 0, len(b.Keys)+1)
	header = append(header, "")
	return append(header, b.Keys...)
}

// SummaryRows returns one row per successful file, in input order.
func (b *BatchResult) SummaryRows() [][]string {
	var rows [][]string
	for _, f := range b.Succeeded() {
		row := make([]string, 0, len(b.Keys)+1)
		row = append(row, f.Base())
		for _, k := range b.Keys {
			row = append(row, FormatValue(f.Result[k]))
		}
		rows = append(rows, row)
	}
	return rows
}
