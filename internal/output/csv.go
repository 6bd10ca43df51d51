// Package output writes batch artifacts: per-file detail tables, the batch
// summary table, an HTML report and a Prometheus textfile.
//
// Every file is replaced atomically under a flock held on "<path>.lock",
// so concurrent runs over the same directory never interleave rows.
package output

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/harrison/eprimestat/internal/filelock"
	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/pipeline"
)

// DetailWriter writes "<name>.csv" detail tables, either beside each input
// or into a shared directory.
type DetailWriter struct {
	// OutputDir holds the detail tables; empty means beside the input.
	OutputDir string
}

// NewDetailWriter creates a DetailWriter for outputDir.
func NewDetailWriter(outputDir string) *DetailWriter {
	return &DetailWriter{OutputDir: outputDir}
}

// Path returns the detail table path for input: its name with the
// extension replaced by ".csv".
func (w *DetailWriter) Path(input string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
	if w.OutputDir != "" {
		return filepath.Join(w.OutputDir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

// Write stores detail at path: the frame header and rows, a blank line,
// then one key,value row per result entry.
func (w *DetailWriter) Write(path string, detail pipeline.Detail) error {
	return filelock.LockAndWriteFunc(context.Background(), path, func(out io.Writer) error {
		return encodeDetail(out, detail)
	})
}

func encodeDetail(out io.Writer, detail pipeline.Detail) error {
	cw := csv.NewWriter(out)
	if len(detail.Header) > 0 {
		if err := cw.Write(detail.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(detail.Rows); err != nil {
			return err
		}
	}
	// Zero fields encode as a bare newline.
	if err := cw.Write(nil); err != nil {
		return err
	}
	for _, kv := range detail.Result {
		if err := cw.Write(kv[:]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary stores the batch summary table at path: a header of a blank
// cell followed by the result keys, then one row per successful file in
// input order.
func WriteSummary(ctx context.Context, path string, batch *models.BatchResult) error {
	return filelock.LockAndWriteFunc(ctx, path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(batch.SummaryHeader()); err != nil {
			return err
		}
		if err := cw.WriteAll(batch.SummaryRows()); err != nil {
			return err
		}
		return cw.Error()
	})
}
