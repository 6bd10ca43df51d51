package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/eprimestat/internal/filelock"
	"github.com/harrison/eprimestat/internal/models"
)

const reportHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>eprimestat %s</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
td:first-child { text-align: left; }
</style>
</head>
<body>
`

// ReportMarkdown renders the batch as a markdown document: the run header,
// the summary table and the failed files.
func ReportMarkdown(batch *models.BatchResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s batch\n\n", batch.Strategy)
	if batch.RunID != "" {
		fmt.Fprintf(&b, "- Run: `%s`\n", batch.RunID)
	}
	if !batch.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", batch.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Duration: %s\n", batch.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Files: %d (%d succeeded, %d failed)\n\n",
		len(batch.Files), len(batch.Succeeded()), len(batch.Failed()))

	b.WriteString("## Summary\n\n")
	rows := batch.SummaryRows()
	if len(rows) == 0 {
		b.WriteString("No file produced a result.\n\n")
	} else {
		header := batch.SummaryHeader()
		header[0] = "File"
		writeTableRow(&b, header)
		sep := make([]string, len(header))
		for i := range sep {
			sep[i] = "---"
		}
		writeTableRow(&b, sep)
		for _, row := range rows {
			writeTableRow(&b, row)
		}
		b.WriteString("\n")
	}

	if failed := batch.Failed(); len(failed) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range failed {
			msg := "unknown error"
			if f.Error != nil {
				msg = f.Error.Error()
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Base(), escapeCell(msg))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeTableRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderReport converts the batch report to a standalone HTML page.
func RenderReport(w io.Writer, batch *models.BatchResult) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(ReportMarkdown(batch)), &body); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if _, err := fmt.Fprintf(w, reportHead, batch.Strategy); err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

// WriteReport renders the HTML report to path.
func WriteReport(ctx context.Context, path string, batch *models.BatchResult) error {
	return filelock.LockAndWriteFunc(ctx, path, func(w io.Writer) error {
		return RenderReport(w, batch)
	})
}
