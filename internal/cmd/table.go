package cmd

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeTable prints rows under header in aligned columns. Columns holding
// only numbers are right aligned. Widths are measured in terminal cells so
// CJK file names line up.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	numeric := make([]bool, len(header))
	for i := range numeric {
		numeric[i] = len(rows) > 0
	}
	measure := func(cells []string) {
		for i, c := range cells {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
		for i := range numeric {
			if i >= len(row) || row[i] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(row[i], 64); err != nil {
				numeric[i] = false
			}
		}
	}

	bold := color.New(color.Bold)
	if !isTerminal(w) || color.NoColor {
		bold.DisableColor()
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			if numeric[i] {
				parts[i] = runewidth.FillLeft(c, widths[i])
			} else {
				parts[i] = runewidth.FillRight(c, widths[i])
			}
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	if _, err := io.WriteString(w, bold.Sprint(line(header))+"\n"); err != nil {
		return err
	}
	total := 0
	for _, width := range widths {
		total += width
	}
	total += 2 * max(len(widths)-1, 0)
	if _, err := io.WriteString(w, strings.Repeat("-", total)+"\n"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := io.WriteString(w, line(row)+"\n"); err != nil {
			return err
		}
	}
	return nil
}
