package logframe

import (
	"fmt"
	"sort"

	"github.com/harrison/eprimestat/internal/models"
)

// Reporter receives human-readable parser diagnostics.
// The logger package's ConsoleLogger and FileLogger satisfy it.
type Reporter interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Coalescer merges per-line drop events into contiguous runs, one per
// category, and reports a single message per run instead of one per line.
//
// Coalescing is observational only: the parser never consults it to decide
// what to keep.
type Coalescer struct {
	reporter Reporter
	source   string
	open     map[string]*models.DropRun
	order    []string
	closed   []models.DropRun
}

// NewCoalescer creates a Coalescer reporting to reporter. source prefixes
// every message (typically the input file's basename) and may be empty.
// A nil reporter records runs without reporting them.
func NewCoalescer(reporter Reporter, source string) *Coalescer {
	return &Coalescer{
		reporter: reporter,
		source:   source,
		open:     make(map[string]*models.DropRun),
	}
}

// Mark records that line was dropped under category. The current run for
// the category is extended when line directly follows it; otherwise the
// run is reported and a new one started.
func (c *Coalescer) Mark(category string, line int) {
	run, ok := c.open[category]
	if !ok {
		c.open[category] = &models.DropRun{Category: category, FirstLine: line, LastLine: line}
		c.order = append(c.order, category)
		return
	}
	if run.LastLine == line-1 {
		run.LastLine = line
		return
	}
	c.emit(*run)
	*run = models.DropRun{Category: category, FirstLine: line, LastLine: line}
}

// Flush reports every still-open run and returns all runs recorded so
// far, ordered by first line. It must be called once the input ends.
func (c *Coalescer) Flush() []models.DropRun {
	for _, category := range c.order {
		if run, ok := c.open[category]; ok {
			c.emit(*run)
			delete(c.open, category)
		}
	}
	c.order = c.order[:0]

	runs := make([]models.DropRun, len(c.closed))
	copy(runs, c.closed)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].FirstLine < runs[j].FirstLine })
	return runs
}

func (c *Coalescer) emit(run models.DropRun) {
	c.closed = append(c.closed, run)
	if c.reporter != nil {
		c.reporter.LogDebug(c.prefix() + describeRun("dropped", run))
	}
}

func (c *Coalescer) prefix() string {
	if c.source == "" {
		return ""
	}
	return c.source + ": "
}

// describeRun renders "<verb> <category> line N" or "<verb> <category> lines N..M".
func describeRun(verb string, run models.DropRun) string {
	if run.FirstLine == run.LastLine {
		return fmt.Sprintf("%s %s line %d", verb, run.Category, run.FirstLine)
	}
	return fmt.Sprintf("%s %s lines %d..%d", verb, run.Category, run.FirstLine, run.LastLine)
}

// Replay reports the drops and anomalies recorded in res as a fresh parse
// would have: drops at debug level, anomalies as warnings, ordered by first
// line. It is used when a result is reused without reparsing.
func Replay(reporter Reporter, source string, res *Result) {
	if reporter == nil || res == nil {
		return
	}
	type event struct {
		run     models.DropRun
		anomaly bool
	}
	events := make([]event, 0, len(res.Drops)+len(res.Anomalies))
	for _, run := range res.Drops {
		events = append(events, event{run: run})
	}
	for _, run := range res.Anomalies {
		events = append(events, event{run: run, anomaly: true})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].run.FirstLine < events[j].run.FirstLine })

	prefix := (&Coalescer{source: source}).prefix()
	for _, ev := range events {
		if ev.anomaly {
			reporter.LogWarn(prefix + describeRun("dropping", ev.run))
		} else {
			reporter.LogDebug(prefix + describeRun("dropped", ev.run))
		}
	}
}
