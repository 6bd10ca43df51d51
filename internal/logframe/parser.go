package logframe

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/eprimestat/internal/models"
)

// Block markers and indentation used by E-Prime text exports.
const (
	FrameStartMarker = "*** LogFrame Start ***"
	FrameEndMarker   = "*** LogFrame End ***"
	Indent           = "\t"
)

// maxLineSize bounds how much of a single input line is kept. Longer
// lines are consumed in full but dropped.
const maxLineSize = 1024 * 1024

// ParseOptions tunes parser diagnostics. None of the options change which
// frames are returned.
type ParseOptions struct {
	// Source prefixes diagnostics, usually the input file's basename.
	Source string

	// ReportUnterminated reports a block still open at end of input as an
	// incomplete start anomaly. The block is discarded either way.
	ReportUnterminated bool

	// WarnDuplicateKeys reports a key repeated within one block. The last
	// value wins either way.
	WarnDuplicateKeys bool
}

// Result holds everything recovered from one input.
type Result struct {
	// Frames are the sealed blocks in the order their end markers appeared.
	Frames []*models.Frame

	// Drops are the coalesced runs of skipped lines, ordered by first line.
	Drops []models.DropRun

	// Anomalies are structural problems (nested or unclosed starts, stray
	// ends), in input order.
	Anomalies []models.DropRun

	// Lines is the number of input lines consumed.
	Lines int
}

// Parser recovers frames from a line-oriented log. A Parser holds no
// per-input state and may be reused, but not concurrently with itself.
type Parser struct {
	reporter Reporter
	opts     ParseOptions
}

// NewParser creates a Parser reporting diagnostics to reporter (may be nil).
func NewParser(reporter Reporter, opts ParseOptions) *Parser {
	return &Parser{reporter: reporter, opts: opts}
}

// Parse reads r to the end and returns the recovered frames. Malformed
// input never fails the parse, and neither do oversized lines; only read
// errors are returned, together with whatever was recovered before the
// error.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	st := newParseState(p.reporter, p.opts)

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, n, oversized, err := readLine(br)
		if n > 0 {
			if oversized {
				st.consumeOversized(line)
			} else {
				st.consume(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			res := st.finish()
			return res, fmt.Errorf("read line %d: %w", res.Lines+1, err)
		}
	}
	return st.finish(), nil
}

// readLine reads one line and strips its terminator (\n or \r\n). n is
// the number of bytes consumed. A line longer than maxLineSize is read to
// its end but only its first maxLineSize bytes are returned, with
// oversized set.
func readLine(br *bufio.Reader) (line string, n int, oversized bool, err error) {
	var buf []byte
	for {
		chunk, readErr := br.ReadSlice('\n')
		n += len(chunk)
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize {
				oversized = true
				buf = append(buf, chunk[:maxLineSize-len(buf)]...)
			} else {
				buf = append(buf, chunk...)
			}
		}
		if readErr == bufio.ErrBufferFull {
			continue
		}
		if !oversized {
			buf = bytes.TrimSuffix(buf, []byte("\n"))
			buf = bytes.TrimSuffix(buf, []byte("\r"))
		}
		return string(buf), n, oversized, readErr
	}
}

// ParseLines parses an in-memory sequence of lines (without terminators).
func (p *Parser) ParseLines(lines []string) *Result {
	st := newParseState(p.reporter, p.opts)
	for _, line := range lines {
		st.consume(line)
	}
	return st.finish()
}

// parseState is the per-input state machine.
type parseState struct {
	reporter  Reporter
	opts      ParseOptions
	drops     *Coalescer
	lineNum   int
	current   *models.Frame
	frames    []*models.Frame
	anomalies []models.DropRun
}

func newParseState(reporter Reporter, opts ParseOptions) *parseState {
	return &parseState{
		reporter: reporter,
		opts:     opts,
		drops:    NewCoalescer(reporter, opts.Source),
	}
}

func (s *parseState) consume(raw string) {
	s.lineNum++

	// Lines without the block indentation are never part of a frame and do
	// not affect the open frame.
	if !strings.HasPrefix(raw, Indent) {
		s.drops.Mark(models.DropZeroIndent, s.lineNum)
		return
	}
	line := strings.TrimSpace(raw)

	switch line {
	case FrameStartMarker:
		if s.current != nil {
			s.anomaly(models.AnomalyIncompleteStart, s.current.StartLine, s.lineNum-1)
		}
		s.current = models.NewFrame(s.lineNum)
		return
	case FrameEndMarker:
		if s.current == nil {
			s.anomaly(models.AnomalyIncompleteEnd, s.lineNum, s.lineNum)
			return
		}
		s.current.Seal(s.lineNum)
		s.frames = append(s.frames, s.current)
		s.current = nil
		return
	}

	if s.current == nil {
		s.drops.Mark(models.DropOther, s.lineNum)
		return
	}

	key, value, ok := strings.Cut(line, ":")
	if !ok {
		s.drops.Mark(models.DropIllegal, s.lineNum)
		return
	}
	if s.opts.WarnDuplicateKeys && s.current.Has(key) && s.reporter != nil {
		s.reporter.LogDebug(fmt.Sprintf("%sduplicate key %q at line %d in block starting at line %d",
			s.drops.prefix(), key, s.lineNum, s.current.StartLine))
	}
	s.current.Set(key, strings.TrimSpace(value))
}

// consumeOversized drops a line too long to hold a field. Its category is
// decided from the kept prefix the same way consume would decide it.
func (s *parseState) consumeOversized(prefix string) {
	s.lineNum++
	switch {
	case !strings.HasPrefix(prefix, Indent):
		s.drops.Mark(models.DropZeroIndent, s.lineNum)
	case s.current == nil:
		s.drops.Mark(models.DropOther, s.lineNum)
	default:
		s.drops.Mark(models.DropIllegal, s.lineNum)
	}
}

func (s *parseState) finish() *Result {
	if s.current != nil && s.opts.ReportUnterminated {
		s.anomaly(models.AnomalyIncompleteStart, s.current.StartLine, s.lineNum)
	}
	s.current = nil

	return &Result{
		Frames:    s.frames,
		Drops:     s.drops.Flush(),
		Anomalies: s.anomalies,
		Lines:     s.lineNum,
	}
}

// anomaly reports a structural problem immediately, bypassing coalescing.
func (s *parseState) anomaly(category string, first, last int) {
	run := models.DropRun{Category: category, FirstLine: first, LastLine: last}
	s.anomalies = append(s.anomalies, run)
	if s.reporter != nil {
		s.reporter.LogWarn(s.drops.prefix() + describeRun("dropping", run))
	}
}
