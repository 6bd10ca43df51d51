package strategy

import (
	"github.com/harrison/eprimestat/internal/models"
)

const (
	igtResponse = "Stimulus.RESP"
	igtChoice   = "Choice"
	igtNoChoice = '-'
)

var igtKeys = []string{"IGT"}

// IGT is the Iowa gambling task: net score of advantageous (C, D) over
// disadvantageous (A, B) deck choices.
type IGT struct {
	drops dropTally
}

// NewIGT creates an IGT strategy.
func NewIGT() *IGT {
	return &IGT{drops: dropTally{}}
}

// Name implements Strategy.
func (s *IGT) Name() string { return "IGT" }

// ShouldDrop excludes frames that never recorded a response field.
func (s *IGT) ShouldDrop(index int, frame *models.Frame) bool {
	if !frame.Has(igtResponse) {
		return s.drops.drop("no response field")
	}
	return false
}

// Transform reduces the raw response to a single deck letter.
func (s *IGT) Transform(frame *models.Frame) *models.Frame {
	out := frame.Project()
	out.Set(igtChoice, string(realChoice(frame.Value(igtResponse))))
	return out
}

// realChoice returns the last character of resp within A..D. Response
// strings can hold several key presses; the last accepted one counts.
func realChoice(resp string) rune {
	choice := rune(igtNoChoice)
	for _, c := range resp {
		if c >= 'A' && c <= 'D' {
			choice = c
		}
	}
	return choice
}

// Aggregate tallies C+D-A-B.
func (s *IGT) Aggregate(frames []*models.Frame) (models.AnalysisResult, error) {
	score := 0
	for _, f := range frames {
		switch f.Value(igtChoice) {
		case "C", "D":
			score++
		case "A", "B":
			score--
		}
	}
	return models.AnalysisResult{"IGT": float64(score)}, nil
}

// Clone implements Strategy.
func (s *IGT) Clone() Strategy { return NewIGT() }

// ResultKeys implements Strategy.
func (s *IGT) ResultKeys() []string { return append([]string(nil), igtKeys...) }

// DropReasons implements DropReporter.
func (s *IGT) DropReasons() map[string]int { return s.drops.snapshot() }
