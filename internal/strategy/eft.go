package strategy

import (
	"github.com/harrison/eprimestat/internal/models"
)

// EFT field names and constants.
const (
	eftStimulus      = "Stimulus"
	eftResponse      = "StimDisplay.RESP"
	eftRT            = "StimDisplay.RT"
	eftCorrectAnswer = "CorrectAnswer"

	// eftWarmupFrames leading frames are instruction and practice screens.
	eftWarmupFrames = 12
)

var eftKeys = []string{"Con_avg_rt", "Con_correctness", "InCon_avg_rt", "InCon_correctness"}

// eftPartitionOf maps target stimuli to flanker congruency.
var eftPartitionOf = map[string]string{
	"Target4.png": "consistent",
	"Target5.png": "consistent",
	"Target3.png": "inconsistent",
	"Target6.png": "inconsistent",
}

// EFT is the Eriksen flanker task: reaction time and accuracy for
// congruent versus incongruent targets.
type EFT struct {
	drops dropTally
}

// NewEFT creates an EFT strategy.
func NewEFT() *EFT {
	return &EFT{drops: dropTally{}}
}

// Name implements Strategy.
func (s *EFT) Name() string { return "EFT" }

// ShouldDrop excludes warm-up frames, the two practice targets and frames
// without a response.
func (s *EFT) ShouldDrop(index int, frame *models.Frame) bool {
	if index < eftWarmupFrames {
		return s.drops.drop("warm-up")
	}
	switch frame.Value(eftStimulus) {
	case "Target1.png", "Target2.png":
		return s.drops.drop("practice target")
	}
	if frame.Value(eftResponse) == "" {
		return s.drops.drop("no response")
	}
	return false
}

// Transform keeps the stimulus, response, RT and expected answer.
func (s *EFT) Transform(frame *models.Frame) *models.Frame {
	return frame.Project(eftStimulus, eftResponse, eftRT, eftCorrectAnswer)
}

// Aggregate computes per-congruency average RT and correctness.
func (s *EFT) Aggregate(frames []*models.Frame) (models.AnalysisResult, error) {
	parts, err := splitBy(s.Name(), frames, []string{"consistent", "inconsistent"}, func(f *models.Frame) (string, error) {
		return eftPartitionOf[f.Value(eftStimulus)], nil
	})
	if err != nil {
		return nil, err
	}

	correct := func(f *models.Frame) bool {
		return f.Value(eftResponse) == f.Value(eftCorrectAnswer)
	}

	result := make(models.AnalysisResult, len(eftKeys))
	for _, p := range []struct {
		name, prefix string
	}{
		{"consistent", "Con"},
		{"inconsistent", "InCon"},
	} {
		avg, err := parts[p.name].avgInt(eftRT)
		if err != nil {
			return nil, err
		}
		rate, err := parts[p.name].rate(correct)
		if err != nil {
			return nil, err
		}
		result[p.prefix+"_avg_rt"] = avg
		result[p.prefix+"_correctness"] = rate
	}
	return result, nil
}

// Clone implements Strategy.
func (s *EFT) Clone() Strategy { return NewEFT() }

// ResultKeys implements Strategy.
func (s *EFT) ResultKeys() []string { return append([]string(nil), eftKeys...) }

// DropReasons implements DropReporter.
func (s *EFT) DropReasons() map[string]int { return s.drops.snapshot() }
