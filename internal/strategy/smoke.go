package strategy

import (
	"github.com/harrison/eprimestat/internal/models"
)

const (
	smokeOnset      = "Slide1.OnsetTime"
	smokeSkipFrames = 5
)

var smokeKeys = []string{"Average"}

// Smoke is a minimal end-to-end strategy: it skips the first frames, keeps
// the rest unchanged and averages their onset time.
type Smoke struct {
	drops dropTally
}

// NewSmoke creates a Smoke strategy.
func NewSmoke() *Smoke {
	return &Smoke{drops: dropTally{}}
}

// Name implements Strategy.
func (s *Smoke) Name() string { return "test" }

// ShouldDrop excludes the leading frames.
func (s *Smoke) ShouldDrop(index int, frame *models.Frame) bool {
	if index < smokeSkipFrames {
		return s.drops.drop("leading frame")
	}
	return false
}

// Transform copies the frame.
func (s *Smoke) Transform(frame *models.Frame) *models.Frame {
	return frame.Clone()
}

// Aggregate averages Slide1.OnsetTime.
func (s *Smoke) Aggregate(frames []*models.Frame) (models.AnalysisResult, error) {
	avg, err := partition{strategy: s.Name(), name: "all", frames: frames}.avgInt(smokeOnset)
	if err != nil {
		return nil, err
	}
	return models.AnalysisResult{"Average": avg}, nil
}

// Clone implements Strategy.
func (s *Smoke) Clone() Strategy { return NewSmoke() }

// ResultKeys implements Strategy.
func (s *Smoke) ResultKeys() []string { return append([]string(nil), smokeKeys...) }

// DropReasons implements DropReporter.
func (s *Smoke) DropReasons() map[string]int { return s.drops.snapshot() }
