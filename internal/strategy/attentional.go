package strategy

import (
	"fmt"
	"strings"

	"github.com/harrison/eprimestat/internal/models"
)

const (
	abProcedure = "Procedure"
	abACC       = "Slide1.ACC"
	abRT        = "Slide1.RT"
	abStimulus1 = "stimulus1"
	abStimulus2 = "stimulus2"
	abPic1      = "pic1"
	abPic2      = "pic2"

	// abNegativePrefix marks negative-valence pictures in the stimulus set.
	abNegativePrefix = "A"
)

var abKeys = []string{"Neg_avg_rt", "Neg_correctness", "Neu_avg_rt", "Neu_correctness"}

// AttentionalBias is the dot-probe task: reaction time and accuracy when the
// probe follows a negative picture versus a neutral one.
type AttentionalBias struct {
	drops dropTally
}

// NewAttentionalBias creates an AttentionalBias strategy.
func NewAttentionalBias() *AttentionalBias {
	return &AttentionalBias{drops: dropTally{}}
}

// Name implements Strategy.
func (s *AttentionalBias) Name() string { return "AttentionalBias" }

// ShouldDrop excludes the example procedure and trials with no reaction.
func (s *AttentionalBias) ShouldDrop(index int, frame *models.Frame) bool {
	if frame.Value(abProcedure) == "exProc" {
		return s.drops.drop("example procedure")
	}
	if frame.Value(abRT) == "0" {
		return s.drops.drop("no reaction")
	}
	return false
}

// Transform keeps accuracy, RT and the stimulus/picture pairs.
func (s *AttentionalBias) Transform(frame *models.Frame) *models.Frame {
	return frame.Project(abACC, abRT, abStimulus1, abStimulus2, abPic1, abPic2)
}

// negative reports whether the probe side showed a negative picture.
// Exactly one of stimulus1/stimulus2 must be set.
func (s *AttentionalBias) negative(f *models.Frame) (bool, error) {
	s1, s2 := f.Value(abStimulus1) != "", f.Value(abStimulus2) != ""
	var pic string
	switch {
	case s1 && !s2:
		pic = f.Value(abPic1)
	case !s1 && s2:
		pic = f.Value(abPic2)
	default:
		return false, &FieldError{
			Field:     abStimulus1 + "/" + abStimulus2,
			Value:     fmt.Sprintf("%s/%s", f.Value(abStimulus1), f.Value(abStimulus2)),
			StartLine: f.StartLine,
			Err:       fmt.Errorf("%w: exactly one stimulus must be set", ErrIllegalFrame),
		}
	}
	if pic == "" {
		return false, &FieldError{
			Field:     "pic",
			StartLine: f.StartLine,
			Err:       fmt.Errorf("%w: picture name is empty", ErrIllegalFrame),
		}
	}
	return strings.HasPrefix(pic, abNegativePrefix), nil
}

// Aggregate splits frames into negative and neutral trials.
func (s *AttentionalBias) Aggregate(frames []*models.Frame) (models.AnalysisResult, error) {
	parts, err := splitBy(s.Name(), frames, []string{"negative", "neutral"}, func(f *models.Frame) (string, error) {
		neg, err := s.negative(f)
		if err != nil {
			return "", err
		}
		if neg {
			return "negative", nil
		}
		return "neutral", nil
	})
	if err != nil {
		return nil, err
	}

	acc := func(f *models.Frame) (float64, error) {
		n, err := intField(f, abACC)
		return float64(n), err
	}

	negRT, negACC, err := rollup(parts["negative"], abRT, acc)
	if err != nil {
		return nil, err
	}
	neuRT, neuACC, err := rollup(parts["neutral"], abRT, acc)
	if err != nil {
		return nil, err
	}

	return models.AnalysisResult{
		"Neg_avg_rt":      negRT,
		"Neg_correctness": negACC,
		"Neu_avg_rt":      neuRT,
		"Neu_correctness": neuACC,
	}, nil
}

// Clone implements Strategy.
func (s *AttentionalBias) Clone() Strategy { return NewAttentionalBias() }

// ResultKeys implements Strategy.
func (s *AttentionalBias) ResultKeys() []string { return append([]string(nil), abKeys...) }

// DropReasons implements DropReporter.
func (s *AttentionalBias) DropReasons() map[string]int { return s.drops.snapshot() }
