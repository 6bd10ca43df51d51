// Package pipeline drives one strategy over one file's frames:
// filter, then transform, then aggregate.
package pipeline

import (
	"fmt"
	"sort"

	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/strategy"
)

// Output is the product of one pipeline run.
type Output struct {
	// Strategy is the name of the strategy that ran.
	Strategy string

	// Frames are the transformed frames in retained order.
	Frames []*models.Frame

	// Result holds exactly Keys.
	Result models.AnalysisResult
	Keys   []string

	// RawCount is the length of the input sequence; Dropped of those were
	// excluded by the filter.
	RawCount int
	Dropped  int

	// DropReasons is the strategy's tally, when it keeps one.
	DropReasons map[string]int
}

// Retained is the number of frames that reached the aggregate stage.
func (o *Output) Retained() int {
	return len(o.Frames)
}

// Run applies s to frames. The raw frames are never modified; s should be
// a clone owned by the caller for the duration of the run.
func Run(s strategy.Strategy, frames []*models.Frame) (*Output, error) {
	if s == nil {
		return nil, fmt.Errorf("strategy cannot be nil")
	}

	// Filter on the raw frames, with their position in the raw sequence.
	retained := make([]*models.Frame, 0, len(frames))
	for i, f := range frames {
		if !s.ShouldDrop(i, f) {
			retained = append(retained, f)
		}
	}

	transformed := make([]*models.Frame, len(retained))
	for i, f := range retained {
		transformed[i] = s.Transform(f)
	}

	result, err := s.Aggregate(transformed)
	if err != nil {
		return nil, fmt.Errorf("aggregate %d frames: %w", len(transformed), err)
	}

	keys := s.ResultKeys()
	if err := checkKeys(result, keys); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	out := &Output{
		Strategy: s.Name(),
		Frames:   transformed,
		Result:   result,
		Keys:     keys,
		RawCount: len(frames),
		Dropped:  len(frames) - len(retained),
	}
	if dr, ok := s.(strategy.DropReporter); ok {
		out.DropReasons = dr.DropReasons()
	}
	return out, nil
}

// checkKeys verifies result carries exactly keys, which is what keeps the
// batch summary columns well defined.
func checkKeys(result models.AnalysisResult, keys []string) error {
	if len(result) != len(keys) {
		got := make([]string, 0, len(result))
		for k := range result {
			got = append(got, k)
		}
		sort.Strings(got)
		return fmt.Errorf("result keys %v do not match declared keys %v", got, keys)
	}
	for _, k := range keys {
		if _, ok := result[k]; !ok {
			return fmt.Errorf("result is missing declared key %q", k)
		}
	}
	return nil
}
