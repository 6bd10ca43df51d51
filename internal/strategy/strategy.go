// Package strategy defines the analysis strategies applied to parsed frames.
//
// A strategy describes one experimental paradigm as three stages: a filter
// deciding which raw frames to exclude, a per-frame transform normalising
// the retained frames, and an aggregate reducing the whole transformed
// sequence to a fixed set of numeric results.
//
// Strategies carry per-run state (drop tallies), so every concurrent run
// must work on its own Clone.
package strategy

import (
	"github.com/harrison/eprimestat/internal/models"
)

// Strategy is the contract every analysis paradigm implements.
type Strategy interface {
	// Name is the registry name of the strategy.
	Name() string

	// ShouldDrop reports whether the raw frame at index must be excluded.
	// It sees the frame with its original field names.
	ShouldDrop(index int, frame *models.Frame) bool

	// Transform maps a retained raw frame to a new, normalised frame.
	Transform(frame *models.Frame) *models.Frame

	// Aggregate reduces the complete transformed sequence, in retained
	// order, to a result holding exactly ResultKeys.
	Aggregate(frames []*models.Frame) (models.AnalysisResult, error)

	// Clone returns an independent instance with fresh per-run state.
	Clone() Strategy

	// ResultKeys lists the result names in column order.
	ResultKeys() []string
}

// DropReporter is implemented by strategies that tally why frames were
// excluded during a run.
type DropReporter interface {
	DropReasons() map[string]int
}

// dropTally counts exclusions by reason.
type dropTally map[string]int

// drop records reason and returns true so filters can `return t.drop(..)`.
func (t dropTally) drop(reason string) bool {
	t[reason]++
	return true
}

func (t dropTally) snapshot() map[string]int {
	out := make(map[string]int, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
