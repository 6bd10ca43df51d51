package strategy

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/harrison/eprimestat/internal/models"
)

// partition is a named subset of transformed frames that gets its own
// rollup.
type partition struct {
	strategy string
	name     string
	frames   []*models.Frame
}

// mean averages value over the partition. An empty partition is an error,
// never a zero.
func (p partition) mean(value func(*models.Frame) (float64, error)) (float64, error) {
	if len(p.frames) == 0 {
		return 0, &PartitionError{Strategy: p.strategy, Partition: p.name}
	}
	var sum float64
	for _, f := range p.frames {
		v, err := value(f)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(p.frames)), nil
}

// avgInt is the arithmetic mean of an integer field.
func (p partition) avgInt(field string) (float64, error) {
	return p.mean(func(f *models.Frame) (float64, error) {
		n, err := intField(f, field)
		return float64(n), err
	})
}

// rate is the fraction of frames satisfying pred.
func (p partition) rate(pred func(*models.Frame) bool) (float64, error) {
	return p.mean(func(f *models.Frame) (float64, error) {
		if pred(f) {
			return 1, nil
		}
		return 0, nil
	})
}

// intField parses a base-10 integer field.
func intField(f *models.Frame, field string) (int, error) {
	raw := f.Value(field)
	n64, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &FieldError{Field: field, Value: raw, StartLine: f.StartLine, Err: fmt.Errorf("%w: %v", ErrInvalidField, err)}
	}
	n, err := safecast.Conv[int](n64)
	if err != nil {
		return 0, &FieldError{Field: field, Value: raw, StartLine: f.StartLine, Err: fmt.Errorf("%w: %v", ErrInvalidField, err)}
	}
	return n, nil
}

// splitBy partitions frames by the name classify assigns to each. Frames
// keep their relative order inside each partition.
func splitBy(strategyName string, frames []*models.Frame, names []string, classify func(*models.Frame) (string, error)) (map[string]partition, error) {
	parts := make(map[string]partition, len(names))
	for _, n := range names {
		parts[n] = partition{strategy: strategyName, name: n}
	}
	for _, f := range frames {
		name, err := classify(f)
		if err != nil {
			return nil, err
		}
		p, ok := parts[name]
		if !ok {
			// Frames outside every named partition do not take part in
			// the rollup.
			continue
		}
		p.frames = append(p.frames, f)
		parts[name] = p
	}
	return parts, nil
}

// rollup computes avg_rt and correctness for one partition.
func rollup(p partition, rtField string, correct func(*models.Frame) (float64, error)) (avgRT, correctness float64, err error) {
	if avgRT, err = p.avgInt(rtField); err != nil {
		return 0, 0, err
	}
	if correctness, err = p.mean(correct); err != nil {
		return 0, 0, err
	}
	return avgRT, correctness, nil
}
