package output

import (
	"context"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/harrison/eprimestat/internal/filelock"
	"github.com/harrison/eprimestat/internal/models"
)

const metricPrefix = "eprimestat_"

// BatchMetrics builds the gauge families describing one batch, sorted by
// name. Per-file series are labelled with the file basename.
func BatchMetrics(batch *models.BatchResult) []*dto.MetricFamily {
	strategyLabel := label("strategy", batch.Strategy)

	filesTotal := gauge("batch_files", "Files in the batch by status.")
	counts := map[models.FileStatus]int{
		models.FileStatusOK:      0,
		models.FileStatusFailed:  0,
		models.FileStatusSkipped: 0,
	}
	for _, f := range batch.Files {
		counts[f.Status]++
	}
	for _, status := range []models.FileStatus{models.FileStatusOK, models.FileStatusFailed, models.FileStatusSkipped} {
		addSample(filesTotal, float64(counts[status]), strategyLabel, label("status", string(status)))
	}

	duration := gauge("batch_duration_seconds", "Wall time of the batch.")
	addSample(duration, batch.Duration.Seconds(), strategyLabel)

	parsed := gauge("file_frames_parsed", "Frames parsed from each file.")
	retained := gauge("file_frames_retained", "Frames retained after filtering.")
	dropped := gauge("file_dropped_lines", "Input lines dropped by the parser, by category.")
	for _, f := range batch.Files {
		if f.Status == models.FileStatusSkipped {
			continue
		}
		file := label("file", f.Base())
		addSample(parsed, float64(f.FramesParsed), strategyLabel, file)
		addSample(retained, float64(f.FramesRetained), strategyLabel, file)

		lines := f.DroppedLines()
		categories := make([]string, 0, len(lines))
		for c := range lines {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			addSample(dropped, float64(lines[c]), strategyLabel, file, label("category", c))
		}
	}

	families := []*dto.MetricFamily{filesTotal, duration, parsed, retained, dropped}
	out := families[:0]
	for _, mf := range families {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteMetricsText writes families in the Prometheus text exposition format.
func WriteMetricsText(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetrics stores the batch gauges at path, suitable for the node
// exporter textfile collector.
func WriteMetrics(ctx context.Context, path string, batch *models.BatchResult) error {
	families := BatchMetrics(batch)
	return filelock.LockAndWriteFunc(ctx, path, func(w io.Writer) error {
		return WriteMetricsText(w, families)
	})
}

func gauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(metricPrefix + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func addSample(mf *dto.MetricFamily, value float64, labels ...*dto.LabelPair) {
	mf.Metric = append(mf.Metric, &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(value)},
	})
}
