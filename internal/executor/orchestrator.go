package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/strategy"
)

// Logger defines the interface for logging batch progress and results.
// It doubles as the parser's diagnostics reporter.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
	LogBatchStart(strategy string, files int)
	LogFileResult(result models.FileResult)
	LogSummary(result models.BatchResult)
}

// FileProcessor runs one file through parse and pipeline with the strategy
// instance it is handed. The instance is owned by the call.
type FileProcessor interface {
	Process(ctx context.Context, path string, s strategy.Strategy) (models.FileResult, error)
}

// Options tunes an Orchestrator.
type Options struct {
	// MaxConcurrency caps concurrently processed files; 0 means one task
	// per file with no cap.
	MaxConcurrency int

	// FailFast aborts the batch on the first per-file failure.
	FailFast bool
}

// Orchestrator fans a batch of files out to concurrent tasks and merges the
// per-file results back in input order.
type Orchestrator struct {
	processor FileProcessor
	logger    Logger
	opts      Options
}

// NewOrchestrator creates a new Orchestrator instance.
// The logger parameter is optional and can be nil.
func NewOrchestrator(processor FileProcessor, logger Logger, opts Options) *Orchestrator {
	if processor == nil {
		panic("file processor cannot be nil")
	}
	return &Orchestrator{
		processor: processor,
		logger:    logger,
		opts:      opts,
	}
}

// Run resolves strategyName and processes every target with its own clone
// of it. The returned batch lists files in target order no matter how the
// tasks completed. A BatchError is returned when every processed file
// failed, or on the first failure under FailFast; the batch is still
// returned so callers can report what completed.
func (o *Orchestrator) Run(ctx context.Context, strategyName string, targets []string) (*models.BatchResult, error) {
	template, err := strategy.Lookup(strategyName)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			if o.logger != nil {
				o.logger.LogWarn("received interrupt signal, cancelling remaining files")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	batch := &models.BatchResult{
		RunID:     uuid.NewString(),
		Strategy:  template.Name(),
		Keys:      template.ResultKeys(),
		StartedAt: time.Now(),
	}
	if o.logger != nil {
		o.logger.LogBatchStart(batch.Strategy, len(targets))
	}

	// Each task owns exactly one slot, so no lock is needed.
	results := make([]models.FileResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if o.opts.MaxConcurrency > 0 {
		g.SetLimit(o.opts.MaxConcurrency)
	}

	for i, path := range targets {
		instance := template.Clone()
		g.Go(func() error {
			results[i] = o.processOne(gctx, path, instance)
			if o.logger != nil {
				o.logger.LogFileResult(results[i])
			}
			if o.opts.FailFast && results[i].Status == models.FileStatusFailed {
				return results[i].Error
			}
			return nil
		})
	}

	waitErr := g.Wait()

	batch.Files = results
	batch.Duration = time.Since(batch.StartedAt)
	if o.logger != nil {
		o.logger.LogSummary(*batch)
	}

	failed := batch.Failed()
	if len(failed) == 0 {
		if waitErr != nil {
			return batch, waitErr
		}
		return batch, ctx.Err()
	}

	if waitErr == nil && len(batch.Succeeded()) > 0 {
		return batch, nil
	}

	berr := &BatchError{Strategy: batch.Strategy, TotalFiles: len(targets)}
	for _, f := range failed {
		var fe *FileError
		if errors.As(f.Error, &fe) {
			berr.Add(fe)
		} else {
			berr.Add(NewFileError(f.Path, PhasePipeline, f.Error))
		}
	}
	return batch, berr
}

// processOne runs one task, converting errors and panics into a failed
// result so siblings are unaffected.
func (o *Orchestrator) processOne(ctx context.Context, path string, s strategy.Strategy) (result models.FileResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = models.FileResult{
				Path:   path,
				Status: models.FileStatusFailed,
				Error:  NewFileError(path, PhasePipeline, fmt.Errorf("panic: %v", r)),
			}
		}
		result.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return models.FileResult{Path: path, Status: models.FileStatusSkipped, Error: err}
	}

	res, err := o.processor.Process(ctx, path, s)
	if res.Path == "" {
		res.Path = path
	}
	if err != nil {
		var fe *FileError
		if !errors.As(err, &fe) {
			err = NewFileError(path, PhasePipeline, err)
		}
		res.Status = models.FileStatusFailed
		res.Error = err
	}
	if res.Status == "" {
		res.Status = models.FileStatusOK
	}
	return res
}
