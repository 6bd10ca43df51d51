package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/eprimestat/internal/logframe"
	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/pipeline"
	"github.com/harrison/eprimestat/internal/strategy"
)

// FrameCache stores parse results between runs. Implementations decide
// when an entry is stale.
type FrameCache interface {
	Get(path string) (*logframe.Result, bool)
	Put(path string, res *logframe.Result) error
}

// DetailSink persists a file's detail table.
type DetailSink interface {
	// Path is where the detail table for input will be written.
	Path(input string) string
	Write(path string, detail pipeline.Detail) error
}

// DefaultProcessor is the production FileProcessor: decode and parse the
// file, run the pipeline, then write the detail table.
type DefaultProcessor struct {
	Encoding     logframe.Encoding
	ParseOptions logframe.ParseOptions
	Reporter     logframe.Reporter

	// Cache is optional.
	Cache FrameCache

	// Details is optional; nil disables detail output and SkipHandled.
	Details     DetailSink
	SkipHandled bool
}

// Process implements FileProcessor.
func (p *DefaultProcessor) Process(ctx context.Context, path string, s strategy.Strategy) (models.FileResult, error) {
	result := models.FileResult{Path: path}

	var detailPath string
	if p.Details != nil {
		detailPath = p.Details.Path(path)
		if p.SkipHandled {
			if _, err := os.Stat(detailPath); err == nil {
				result.Status = models.FileStatusSkipped
				result.DetailPath = detailPath
				return result, nil
			}
		}
	}

	parsed, err := p.parse(path)
	if err != nil {
		return result, err
	}
	result.FramesParsed = len(parsed.Frames)
	result.Drops = parsed.Drops

	// A batch cancelled while this file was being read leaves it unprocessed,
	// not failed.
	if err := ctx.Err(); err != nil {
		result.Status = models.FileStatusSkipped
		result.Error = err
		return result, nil
	}

	out, err := pipeline.Run(s, parsed.Frames)
	if err != nil {
		return result, NewFileError(path, PhasePipeline, err)
	}
	result.FramesRetained = out.Retained()
	result.DropReasons = out.DropReasons

	if p.Details != nil {
		if err := p.Details.Write(detailPath, out.Detail()); err != nil {
			return result, NewFileError(path, PhaseOutput, err)
		}
		result.DetailPath = detailPath
	}

	result.Result = out.Result
	result.Status = models.FileStatusOK
	return result, nil
}

func (p *DefaultProcessor) parse(path string) (*logframe.Result, error) {
	source := filepath.Base(path)
	// Duplicate-key reports are not kept in a result, so they need a real parse.
	if p.Cache != nil && !p.ParseOptions.WarnDuplicateKeys {
		if res, ok := p.Cache.Get(path); ok {
			if p.Reporter != nil {
				p.Reporter.LogDebug(source + ": frames loaded from cache")
			}
			logframe.Replay(p.Reporter, source, res)
			return res, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, NewFileError(path, PhaseRead, err)
	}
	defer file.Close()

	r, err := logframe.NewDecodingReader(file, p.Encoding)
	if err != nil {
		return nil, NewFileError(path, PhaseRead, err)
	}

	opts := p.ParseOptions
	opts.Source = source
	start := time.Now()
	res, err := logframe.NewParser(p.Reporter, opts).Parse(r)
	if err != nil {
		return nil, NewFileError(path, PhaseParse, err)
	}
	if p.Reporter != nil {
		p.Reporter.LogDebug(fmt.Sprintf("%s: parsed %d frames from %d lines in %v",
			opts.Source, len(res.Frames), res.Lines, time.Since(start).Round(time.Millisecond)))
	}

	if p.Cache != nil {
		if err := p.Cache.Put(path, res); err != nil && p.Reporter != nil {
			p.Reporter.LogWarn(opts.Source + ": frame cache not updated: " + err.Error())
		}
	}
	return res, nil
}
