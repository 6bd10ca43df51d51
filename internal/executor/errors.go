package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoTargets is returned when target resolution leaves nothing to process.
var ErrNoTargets = errors.New("no input files to process")

// FilePhase is the stage of per-file processing where an error occurred.
type FilePhase int

const (
	// PhaseRead covers opening and decoding the input file.
	PhaseRead FilePhase = iota
	// PhaseParse covers splitting the decoded text into frames.
	PhaseParse
	// PhasePipeline covers filter, transform and aggregate.
	PhasePipeline
	// PhaseOutput covers writing the detail table.
	PhaseOutput
)

// String returns the string representation of FilePhase.
func (p FilePhase) String() string {
	switch p {
	case PhaseRead:
		return "read"
	case PhaseParse:
		return "parse"
	case PhasePipeline:
		return "pipeline"
	case PhaseOutput:
		return "output"
	default:
		return "unknown"
	}
}

// FileError is a failure confined to one input file.
type FileError struct {
	Path      string
	Phase     FilePhase
	Err       error
	Timestamp time.Time
}

// NewFileError creates a new FileError with the current timestamp.
func NewFileError(path string, phase FilePhase, err error) *FileError {
	return &FileError{
		Path:      path,
		Phase:     phase,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for FileError.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Path, e.Phase, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *FileError) Unwrap() error {
	return e.Err
}

// BatchError aggregates the per-file failures of a batch.
type BatchError struct {
	Strategy   string
	FileErrors []*FileError
	TotalFiles int
}

// Add records a file failure.
func (e *BatchError) Add(fe *FileError) {
	e.FileErrors = append(e.FileErrors, fe)
}

// Error implements the error interface for BatchError.
func (e *BatchError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s batch: %d/%d files failed",
		e.Strategy, len(e.FileErrors), e.TotalFiles))
	for _, fe := range e.FileErrors {
		sb.WriteString(fmt.Sprintf("\n  - %s", fe.Error()))
	}
	return sb.String()
}

// Unwrap exposes the file errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	if len(e.FileErrors) == 0 {
		return nil
	}
	errs := make([]error, len(e.FileErrors))
	for i, fe := range e.FileErrors {
		errs[i] = fe
	}
	return errs
}

// IsFileError checks if the error is or wraps a FileError.
func IsFileError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FileError
	return errors.As(err, &fe)
}
