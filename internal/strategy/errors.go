package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy is returned by Lookup for unregistered names.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrEmptyPartition means an aggregate had no frames to average over.
	ErrEmptyPartition = errors.New("empty partition")

	// ErrIllegalFrame means a retained frame has a shape the strategy
	// cannot classify.
	ErrIllegalFrame = errors.New("illegal frame")

	// ErrInvalidField means a field expected to be numeric is not.
	ErrInvalidField = errors.New("invalid field")
)

// PartitionError names the partition that was empty.
type PartitionError struct {
	Strategy  string
	Partition string
}

// Error implements the error interface.
func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s: partition %q has no frames", e.Strategy, e.Partition)
}

// Unwrap returns ErrEmptyPartition.
func (e *PartitionError) Unwrap() error {
	return ErrEmptyPartition
}

// FieldError describes a bad field value in one frame.
type FieldError struct {
	Field     string
	Value     string
	StartLine int
	Err       error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("frame at line %d: field %s=%q: %v", e.StartLine, e.Field, e.Value, e.Err)
}

// Unwrap returns the classifying sentinel (ErrInvalidField or ErrIllegalFrame).
func (e *FieldError) Unwrap() error {
	return e.Err
}
