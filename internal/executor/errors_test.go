package executor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFileError(t *testing.T) {
	base := errors.New("bad byte")
	fe := NewFileError("data/s01.txt", PhaseRead, base)

	if fe.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if got, want := fe.Error(), "data/s01.txt: read failed: bad byte"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(fe, base) {
		t.Error("FileError should unwrap to its cause")
	}
	if !IsFileError(fmt.Errorf("wrapped: %w", fe)) {
		t.Error("IsFileError should see through wrapping")
	}
	if IsFileError(nil) || IsFileError(base) {
		t.Error("IsFileError should be false for non-file errors")
	}
}

func TestBatchError(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	be := &BatchError{Strategy: "IGT", TotalFiles: 3}
	be.Add(NewFileError("s01.txt", PhaseParse, errA))
	be.Add(NewFileError("s02.txt", PhaseOutput, errB))

	msg := be.Error()
	for _, want := range []string{"IGT batch: 2/3 files failed", "s01.txt: parse failed: a", "s02.txt: output failed: b"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() missing %q:\n%s", want, msg)
		}
	}
	if !errors.Is(be, errA) || !errors.Is(be, errB) {
		t.Error("BatchError should expose every file error")
	}
	var fe *FileError
	if !errors.As(be, &fe) || fe.Path != "s01.txt" {
		t.Errorf("errors.As found %+v, want the first file error", fe)
	}
}

func TestBatchError_Empty(t *testing.T) {
	be := &BatchError{Strategy: "EFT"}
	if be.Unwrap() != nil {
		t.Error("empty BatchError should unwrap to nil")
	}
	if errors.Is(be, ErrNoTargets) {
		t.Error("empty BatchError should not match unrelated errors")
	}
}
