package models

import (
	"fmt"
	"strings"
)

// Frame is one LogFrame block recovered from an experiment log.
// Fields keep their insertion order; StartLine and EndLine are the 1-based
// line numbers of the block's start and end markers.
type Frame struct {
	StartLine int
	EndLine   int

	keys   []string
	values map[string]string
	sealed bool
}

// NewFrame creates an empty, open frame starting at the given line.
func NewFrame(startLine int) *Frame {
	return &Frame{
		StartLine: startLine,
		EndLine:   -1,
		values:    make(map[string]string),
	}
}

// NewFrameFromPairs builds a sealed frame from parallel key/value slices.
// It is used to restore frames from the parse cache.
func NewFrameFromPairs(startLine, endLine int, keys, values []string) (*Frame, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("frame %d~%d: %d keys but %d values", startLine, endLine, len(keys), len(values))
	}
	f := NewFrame(startLine)
	for i, k := range keys {
		f.Set(k, values[i])
	}
	f.Seal(endLine)
	return f, nil
}

// Set stores value under key. An existing key keeps its position and
// takes the new value. Set panics on a sealed frame.
func (f *Frame) Set(key, value string) {
	if f.sealed {
		panic(fmt.Sprintf("models: Set(%q) on sealed frame %s", key, f))
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Seal freezes the frame and records its end line.
func (f *Frame) Seal(endLine int) {
	f.EndLine = endLine
	f.sealed = true
}

// Sealed reports whether the frame has been closed by an end marker.
func (f *Frame) Sealed() bool {
	return f.sealed
}

// Get returns the value stored under key and whether it was present.
func (f *Frame) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Value returns the value stored under key, or "" when absent.
func (f *Frame) Value(key string) string {
	return f.values[key]
}

// Has reports whether key is present, even with an empty value.
func (f *Frame) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Keys returns the field names in insertion order.
func (f *Frame) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Values returns the field values in key order.
func (f *Frame) Values() []string {
	out := make([]string, len(f.keys))
	for i, k := range f.keys {
		out[i] = f.values[k]
	}
	return out
}

// Len returns the number of fields.
func (f *Frame) Len() int {
	return len(f.keys)
}

// Project returns a new open frame holding only the named fields, in the
// order given. Absent fields are carried as empty values so that every
// projected frame has the same columns.
func (f *Frame) Project(keys ...string) *Frame {
	out := f.derive()
	for _, k := range keys {
		out.Set(k, f.values[k])
	}
	return out
}

// Clone returns an open copy of the frame with the same fields.
func (f *Frame) Clone() *Frame {
	out := f.derive()
	for _, k := range f.keys {
		out.Set(k, f.values[k])
	}
	return out
}

// derive creates an empty frame that shares f's provenance.
func (f *Frame) derive() *Frame {
	out := NewFrame(f.StartLine)
	out.EndLine = f.EndLine
	return out
}

// String returns a short description: {start~end: N items}.
func (f *Frame) String() string {
	return fmt.Sprintf("{%d~%d: %d items}", f.StartLine, f.EndLine, len(f.keys))
}

// GoString renders every field, for the frames dump command.
func (f *Frame) GoString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "LogFrame(start=%d,end=%d,size=%d", f.StartLine, f.EndLine, len(f.keys))
	for _, k := range f.keys {
		fmt.Fprintf(&sb, ",%s:%s", k, f.values[k])
	}
	sb.WriteString(")")
	return sb.String()
}
