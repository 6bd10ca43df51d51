package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_SetKeepsInsertionOrder(t *testing.T) {
	f := NewFrame(3)
	f.Set("b", "1")
	f.Set("a", "2")
	f.Set("c", "3")

	assert.Equal(t, []string{"b", "a", "c"}, f.Keys())
	assert.Equal(t, []string{"1", "2", "3"}, f.Values())
	assert.Equal(t, 3, f.Len())
}

func TestFrame_DuplicateKeyLastWriteWins(t *testing.T) {
	f := NewFrame(1)
	f.Set("Stimulus", "Target1.png")
	f.Set("RT", "10")
	f.Set("Stimulus", "Target4.png")

	assert.Equal(t, []string{"Stimulus", "RT"}, f.Keys())
	assert.Equal(t, "Target4.png", f.Value("Stimulus"))
}

func TestFrame_GetHasValue(t *testing.T) {
	f := NewFrame(1)
	f.Set("empty", "")

	v, ok := f.Get("empty")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.True(t, f.Has("empty"))

	_, ok = f.Get("missing")
	assert.False(t, ok)
	assert.False(t, f.Has("missing"))
	assert.Equal(t, "", f.Value("missing"))
}

func TestFrame_SealedFrameRejectsSet(t *testing.T) {
	f := NewFrame(1)
	f.Set("k", "v")
	f.Seal(3)

	assert.True(t, f.Sealed())
	assert.Equal(t, 3, f.EndLine)
	assert.Panics(t, func() { f.Set("k", "other") })
	assert.Equal(t, "v", f.Value("k"))
}

func TestFrame_ProjectBuildsNewFrame(t *testing.T) {
	f := NewFrame(10)
	f.Set("Stimulus", "Target4.png")
	f.Set("Noise", "x")
	f.Set("StimDisplay.RT", "500")
	f.Seal(15)

	p := f.Project("StimDisplay.RT", "Stimulus", "Missing")

	assert.Equal(t, []string{"StimDisplay.RT", "Stimulus", "Missing"}, p.Keys())
	assert.Equal(t, []string{"500", "Target4.png", ""}, p.Values())
	assert.Equal(t, 10, p.StartLine)
	assert.Equal(t, 15, p.EndLine)
	assert.False(t, p.Sealed())

	// The source frame is untouched.
	assert.Equal(t, []string{"Stimulus", "Noise", "StimDisplay.RT"}, f.Keys())
}

func TestFrame_CloneIsIndependent(t *testing.T) {
	f := NewFrame(1)
	f.Set("a", "1")
	f.Seal(2)

	c := f.Clone()
	c.Set("a", "changed")
	c.Set("b", "2")

	assert.Equal(t, "1", f.Value("a"))
	assert.False(t, f.Has("b"))
}

func TestNewFrameFromPairs(t *testing.T) {
	f, err := NewFrameFromPairs(4, 9, []string{"x", "y"}, []string{"1", "2"})
	require.NoError(t, err)
	assert.True(t, f.Sealed())
	assert.Equal(t, "2", f.Value("y"))

	_, err = NewFrameFromPairs(4, 9, []string{"x"}, nil)
	assert.Error(t, err)
}

func TestFrame_Strings(t *testing.T) {
	f := NewFrame(2)
	f.Set("a", "1")
	f.Seal(4)

	assert.Equal(t, "{2~4: 1 items}", f.String())
	assert.Equal(t, "LogFrame(start=2,end=4,size=1,a:1)", f.GoString())
}

func TestBatchResult_SummaryRowsInInputOrder(t *testing.T) {
	b := &BatchResult{
		Strategy: "IGT",
		Keys:     []string{"IGT"},
		Files: []FileResult{
			{Path: "/data/s2.txt", Status: FileStatusOK, Result: AnalysisResult{"IGT": 4}},
			{Path: "/data/s1.txt", Status: FileStatusFailed, Error: errors.New("boom")},
			{Path: "/data/s3.txt", Status: FileStatusOK, Result: AnalysisResult{"IGT": -2.5}},
		},
	}

	assert.Equal(t, []string{"", "IGT"}, b.SummaryHeader())
	assert.Equal(t, [][]string{{"s2.txt", "4"}, {"s3.txt", "-2.5"}}, b.SummaryRows())
	assert.Len(t, b.Failed(), 1)
	assert.Equal(t, "s1.txt", b.Failed()[0].Base())
}

func TestFileResult_DroppedLines(t *testing.T) {
	r := FileResult{Drops: []DropRun{
		{Category: DropOther, FirstLine: 1, LastLine: 3},
		{Category: DropIllegal, FirstLine: 7, LastLine: 7},
		{Category: DropOther, FirstLine: 10, LastLine: 11},
	}}

	assert.Equal(t, map[string]int{DropOther: 5, DropIllegal: 1}, r.DroppedLines())
}
