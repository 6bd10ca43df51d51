package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/eprimestat/internal/logframe"
	"github.com/harrison/eprimestat/internal/models"
	"github.com/harrison/eprimestat/internal/pipeline"
	"github.com/harrison/eprimestat/internal/strategy"
)

type memorySink struct {
	dir     string
	written map[string]pipeline.Detail
	err     error
}

func (s *memorySink) Path(input string) string {
	return filepath.Join(s.dir, strings.TrimSuffix(filepath.Base(input), ".txt")+".csv")
}

func (s *memorySink) Write(path string, d pipeline.Detail) error {
	if s.err != nil {
		return s.err
	}
	if s.written == nil {
		s.written = map[string]pipeline.Detail{}
	}
	s.written[path] = d
	return nil
}

type memoryCache struct {
	entries map[string]*logframe.Result
	puts    int
}

func (c *memoryCache) Get(path string) (*logframe.Result, bool) {
	res, ok := c.entries[path]
	return res, ok
}

func (c *memoryCache) Put(path string, res *logframe.Result) error {
	if c.entries == nil {
		c.entries = map[string]*logframe.Result{}
	}
	c.entries[path] = res
	c.puts++
	return nil
}

// writeSmokeLog writes n frames carrying Slide1.OnsetTime 100, 110, ...
// plus one stray line.
func writeSmokeLog(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Header Start\n")
	for i := 0; i < n; i++ {
		b.WriteString("\t*** LogFrame Start ***\n")
		fmt.Fprintf(&b, "\tSlide1.OnsetTime: %d\n", 100+i*10)
		b.WriteString("\t*** LogFrame End ***\n")
	}
	path := filepath.Join(dir, "subject01.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestDefaultProcessor_Process(t *testing.T) {
	dir := t.TempDir()
	path := writeSmokeLog(t, dir, 7)
	sink := &memorySink{dir: dir}
	p := &DefaultProcessor{Encoding: logframe.EncodingAuto, Details: sink}

	res, err := p.Process(context.Background(), path, strategy.NewSmoke())
	require.NoError(t, err)

	assert.Equal(t, models.FileStatusOK, res.Status)
	assert.Equal(t, 7, res.FramesParsed)
	assert.Equal(t, 2, res.FramesRetained)
	assert.Equal(t, models.AnalysisResult{"Average": 155}, res.Result)
	assert.Equal(t, []models.DropRun{{Category: models.DropZeroIndent, FirstLine: 1, LastLine: 1}}, res.Drops)
	assert.Equal(t, map[string]int{"leading frame": 5}, res.DropReasons)

	detailPath := filepath.Join(dir, "subject01.csv")
	assert.Equal(t, detailPath, res.DetailPath)
	require.Contains(t, sink.written, detailPath)
	assert.Equal(t, []string{"Slide1.OnsetTime"}, sink.written[detailPath].Header)
	assert.Equal(t, [][]string{{"150"}, {"160"}}, sink.written[detailPath].Rows)
}

func TestDefaultProcessor_SkipHandled(t *testing.T) {
	dir := t.TempDir()
	path := writeSmokeLog(t, dir, 6)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subject01.csv"), []byte("done"), 0644))

	sink := &memorySink{dir: dir}
	p := &DefaultProcessor{Details: sink, SkipHandled: true}

	res, err := p.Process(context.Background(), path, strategy.NewSmoke())
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusSkipped, res.Status)
	assert.Empty(t, sink.written)
}

func TestDefaultProcessor_Phases(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is a read failure", func(t *testing.T) {
		_, err := (&DefaultProcessor{}).Process(context.Background(), filepath.Join(dir, "nope.txt"), strategy.NewSmoke())
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, PhaseRead, fe.Phase)
	})

	t.Run("empty partition is a pipeline failure", func(t *testing.T) {
		path := writeSmokeLog(t, dir, 3)
		_, err := (&DefaultProcessor{}).Process(context.Background(), path, strategy.NewSmoke())
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, PhasePipeline, fe.Phase)
		assert.ErrorIs(t, err, strategy.ErrEmptyPartition)
	})

	t.Run("detail write failure is an output failure", func(t *testing.T) {
		path := writeSmokeLog(t, dir, 6)
		sink := &memorySink{dir: dir, err: os.ErrPermission}
		_, err := (&DefaultProcessor{Details: sink}).Process(context.Background(), path, strategy.NewSmoke())
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, PhaseOutput, fe.Phase)
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestDefaultProcessor_UsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeSmokeLog(t, dir, 6)
	cache := &memoryCache{}
	p := &DefaultProcessor{Cache: cache}

	first, err := p.Process(context.Background(), path, strategy.NewSmoke())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	// With the file gone, the second run can only succeed from the cache.
	require.NoError(t, os.Remove(path))
	second, err := p.Process(context.Background(), path, strategy.NewSmoke())
	require.NoError(t, err)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, 1, cache.puts)
}

func TestDefaultProcessor_CancelledAfterParseIsSkipped(t *testing.T) {
	path := writeSmokeLog(t, t.TempDir(), 6)
	sink := &memorySink{dir: t.TempDir()}
	p := &DefaultProcessor{Details: sink}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, path, strategy.NewSmoke())
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusSkipped, res.Status)
	assert.ErrorIs(t, res.Error, context.Canceled)
	assert.Equal(t, 6, res.FramesParsed)
	assert.Empty(t, sink.written, "a cancelled file must not write its detail table")
}

// cancelWaiter fails one path outright and hands every other path to the
// real processor only after the batch has been cancelled.
type cancelWaiter struct {
	inner *DefaultProcessor
	bad   string
	err   error
}

func (c *cancelWaiter) Process(ctx context.Context, path string, s strategy.Strategy) (models.FileResult, error) {
	if path == c.bad {
		return models.FileResult{}, c.err
	}
	<-ctx.Done()
	return c.inner.Process(ctx, path, s)
}

func TestOrchestrator_FailFastCountsOnlyRealFailures(t *testing.T) {
	good := writeSmokeLog(t, t.TempDir(), 6)
	bad := errors.New("unreadable header")
	proc := &cancelWaiter{inner: &DefaultProcessor{}, bad: "broken.txt", err: bad}

	batch, err := NewOrchestrator(proc, nil, Options{FailFast: true}).Run(context.Background(), "test", []string{"broken.txt", good})
	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Len(t, be.FileErrors, 1)
	assert.Equal(t, models.FileStatusFailed, batch.Files[0].Status)
	assert.Equal(t, models.FileStatusSkipped, batch.Files[1].Status)
	assert.Len(t, batch.Failed(), 1)
}

type messageRecorder struct {
	mu    sync.Mutex
	debug []string
	warn  []string
}

func (r *messageRecorder) LogDebug(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, message)
}

func (r *messageRecorder) LogWarn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warn = append(r.warn, message)
}

func TestDefaultProcessor_CacheHitReplaysDiagnostics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s01.txt")
	log := "junk\n\t*** LogFrame Start ***\n\tA: 1\n\t*** LogFrame End ***\n\t*** LogFrame End ***\n"
	require.NoError(t, os.WriteFile(path, []byte(log), 0644))

	cache := &memoryCache{}
	first := &messageRecorder{}
	p := &DefaultProcessor{Cache: cache, Reporter: first}
	_, err := p.parse(path)
	require.NoError(t, err)

	second := &messageRecorder{}
	p.Reporter = second
	_, err = p.parse(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	assert.Equal(t, first.warn, second.warn)
	assert.Contains(t, second.warn, "s01.txt: dropping incomplete LogFrame end line 5")
	assert.Contains(t, second.debug, "s01.txt: dropped 0-indent data line 1")
}

func TestDefaultProcessor_DuplicateKeyWarningsBypassCache(t *testing.T) {
	path := writeSmokeLog(t, t.TempDir(), 6)
	cache := &memoryCache{}
	p := &DefaultProcessor{Cache: cache, ParseOptions: logframe.ParseOptions{WarnDuplicateKeys: true}}

	_, err := p.parse(path)
	require.NoError(t, err)
	_, err = p.parse(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.puts, "every run reparses so duplicate keys can be reported")
}
