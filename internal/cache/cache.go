// Package cache keeps parsed frames on disk so unchanged logs are not
// decoded and parsed again on the next run.
//
// Entries are keyed by the absolute input path, the input encoding and the
// parse options that shape the result, and are only served while the
// file's size and modification time still match what was recorded.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/harrison/eprimestat/internal/filelock"
	"github.com/harrison/eprimestat/internal/logframe"
	"github.com/harrison/eprimestat/internal/models"
)

// Increment when the entry layout changes.
const schemaVersion uint16 = 2

type frameRecord struct {
	Start  int      `msgpack:"s"`
	End    int      `msgpack:"e"`
	Keys   []string `msgpack:"k"`
	Values []string `msgpack:"v"`
}

type entry struct {
	Schema    uint16           `msgpack:"schema"`
	Path      string           `msgpack:"path"`
	Variant   string           `msgpack:"variant"`
	Size      int64            `msgpack:"size"`
	ModTime   int64            `msgpack:"mtime"`
	Lines     int              `msgpack:"lines"`
	Frames    []frameRecord    `msgpack:"frames"`
	Drops     []models.DropRun `msgpack:"drops"`
	Anomalies []models.DropRun `msgpack:"anomalies"`
}

// FrameCache is a msgpack parsed-frame cache in one directory.
// It is safe for concurrent use.
type FrameCache struct {
	mu      sync.RWMutex
	dir     string
	variant string
}

// Open creates the cache directory if needed. Entries written under one
// encoding or set of result-shaping parse options are never served for
// another.
func Open(dir string, enc logframe.Encoding, opts logframe.ParseOptions) (*FrameCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FrameCache{dir: dir, variant: variantOf(enc, opts)}, nil
}

// variantOf names the parse configuration an entry was produced under.
// WarnDuplicateKeys and Source only affect reporting, not the result.
func variantOf(enc logframe.Encoding, opts logframe.ParseOptions) string {
	return fmt.Sprintf("%s;unterminated=%t", enc, opts.ReportUnterminated)
}

// Dir returns the cache directory.
func (c *FrameCache) Dir() string {
	return c.dir
}

func (c *FrameCache) pathFor(abs string) string {
	sum := sha256.Sum256([]byte(c.variant + "\x00" + abs))
	return filepath.Join(c.dir, "frames", hex.EncodeToString(sum[:])+".mp")
}

// Get returns the cached parse of path if the file is unchanged. Any read
// or decode problem is treated as a miss.
func (c *FrameCache) Get(path string) (*logframe.Result, bool) {
	if c == nil {
		return nil, false
	}
	abs, info, err := stat(path)
	if err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(abs))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var e entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false
	}
	if e.Schema != schemaVersion || e.Path != abs || e.Variant != c.variant ||
		e.Size != info.Size() || e.ModTime != info.ModTime().UnixNano() {
		return nil, false
	}

	res, err := e.result()
	if err != nil {
		return nil, false
	}
	return res, true
}

// Put records res as the parse of path's current contents.
func (c *FrameCache) Put(path string, res *logframe.Result) error {
	if c == nil {
		return nil
	}
	abs, info, err := stat(path)
	if err != nil {
		return err
	}

	e := entry{
		Schema:    schemaVersion,
		Path:      abs,
		Variant:   c.variant,
		Size:      info.Size(),
		ModTime:   info.ModTime().UnixNano(),
		Lines:     res.Lines,
		Frames:    make([]frameRecord, len(res.Frames)),
		Drops:     res.Drops,
		Anomalies: res.Anomalies,
	}
	for i, fr := range res.Frames {
		e.Frames[i] = frameRecord{Start: fr.StartLine, End: fr.EndLine, Keys: fr.Keys(), Values: fr.Values()}
	}

	data, err := msgpack.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return filelock.AtomicWrite(c.pathFor(abs), data)
}

// Clear removes every cached entry.
func (c *FrameCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.RemoveAll(filepath.Join(c.dir, "frames"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (e *entry) result() (*logframe.Result, error) {
	res := &logframe.Result{
		Frames:    make([]*models.Frame, len(e.Frames)),
		Drops:     e.Drops,
		Anomalies: e.Anomalies,
		Lines:     e.Lines,
	}
	for i, r := range e.Frames {
		f, err := models.NewFrameFromPairs(r.Start, r.End, r.Keys, r.Values)
		if err != nil {
			return nil, err
		}
		res.Frames[i] = f
	}
	return res, nil
}

func stat(path string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, err
	}
	return abs, info, nil
}
