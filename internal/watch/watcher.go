// Package watch reports E-Prime logs that have been created or rewritten
// in a set of directories, once each file has been quiet for a debounce
// delay.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrison/eprimestat/internal/fileutil"
)

// DefaultDebounce is how long a file must go without writes before it is
// reported. E-Prime appends to the log throughout a session.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Extension selects reported files, case-insensitively. Empty reports
	// every file.
	Extension string

	// Pattern, when set, is a regular expression the file name without
	// its extension must match, as in target resolution.
	Pattern string

	// Recursive also watches sub-directories, including ones created later.
	// Hidden directories are skipped.
	Recursive bool

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
}

// Watcher turns fsnotify events into debounced per-file notifications.
type Watcher struct {
	watcher  *fsnotify.Watcher
	events   chan string
	errors   chan error
	done     chan struct{}
	opts     Options
	match    *fileutil.Matcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// New starts watching dirs. Every dir must exist.
func New(dirs []string, opts Options) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, errors.New("no directories to watch")
	}
	m, err := fileutil.NewMatcher(fileutil.ScanOptions{Extension: opts.Extension, Pattern: opts.Pattern})
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		events:   make(chan string, 64),
		errors:   make(chan error, 8),
		done:     make(chan struct{}),
		opts:     opts,
		match:    m,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
	if opts.Debounce > 0 {
		w.debounce = opts.Debounce
	}

	for _, dir := range dirs {
		if err := w.addDir(filepath.Clean(dir)); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addDir(dir string) error {
	if !w.opts.Recursive {
		return w.watcher.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Removed again before we looked.
		return
	}
	if info.IsDir() {
		if w.opts.Recursive && event.Has(fsnotify.Create) && !strings.HasPrefix(info.Name(), ".") {
			if err := w.addDir(event.Name); err != nil {
				w.sendError(err)
			}
		}
		return
	}
	if !info.Mode().IsRegular() || !w.match.Match(filepath.Base(event.Name)) {
		return
	}
	w.schedule(event.Name)
}

// schedule restarts path's quiet-period timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.events <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Error channel full, drop the error
	}
}

// Events delivers the path of each file that settled after a change.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Errors delivers watcher failures. Slow readers lose errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and cancels pending notifications.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}

// Run calls handle for every settled file until ctx is done, one file at a
// time. Watcher errors go to onError when it is non-nil.
func Run(ctx context.Context, w *Watcher, handle func(ctx context.Context, path string), onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.Events():
			handle(ctx, path)
		case err := <-w.Errors():
			if onError != nil {
				onError(err)
			}
		}
	}
}
