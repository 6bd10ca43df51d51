package filelock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLockUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "summary.csv.lock")
	lock := NewFileLock(lockPath)

	if err := lock.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	other := NewFileLock(lockPath)
	acquired, err := other.TryLock()
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if acquired {
		t.Error("TryLock() should fail while the lock is held")
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	acquired, err = other.TryLock()
	if err != nil || !acquired {
		t.Errorf("TryLock() after unlock = %v, %v", acquired, err)
	}
	other.Unlock()
}

func TestLockHonoursContext(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "busy.lock")
	holder := NewFileLock(lockPath)
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewFileLock(lockPath).Lock(ctx)
	if err == nil {
		t.Fatal("expected Lock() to give up when the context expires")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Lock() waited %v past its deadline", time.Since(start))
	}
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("permissions = %v, want 0644", info.Mode().Perm())
	}
}

func TestAtomicWriteFuncFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "detail.csv")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("encoder failed")
	err := AtomicWriteFunc(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("AtomicWriteFunc() error = %v, want %v", err, boom)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("original file changed to %q", data)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestConcurrentLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := strings.Repeat(fmt.Sprintf("%d", i), 1000)
			errs <- LockAndWrite(context.Background(), path, []byte(payload))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("LockAndWrite() error = %v", err)
		}
	}

	// Whichever writer won, the file holds exactly one complete payload.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1000 || strings.Count(string(data), string(data[0])) != 1000 {
		t.Errorf("file content is interleaved: %q...", data[:20])
	}
}
