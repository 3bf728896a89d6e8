package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatch(t *testing.T, root string) *atomic.Int64 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var refreshes atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if err := Watch(ctx, root, logger, func() { refreshes.Add(1) }); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before mutating the tree.
	time.Sleep(100 * time.Millisecond)
	return &refreshes
}

func TestBurstCoalescesToOneRefresh(t *testing.T) {
	root := t.TempDir()
	refreshes := startWatch(t, root)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(800 * time.Millisecond)
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
}

func TestNewDirIsWatched(t *testing.T) {
	root := t.TempDir()
	refreshes := startWatch(t, root)

	sub := filepath.Join(root, "Intro")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(800 * time.Millisecond)
	first := refreshes.Load()
	if first == 0 {
		t.Fatal("expected a refresh for the new directory")
	}

	if err := os.WriteFile(filepath.Join(sub, "article.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(800 * time.Millisecond)
	if n := refreshes.Load(); n <= first {
		t.Errorf("refreshes = %d, want > %d (write inside new dir)", n, first)
	}
}

func TestTempAndHiddenFilesIgnored(t *testing.T) {
	root := t.TempDir()
	refreshes := startWatch(t, root)

	if err := os.WriteFile(filepath.Join(root, tmpPrefix+"123"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)
	if n := refreshes.Load(); n != 0 {
		t.Errorf("refreshes = %d, want 0", n)
	}
}
