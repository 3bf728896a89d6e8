// Package watcher observes a workspace root for external changes and
// reports them as coarse refresh signals. Events arriving in bursts
// (editors writing temp files, folder copies) are coalesced behind a
// short debounce so consumers re-list once instead of once per file.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long the watcher waits after the last event before
// firing a refresh.
const debounce = 300 * time.Millisecond

// tmpPrefix marks our own atomic-write temp files, which never concern
// consumers.
const tmpPrefix = ".inkwell-tmp-"

// RefreshFunc is called once per settled burst of workspace changes.
type RefreshFunc func()

// Watch starts an fsnotify watcher on root and runs until ctx is
// cancelled. Directories created at runtime are added to the watch list
// so folder-layout workspaces keep reporting changes inside article
// folders.
func Watch(ctx context.Context, root string, logger *slog.Logger, refresh RefreshFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var settle *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(debounce)
			settleCh = settle.C
		} else {
			settle.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			logger.Debug("watcher: refresh")
			if refresh != nil {
				refresh()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignorable(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// ignorable filters events that never change what a listing shows:
// hidden files and our own write-temp files.
func ignorable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, tmpPrefix) {
		return true
	}
	return strings.HasPrefix(base, ".")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
