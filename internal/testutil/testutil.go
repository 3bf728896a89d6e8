// Package testutil provides shared test helpers for setting up workspaces
// and settings databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/prefs"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workspace"
)

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPrefs creates a temporary settings database that is automatically
// cleaned up.
func TestPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// TestManager creates a storage manager over temp directories with the
// directory backend active, and returns the workspace root alongside it.
func TestManager(t *testing.T) (*storage.Manager, string) {
	t.Helper()
	root := t.TempDir()
	mgr := storage.NewManager(TestPrefs(t), root, t.TempDir(), Logger())
	if _, err := mgr.SetAdapter(context.Background(), storage.TypeDirectory); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = mgr.Teardown() })
	return mgr, root
}

// TestController creates a document controller over mgr with autosave
// effectively disabled, so tests drive saves explicitly.
func TestController(t *testing.T, mgr *storage.Manager) *workspace.Controller {
	t.Helper()
	ctrl := workspace.NewController(mgr, Logger(), workspace.WithDebounce(time.Hour))
	t.Cleanup(ctrl.Close)
	return ctrl
}
