package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/prefs"
)

// Manager owns the single active adapter for a session. Switching backends
// tears down the previous adapter before the new one is initialized, so at
// most one directory or store handle is ever open, and the chosen type is
// persisted so it can be restored on the next start.
type Manager struct {
	prefs    *prefs.Store
	dirRoot  string
	storeDir string
	logger   *slog.Logger

	active Adapter
}

// NewManager creates a manager. dirRoot is the workspace root for the
// directory adapter (may be empty when the host grants none), storeDir the
// data directory for the embedded record store.
func NewManager(p *prefs.Store, dirRoot, storeDir string, logger *slog.Logger) *Manager {
	return &Manager{prefs: p, dirRoot: dirRoot, storeDir: storeDir, logger: logger}
}

// Active returns the current adapter, or nil before any selection.
func (m *Manager) Active() Adapter { return m.active }

// Type returns the active adapter type, or "" before any selection.
func (m *Manager) Type() Type {
	if m.active == nil {
		return ""
	}
	return m.active.Type()
}

// DirectorySupported is the capability probe for the directory backend:
// callers hide the option entirely when no workspace root can be granted.
func (m *Manager) DirectorySupported() bool {
	if m.dirRoot != "" {
		return true
	}
	root, err := m.prefs.Get(prefs.KeyWorkspaceRoot)
	return err == nil && root != ""
}

// SetAdapter tears down the previous adapter, initializes the requested
// type, and persists it as the preference for future restoration. The
// preference is written even when init reports not-ready, matching a user's
// explicit choice.
func (m *Manager) SetAdapter(ctx context.Context, t Type) (InitResult, error) {
	if m.active != nil {
		if err := m.active.Teardown(); err != nil {
			m.logger.Warn("teardown of previous adapter failed",
				slog.String("type", string(m.active.Type())),
				slog.String("error", err.Error()))
		}
		m.active = nil
	}

	adapter, err := m.buildAdapter(t)
	if err != nil {
		return InitResult{}, err
	}
	res, err := adapter.Init(ctx)
	if err != nil {
		return res, err
	}
	m.active = adapter

	if err := m.prefs.Set(prefs.KeyAdapterType, string(t)); err != nil {
		m.logger.Warn("persist adapter preference failed", slog.String("error", err.Error()))
	}
	if res.Ready && t == TypeDirectory {
		if d, ok := adapter.(*Dir); ok {
			if err := m.prefs.Set(prefs.KeyWorkspaceRoot, d.Root()); err != nil {
				m.logger.Warn("persist workspace root failed", slog.String("error", err.Error()))
			}
		}
	}
	return res, nil
}

// RestoreLastAdapter re-reads the persisted adapter-type preference and
// initializes the corresponding adapter. On a not-ready result it does not
// fall back automatically; the caller must SetAdapter a different type.
func (m *Manager) RestoreLastAdapter(ctx context.Context) (InitResult, error) {
	stored, err := m.prefs.Get(prefs.KeyAdapterType)
	if err != nil {
		return InitResult{}, err
	}
	t := Type(stored)
	if t == "" {
		t = TypeRecordStore
	}

	adapter, err := m.buildAdapter(t)
	if err != nil {
		return InitResult{}, err
	}
	res, err := adapter.Init(ctx)
	if err != nil {
		return res, err
	}
	m.active = adapter
	return res, nil
}

func (m *Manager) buildAdapter(t Type) (Adapter, error) {
	switch t {
	case TypeDirectory:
		root := m.dirRoot
		if root == "" {
			stored, err := m.prefs.Get(prefs.KeyWorkspaceRoot)
			if err != nil {
				return nil, err
			}
			root = stored
		}
		if root == "" {
			return nil, fmt.Errorf("storage: directory backend: %w", apperr.ErrUnavailable)
		}
		return NewDir(root), nil
	case TypeRecordStore:
		return NewRecordStore(m.storeDir), nil
	default:
		return nil, fmt.Errorf("storage: unknown adapter type %q", t)
	}
}

// Teardown releases the active adapter, if any.
func (m *Manager) Teardown() error {
	if m.active == nil {
		return nil
	}
	err := m.active.Teardown()
	m.active = nil
	return err
}
