// Package storage defines the workspace persistence abstraction and its two
// interchangeable backends: a directory tree on disk and an embedded
// key-ordered record store.
package storage

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Type identifies a persistence backend.
type Type string

const (
	// TypeDirectory maps logical paths onto a directory tree on disk.
	TypeDirectory Type = "directory"
	// TypeRecordStore stores named text blobs in an embedded key-value
	// store keyed by logical path.
	TypeRecordStore Type = "recordstore"
)

// InitResult reports the outcome of adapter initialization. Recoverable
// conditions (missing permission, locked store) surface as Ready=false with
// a message rather than an error.
type InitResult struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Adapter is the capability contract both backends implement. The rest of
// the system depends only on this interface.
type Adapter interface {
	Type() Type

	// Init acquires or validates backend access. Idempotent.
	Init(ctx context.Context) (InitResult, error)

	// ListFiles returns all documents sorted by UpdatedAt descending.
	// Unreadable individual entries are skipped, never aborting the
	// listing; an empty or recoverably unreachable backend yields an
	// empty slice.
	ListFiles() ([]models.FileRecord, error)

	// ReadFile returns the full content at path. Missing paths fail with
	// apperr.ErrNotFound.
	ReadFile(path string) (string, error)

	// WriteFile creates or overwrites the document at path.
	WriteFile(path, content string) error

	// RenameFile moves oldPath to newPath. It is a no-op when the paths
	// are equal and fails with apperr.ErrConflict when the destination
	// already exists.
	RenameFile(oldPath, newPath string) error

	// DeleteFile removes the document at path, including any co-located
	// assets when the backend groups them with the document.
	DeleteFile(path string) error

	Exists(path string) (bool, error)

	// CreateArticle derives a dated name from title, persists content
	// under it, and returns the resulting path.
	CreateArticle(title, content string) (string, error)

	// Teardown releases the held handle or connection; the adapter is
	// unusable until re-initialized.
	Teardown() error
}
