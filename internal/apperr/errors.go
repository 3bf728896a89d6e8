// Package apperr defines the sentinel errors shared across storage backends
// and the workspace controller.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("backend unavailable")
)

// PartialMigrationError reports a layout migration that aborted mid-run.
// Completed counts the files already converted; the workspace is left in a
// mixed but resumable state, and a subsequent migration picks up the rest.
type PartialMigrationError struct {
	Completed int
	Err       error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("migration aborted after %d file(s): %v", e.Completed, e.Err)
}

func (e *PartialMigrationError) Unwrap() error { return e.Err }
