package api

import (
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/workspace"
)

// OpenRequest is the request body for opening a document.
type OpenRequest struct {
	Path string `json:"path" example:"Intro/article.md" validate:"required"`
}

// CreateRequest is the request body for creating an article.
type CreateRequest struct {
	Title string `json:"title" example:"Release Notes" validate:"required"`
}

// RenameRequest is the request body for renaming the open document.
type RenameRequest struct {
	Name string `json:"name" example:"Release Notes v2" validate:"required"`
}

// BodyRequest carries an edited document body.
type BodyRequest struct {
	Body string `json:"body" example:"# Hello\nWorld" validate:"required"`
}

// ThemeRequest carries an edited theme selection.
type ThemeRequest struct {
	Theme     string `json:"theme" example:"lapis" validate:"required"`
	ThemeName string `json:"themeName" example:"Lapis Blue"`
}

// SelectStorageRequest is the request body for switching backends.
type SelectStorageRequest struct {
	Type string `json:"type" example:"directory" validate:"required"`
}

// Document is the open-document response type (aliased from the domain layer).
type Document = workspace.Document

// FileListResponse wraps a workspace listing.
type FileListResponse struct {
	Files []models.FileRecord `json:"files" validate:"required"`
	Total int                 `json:"total" example:"12" validate:"required"`
}

// StorageStatus describes the active backend.
type StorageStatus struct {
	Adapter            string `json:"adapter" example:"recordstore"`
	DirectorySupported bool   `json:"directorySupported"`
	Dirty              bool   `json:"dirty"`
	Saving             bool   `json:"saving"`
}

// InitResponse reports the outcome of a backend switch.
type InitResponse struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

// MigrateResponse reports the outcome of a layout migration.
type MigrateResponse struct {
	Migrated int    `json:"migrated"`
	Message  string `json:"message,omitempty"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"diagram.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"images/diagram.png" validate:"required"`
}
