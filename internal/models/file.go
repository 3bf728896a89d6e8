// Package models defines the domain types for Inkwell.
package models

import "time"

// FileRecord is one persisted document as reported by a storage adapter.
// Records are materialized on every list call and never cached across calls.
type FileRecord struct {
	// Path is the unique key within the active backend. Folder-mode
	// directory storage uses "<folder>/article.md", flat mode "<name>.md",
	// the record store any unique string key.
	Path string `json:"path"`
	// Name is the display name; in folder mode this is the folder name,
	// not the literal "article.md".
	Name string `json:"name"`
	// ThemeName is sniffed from the frontmatter head for list display.
	ThemeName string    `json:"themeName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Size      int64     `json:"size"`
	// IsFolder reports whether the physical representation is a
	// subdirectory rather than a bare file.
	IsFolder bool `json:"isFolder"`
}
