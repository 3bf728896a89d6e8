package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/frontmatter"
	"github.com/starford/inkwell/internal/models"
)

// DirMode is the directory layout of one workspace root: flat keeps one
// top-level .md file per article, folder keeps one subdirectory per article
// containing article.md plus an images/ sibling for co-located assets.
type DirMode string

const (
	ModeFlat   DirMode = "flat"
	ModeFolder DirMode = "folder"
)

const (
	articleFile = "article.md"
	imagesDir   = "images"

	// sniffBytes bounds how much of a file's head is read when extracting
	// the themeName for list display.
	sniffBytes = 500
)

// Dir implements Adapter backed by a single workspace directory tree.
// The layout mode is detected once per Init and again after a successful
// migration; records of mixed layout never coexist after detection.
type Dir struct {
	root  string // absolute path to the workspace root
	mode  DirMode
	ready bool
}

// NewDir creates a directory adapter rooted at root. Access is not
// validated until Init.
func NewDir(root string) *Dir {
	return &Dir{root: root, mode: ModeFlat}
}

func (d *Dir) Type() Type { return TypeDirectory }

// Mode returns the detected directory layout.
func (d *Dir) Mode() DirMode { return d.mode }

// Root returns the absolute workspace root path (valid after Init).
func (d *Dir) Root() string { return d.root }

// Init resolves the workspace root, creating it if absent, and detects the
// directory layout. Denied filesystem access is recoverable: it reports
// Ready=false with a message instead of failing.
func (d *Dir) Init(_ context.Context) (InitResult, error) {
	if d.root == "" {
		return InitResult{Ready: false, Message: "no workspace root configured"}, nil
	}
	abs, err := filepath.Abs(d.root)
	if err != nil {
		return InitResult{}, fmt.Errorf("storage: resolve root: %w", err)
	}
	d.root = abs

	if err := os.MkdirAll(abs, 0o755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return InitResult{Ready: false, Message: fmt.Sprintf("workspace access denied: %s", abs)}, nil
		}
		return InitResult{Ready: false, Message: err.Error()}, nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return InitResult{Ready: false, Message: err.Error()}, nil
	}
	if !info.IsDir() {
		return InitResult{Ready: false, Message: fmt.Sprintf("workspace root is not a directory: %s", abs)}, nil
	}

	mode, err := d.detectMode()
	if err != nil {
		return InitResult{Ready: false, Message: err.Error()}, nil
	}
	d.mode = mode
	d.ready = true
	return InitResult{Ready: true, Message: fmt.Sprintf("workspace ready (%s layout)", mode)}, nil
}

// detectMode probes immediate children only: the first subdirectory holding
// an article.md decides folder layout, otherwise the root is flat. One
// linear pass with one nested existence check per directory.
func (d *Dir) detectMode() (DirMode, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return ModeFlat, fmt.Errorf("storage: detect mode: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.root, entry.Name(), articleFile)); err == nil {
			return ModeFolder, nil
		}
	}
	return ModeFlat, nil
}

func (d *Dir) ensureReady() error {
	if !d.ready {
		return fmt.Errorf("storage: directory adapter not initialized")
	}
	return nil
}

// resolve maps a logical path onto the root. One segment resolves directly
// under the root, two segments resolve through a subdirectory; anything
// else, absolute paths, and traversal out of the root are rejected.
func (d *Dir) resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	if n := len(strings.Split(cleaned, string(os.PathSeparator))); n > 2 {
		return "", fmt.Errorf("storage: unsupported path depth: %s", rel)
	}
	abs := filepath.Join(d.root, cleaned)
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes workspace root: %s", rel)
	}
	return abs, nil
}

// ListFiles walks the immediate children of the root according to the
// detected layout. Entries that cannot be read are skipped.
func (d *Dir) ListFiles() ([]models.FileRecord, error) {
	if err := d.ensureReady(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		// Unreachable root is recoverable for a listing.
		return []models.FileRecord{}, nil
	}

	records := make([]models.FileRecord, 0, len(entries))
	for _, entry := range entries {
		if d.mode == ModeFolder {
			if !entry.IsDir() {
				continue
			}
			articlePath := filepath.Join(d.root, entry.Name(), articleFile)
			info, statErr := os.Stat(articlePath)
			if statErr != nil {
				continue // folder without an article, or unreadable
			}
			records = append(records, models.FileRecord{
				Path:      entry.Name() + "/" + articleFile,
				Name:      entry.Name(),
				ThemeName: frontmatter.SniffThemeName(readHead(articlePath)),
				CreatedAt: info.ModTime(),
				UpdatedAt: info.ModTime(),
				Size:      info.Size(),
				IsFolder:  true,
			})
			continue
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		records = append(records, models.FileRecord{
			Path:      name,
			Name:      name,
			ThemeName: frontmatter.SniffThemeName(readHead(filepath.Join(d.root, name))),
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
			Size:      info.Size(),
			IsFolder:  false,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// readHead returns up to sniffBytes from the start of the file, or nil on
// any error (the caller falls back to default theme metadata).
func readHead(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil
	}
	return buf[:n]
}

func (d *Dir) ReadFile(path string) (string, error) {
	if err := d.ensureReady(); err != nil {
		return "", err
	}
	abs, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile creates or overwrites the document at path. Two-segment paths
// implicitly create the enclosing folder and its images/ sibling, so a
// folder-mode write always lands in a complete article folder.
func (d *Dir) WriteFile(path, content string) error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	abs, err := d.resolve(path)
	if err != nil {
		return err
	}
	if strings.Contains(path, "/") {
		parent := filepath.Dir(abs)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("storage: mkdir: %w", err)
		}
		if err := os.MkdirAll(filepath.Join(parent, imagesDir), 0o755); err != nil {
			return fmt.Errorf("storage: mkdir images: %w", err)
		}
	}
	return atomicWrite(abs, []byte(content))
}

// atomicWrite writes content via tmp file, fsync, rename.
func atomicWrite(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".inkwell-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// RenameFile renames a document. In folder mode the enclosing folders are
// renamed, carrying the images/ assets along. A destination that already
// exists fails with Conflict, except when it differs from the source only
// in letter case (case-only renames stay allowed on case-insensitive
// filesystems).
func (d *Dir) RenameFile(oldPath, newPath string) error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	if oldPath == newPath {
		return nil
	}

	oldTarget, newTarget := oldPath, newPath
	if d.mode == ModeFolder {
		oldTarget = firstSegment(oldPath)
		newTarget = firstSegment(newPath)
		if oldTarget == newTarget {
			return nil
		}
	}
	absOld, err := d.resolve(oldTarget)
	if err != nil {
		return err
	}
	absNew, err := d.resolve(newTarget)
	if err != nil {
		return err
	}

	if !strings.EqualFold(oldTarget, newTarget) {
		if _, statErr := os.Stat(absNew); statErr == nil {
			return fmt.Errorf("storage: rename %s -> %s: %w", oldPath, newPath, apperr.ErrConflict)
		}
	}
	if _, err := os.Stat(absOld); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: rename %s: %w", oldPath, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: rename: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// DeleteFile removes a document. In folder mode the entire enclosing folder
// is deleted, including non-document assets such as images.
func (d *Dir) DeleteFile(path string) error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	target := path
	if d.mode == ModeFolder && strings.Contains(path, "/") {
		target = firstSegment(path)
	}
	abs, err := d.resolve(target)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (d *Dir) Exists(path string) (bool, error) {
	if err := d.ensureReady(); err != nil {
		return false, err
	}
	abs, err := d.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: exists %s: %w", path, err)
	}
	return true, nil
}

// CreateArticle derives "<ISO-date>-<title>" as the base name, suffixing
// "-N" until it is unique, then persists content under the layout's shape
// for the current mode and returns the resulting path.
func (d *Dir) CreateArticle(title, content string) (string, error) {
	if err := d.ensureReady(); err != nil {
		return "", err
	}
	base := time.Now().Format("2006-01-02") + "-" + strings.TrimSpace(title)

	if d.mode == ModeFolder {
		name := base
		for n := 1; ; n++ {
			if _, err := os.Stat(filepath.Join(d.root, name)); errors.Is(err, os.ErrNotExist) {
				break
			}
			name = fmt.Sprintf("%s-%d", base, n)
		}
		path := name + "/" + articleFile
		if err := d.WriteFile(path, content); err != nil {
			return "", err
		}
		return path, nil
	}

	name := base
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(d.root, name+".md")); errors.Is(err, os.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}
	path := name + ".md"
	if err := d.WriteFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// MigrationResult reports a completed (or no-op) layout migration.
type MigrationResult struct {
	Migrated int    `json:"migrated"`
	Message  string `json:"message"`
}

// MigrateToFolderMode converts a flat workspace to the folder layout:
// each top-level .md file becomes "<name>/article.md" with an empty images/
// sibling, and the flat original is removed.
//
// The conversion is sequential and not transactional. A failure aborts the
// loop and returns a PartialMigrationError with the completed count; files
// already converted stay converted, and re-running the migration resumes
// with whatever flat files remain. A crash between folder creation and
// source deletion can leave both forms of one file present, which the next
// enumeration simply treats as one flat candidate plus one folder.
func (d *Dir) MigrateToFolderMode(ctx context.Context) (MigrationResult, error) {
	if err := d.ensureReady(); err != nil {
		return MigrationResult{}, err
	}
	if d.mode == ModeFolder {
		return MigrationResult{Message: "workspace already uses the folder layout"}, nil
	}

	entries, err := os.ReadDir(d.root)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("storage: migrate: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return MigrationResult{Message: "nothing to migrate"}, nil
	}

	for i, name := range candidates {
		if err := d.migrateOne(ctx, name); err != nil {
			return MigrationResult{Migrated: i},
				&apperr.PartialMigrationError{Completed: i, Err: err}
		}
	}

	mode, err := d.detectMode()
	if err != nil {
		return MigrationResult{Migrated: len(candidates)}, err
	}
	d.mode = mode
	return MigrationResult{
		Migrated: len(candidates),
		Message:  fmt.Sprintf("migrated %d file(s) to the folder layout", len(candidates)),
	}, nil
}

func (d *Dir) migrateOne(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := filepath.Join(d.root, name)
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	folder := filepath.Join(d.root, strings.TrimSuffix(name, ".md"))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", folder, err)
	}
	if err := os.MkdirAll(filepath.Join(folder, imagesDir), 0o755); err != nil {
		return fmt.Errorf("mkdir images: %w", err)
	}
	if err := atomicWrite(filepath.Join(folder, articleFile), content); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Teardown() error {
	d.ready = false
	return nil
}

func firstSegment(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}
