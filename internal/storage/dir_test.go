package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/frontmatter"
)

func newDir(t *testing.T) *Dir {
	t.Helper()
	d := NewDir(t.TempDir())
	res, err := d.Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !res.Ready {
		t.Fatalf("Init not ready: %s", res.Message)
	}
	return d
}

// seedFolder creates <root>/<name>/article.md so detection sees the folder
// layout on the next Init.
func seedFolder(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Join(dir, imagesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, articleFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectMode_Flat(t *testing.T) {
	d := newDir(t)
	_ = os.WriteFile(filepath.Join(d.Root(), "a.md"), []byte("a"), 0o644)
	_ = os.WriteFile(filepath.Join(d.Root(), "b.md"), []byte("b"), 0o644)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ModeFlat {
		t.Errorf("mode = %q, want flat", d.Mode())
	}
}

func TestDetectMode_Folder(t *testing.T) {
	root := t.TempDir()
	seedFolder(t, root, "Intro", "hello")
	// Flat .md files at top level do not override folder detection.
	_ = os.WriteFile(filepath.Join(root, "stray.md"), []byte("x"), 0o644)

	d := NewDir(root)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.Mode() != ModeFolder {
		t.Errorf("mode = %q, want folder", d.Mode())
	}
}

func TestInit_EmptyRootNotReady(t *testing.T) {
	d := NewDir("")
	res, err := d.Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if res.Ready {
		t.Error("expected not ready without a root")
	}
}

func TestRoundTrip(t *testing.T) {
	d := newDir(t)
	content := "# Hello\n\nno envelope here"
	if err := d.WriteFile("note.md", content); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := d.ReadFile("note.md")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestReadMissing(t *testing.T) {
	d := newDir(t)
	if _, err := d.ReadFile("gone.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWriteCreatesFolderAndImages(t *testing.T) {
	d := newDir(t)
	if err := d.WriteFile("Intro/article.md", "hello"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d.Root(), "Intro", imagesDir)); err != nil {
		t.Errorf("images dir missing: %v", err)
	}
	got, err := d.ReadFile("Intro/article.md")
	if err != nil || got != "hello" {
		t.Errorf("ReadFile = %q, %v", got, err)
	}
}

func TestPathDepthRejected(t *testing.T) {
	d := newDir(t)
	for _, p := range []string{"a/b/c.md", "../escape.md", "/abs.md"} {
		if err := d.WriteFile(p, "x"); err == nil {
			t.Errorf("expected error writing %q", p)
		}
	}
}

func TestListFiles_Flat(t *testing.T) {
	d := newDir(t)
	older := frontmatter.Compose("lapis", "Lapis Blue", "old")
	newer := "no envelope"
	_ = os.WriteFile(filepath.Join(d.Root(), "old.md"), []byte(older), 0o644)
	_ = os.WriteFile(filepath.Join(d.Root(), "new.md"), []byte(newer), 0o644)
	_ = os.WriteFile(filepath.Join(d.Root(), ".hidden.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(d.Root(), "notes.txt"), []byte("x"), 0o644)

	// Pin modification times so the sort order is deterministic.
	base := time.Now().Add(-time.Hour)
	_ = os.Chtimes(filepath.Join(d.Root(), "old.md"), base, base)
	_ = os.Chtimes(filepath.Join(d.Root(), "new.md"), base.Add(time.Minute), base.Add(time.Minute))

	records, err := d.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Name != "new.md" || records[1].Name != "old.md" {
		t.Errorf("order = [%s %s], want newest first", records[0].Name, records[1].Name)
	}
	if records[0].ThemeName != frontmatter.DefaultThemeName {
		t.Errorf("themeName = %q, want default", records[0].ThemeName)
	}
	if records[1].ThemeName != "Lapis Blue" {
		t.Errorf("themeName = %q, want sniffed value", records[1].ThemeName)
	}
}

func TestListFiles_Folder(t *testing.T) {
	root := t.TempDir()
	seedFolder(t, root, "Intro", frontmatter.Compose("mono", "Mono", "# Intro"))
	// A folder without article.md is not a document.
	_ = os.MkdirAll(filepath.Join(root, "drafts"), 0o755)

	d := NewDir(root)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, err := d.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len = %d, want 1", len(records))
	}
	r := records[0]
	if r.Name != "Intro" || r.Path != "Intro/article.md" || !r.IsFolder {
		t.Errorf("record = %+v", r)
	}
	if r.ThemeName != "Mono" {
		t.Errorf("themeName = %q", r.ThemeName)
	}
}

func TestRenameConflict(t *testing.T) {
	d := newDir(t)
	_ = d.WriteFile("a.md", "A")
	_ = d.WriteFile("b.md", "B")
	if err := d.RenameFile("a.md", "b.md"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	// Both sides untouched.
	if got, _ := d.ReadFile("a.md"); got != "A" {
		t.Errorf("a.md = %q", got)
	}
	if got, _ := d.ReadFile("b.md"); got != "B" {
		t.Errorf("b.md = %q", got)
	}
}

func TestRenameCaseOnly(t *testing.T) {
	d := newDir(t)
	_ = d.WriteFile("draft.md", "text")
	if err := d.RenameFile("draft.md", "Draft.md"); err != nil {
		t.Fatalf("case-only rename: %v", err)
	}
	if got, err := d.ReadFile("Draft.md"); err != nil || got != "text" {
		t.Errorf("Draft.md = %q, %v", got, err)
	}
}

func TestRenameNoop(t *testing.T) {
	d := newDir(t)
	_ = d.WriteFile("a.md", "A")
	if err := d.RenameFile("a.md", "a.md"); err != nil {
		t.Errorf("self-rename: %v", err)
	}
}

func TestRenameFolderCarriesAssets(t *testing.T) {
	root := t.TempDir()
	seedFolder(t, root, "Old", "body")
	_ = os.WriteFile(filepath.Join(root, "Old", imagesDir, "pic.png"), []byte{1, 2}, 0o644)

	d := NewDir(root)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.RenameFile("Old/article.md", "New/article.md"); err != nil {
		t.Fatalf("RenameFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "New", imagesDir, "pic.png")); err != nil {
		t.Errorf("asset not carried: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "Old")); !os.IsNotExist(err) {
		t.Errorf("old folder still present")
	}
}

func TestDeleteFolderRemovesAssets(t *testing.T) {
	root := t.TempDir()
	seedFolder(t, root, "Doc", "body")
	_ = os.WriteFile(filepath.Join(root, "Doc", imagesDir, "pic.png"), []byte{1}, 0o644)

	d := NewDir(root)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.DeleteFile("Doc/article.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "Doc")); !os.IsNotExist(err) {
		t.Error("folder should be gone entirely")
	}
}

func TestCreateArticle_FolderMode(t *testing.T) {
	root := t.TempDir()
	seedFolder(t, root, "Seed", "x")
	d := NewDir(root)
	if _, err := d.Init(context.Background()); err != nil {
		t.Fatal(err)
	}

	path, err := d.CreateArticle("My Post", "content")
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	wantPrefix := time.Now().Format("2006-01-02") + "-My Post"
	if firstSegment(path) != wantPrefix {
		t.Errorf("path = %q, want folder %q", path, wantPrefix)
	}
	if _, err := os.Stat(filepath.Join(root, wantPrefix, imagesDir)); err != nil {
		t.Errorf("images dir missing: %v", err)
	}
	if got, _ := d.ReadFile(path); got != "content" {
		t.Errorf("content = %q", got)
	}

	// Same title again gets a unique suffix instead of clobbering.
	second, err := d.CreateArticle("My Post", "other")
	if err != nil {
		t.Fatalf("second CreateArticle: %v", err)
	}
	if second == path {
		t.Errorf("duplicate path %q", second)
	}
}

func TestCreateArticle_FlatMode(t *testing.T) {
	d := newDir(t)
	path, err := d.CreateArticle("Note", "body")
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	want := time.Now().Format("2006-01-02") + "-Note.md"
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestMigrateToFolderMode(t *testing.T) {
	d := newDir(t)
	contents := map[string]string{
		"alpha.md": "# Alpha",
		"beta.md":  frontmatter.Compose("mono", "Mono", "# Beta"),
		"gamma.md": "",
	}
	for name, c := range contents {
		_ = d.WriteFile(name, c)
	}

	res, err := d.MigrateToFolderMode(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res.Migrated != 3 {
		t.Errorf("migrated = %d, want 3", res.Migrated)
	}
	if d.Mode() != ModeFolder {
		t.Errorf("mode = %q, want folder", d.Mode())
	}

	for name, want := range contents {
		folder := name[:len(name)-3]
		got, err := d.ReadFile(folder + "/" + articleFile)
		if err != nil {
			t.Fatalf("read migrated %s: %v", folder, err)
		}
		if got != want {
			t.Errorf("%s content = %q, want %q", folder, got, want)
		}
		if _, err := os.Stat(filepath.Join(d.Root(), folder, imagesDir)); err != nil {
			t.Errorf("%s images dir missing", folder)
		}
		if _, err := os.Stat(filepath.Join(d.Root(), name)); !os.IsNotExist(err) {
			t.Errorf("flat original %s still present", name)
		}
	}
}

func TestMigrateNothing(t *testing.T) {
	d := newDir(t)
	res, err := d.MigrateToFolderMode(context.Background())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if res.Migrated != 0 || res.Message != "nothing to migrate" {
		t.Errorf("result = %+v", res)
	}
	if d.Mode() != ModeFlat {
		t.Errorf("mode changed on no-op migration")
	}
}

func TestMigratePartialThenResume(t *testing.T) {
	d := newDir(t)
	_ = d.WriteFile("a.md", "A")
	_ = d.WriteFile("b.md", "B")
	_ = d.WriteFile("c.md", "C")
	// A plain file squatting on b.md's target folder makes its conversion
	// fail mid-run.
	blocker := filepath.Join(d.Root(), "b")
	_ = os.WriteFile(blocker, []byte("in the way"), 0o644)

	_, err := d.MigrateToFolderMode(context.Background())
	var pm *apperr.PartialMigrationError
	if !errors.As(err, &pm) {
		t.Fatalf("err = %v, want PartialMigrationError", err)
	}
	if pm.Completed != 1 {
		t.Errorf("completed = %d, want 1", pm.Completed)
	}
	if d.Mode() != ModeFlat {
		t.Errorf("mode flipped despite partial migration")
	}
	// a.md converted, b.md and c.md untouched.
	if _, err := os.Stat(filepath.Join(d.Root(), "a", articleFile)); err != nil {
		t.Errorf("a not migrated: %v", err)
	}
	for _, name := range []string{"b.md", "c.md"} {
		if _, err := os.Stat(filepath.Join(d.Root(), name)); err != nil {
			t.Errorf("%s should remain: %v", name, err)
		}
	}

	// Clearing the obstacle lets a second run finish the remainder.
	_ = os.Remove(blocker)
	res, err := d.MigrateToFolderMode(context.Background())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res.Migrated != 2 {
		t.Errorf("resumed migrated = %d, want 2", res.Migrated)
	}
	if d.Mode() != ModeFolder {
		t.Errorf("mode = %q after resume", d.Mode())
	}
}

func TestOpsBeforeInit(t *testing.T) {
	d := NewDir(t.TempDir())
	if _, err := d.ListFiles(); err == nil {
		t.Error("ListFiles should fail before Init")
	}
	if err := d.WriteFile("a.md", "x"); err == nil {
		t.Error("WriteFile should fail before Init")
	}
}

func TestTeardownMakesUnusable(t *testing.T) {
	d := newDir(t)
	if err := d.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, err := d.ListFiles(); err == nil {
		t.Error("expected error after teardown")
	}
}
