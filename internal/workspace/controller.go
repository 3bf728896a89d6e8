// Package workspace implements the stateful session layer above the storage
// manager: one open document at a time, list/open/create/rename/delete
// through the active adapter, and the debounced-autosave and dirty-tracking
// state machine.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/inkwell/internal/frontmatter"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

// DefaultDebounce is how long after the last qualifying edit the autosave
// fires.
const DefaultDebounce = 3 * time.Second

// ErrNoDocument is returned by operations that need an open document.
var ErrNoDocument = errors.New("workspace: no document open")

// AdapterSource yields the currently active storage adapter. The storage
// manager satisfies this; tests substitute fakes.
type AdapterSource interface {
	Active() storage.Adapter
}

// Document is the in-memory state of the open document.
type Document struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Theme     string `json:"theme"`
	ThemeName string `json:"themeName"`
	Body      string `json:"body"`
	IsFolder  bool   `json:"isFolder"`
}

// Controller tracks one open document per session.
//
// State per document: Clean (persisted content matches the composed
// in-memory content), Dirty (composed content diverges from the baseline,
// debounce timer armed), Restoring (an open is in flight; edits must not
// trigger autosave). The baseline is the full composed content string last
// read from or written to the backend; every save skips the physical write
// when the composed content equals it.
type Controller struct {
	source   AdapterSource
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.Mutex
	current   *Document
	baseline  string
	dirty     bool
	restoring bool
	saving    bool
	timer     *time.Timer
	// gen invalidates pending autosave callbacks when the open document
	// changes underneath them.
	gen uint64
}

// Option configures the controller.
type Option func(*Controller)

// WithDebounce overrides the autosave debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// NewController creates a controller on top of the given adapter source.
func NewController(source AdapterSource, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{source: source, logger: logger, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) adapter() (storage.Adapter, error) {
	a := c.source.Active()
	if a == nil {
		return nil, fmt.Errorf("workspace: no storage backend selected")
	}
	return a, nil
}

// Files lists the workspace through the active adapter. Records are
// materialized fresh on every call.
func (c *Controller) Files() ([]models.FileRecord, error) {
	a, err := c.adapter()
	if err != nil {
		return nil, err
	}
	return a.ListFiles()
}

// Current returns a copy of the open document, or nil.
func (c *Controller) Current() *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	doc := *c.current
	return &doc
}

// Dirty reports whether unsaved edits exist.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Saving reports whether a save is in flight; the UI uses it to disable
// concurrent explicit-save requests.
func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// Open reads the document at path, parses its envelope, and makes it the
// current document with a Clean baseline. Any pending autosave for the
// previously open document is cancelled.
func (c *Controller) Open(path string) (*Document, error) {
	a, err := c.adapter()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.restoring = true
	c.stopTimerLocked()
	c.gen++
	c.mu.Unlock()

	content, err := a.ReadFile(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.restoring = false }()
	if err != nil {
		return nil, err
	}

	env, body := frontmatter.Parse(content)
	doc := &Document{
		Path:      path,
		Name:      displayName(path),
		Theme:     env.Theme,
		ThemeName: env.ThemeName,
		Body:      body,
		IsFolder:  strings.Contains(path, "/"),
	}
	c.current = doc
	// The baseline is the reconstructed full content, not the raw bytes:
	// saves compare against exactly what Compose would write back.
	c.baseline = frontmatter.Compose(env.Theme, env.ThemeName, body)
	c.dirty = false

	out := *doc
	return &out, nil
}

// displayName derives the list display name from a path: the folder name
// for "<folder>/article.md" records, the file name otherwise.
func displayName(path string) string {
	if i := strings.Index(path, "/"); i >= 0 {
		return path[:i]
	}
	return path
}

// Create derives a dated article from title through the active adapter,
// then opens it.
func (c *Controller) Create(title string) (*Document, error) {
	a, err := c.adapter()
	if err != nil {
		return nil, err
	}
	content := frontmatter.Compose(frontmatter.DefaultTheme, frontmatter.DefaultThemeName, "")
	path, err := a.CreateArticle(title, content)
	if err != nil {
		return nil, err
	}
	return c.Open(path)
}

// SetBody applies an edit to the open document's body and runs the dirty
// check: a composed content differing from the baseline arms (or re-arms)
// the autosave debounce, an identical one returns the document to Clean.
func (c *Controller) SetBody(body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoDocument
	}
	c.current.Body = body
	c.onEditLocked()
	return nil
}

// SetTheme applies a theme edit; theme changes participate in dirty
// tracking exactly like body edits.
func (c *Controller) SetTheme(theme, themeName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoDocument
	}
	c.current.Theme = theme
	c.current.ThemeName = themeName
	c.onEditLocked()
	return nil
}

func (c *Controller) onEditLocked() {
	if c.restoring {
		return
	}
	composed := frontmatter.Compose(c.current.Theme, c.current.ThemeName, c.current.Body)
	if composed == c.baseline {
		c.dirty = false
		c.stopTimerLocked()
		return
	}
	c.dirty = true
	c.armTimerLocked()
}

// armTimerLocked (re)starts the debounce with cancel-on-reschedule
// semantics: at most one timer is ever pending.
func (c *Controller) armTimerLocked() {
	c.stopTimerLocked()
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.autosave(gen) })
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// autosave is the debounce callback. A failure leaves the document Dirty
// and is not rescheduled; the next qualifying edit restarts the timer.
func (c *Controller) autosave(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.dirty || c.restoring || c.current == nil {
		return
	}
	if err := c.saveLocked(); err != nil {
		c.logger.Error("autosave failed",
			slog.String("path", c.current.Path),
			slog.String("error", err.Error()))
	}
}

// Save is the explicit save request: it short-circuits the debounce and
// writes immediately, unless the composed content equals the baseline, in
// which case no physical write happens.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoDocument
	}
	c.stopTimerLocked()
	return c.saveLocked()
}

func (c *Controller) saveLocked() error {
	composed := frontmatter.Compose(c.current.Theme, c.current.ThemeName, c.current.Body)
	if composed == c.baseline {
		c.dirty = false
		return nil
	}
	a, err := c.adapter()
	if err != nil {
		return err
	}
	c.saving = true
	err = a.WriteFile(c.current.Path, composed)
	c.saving = false
	if err != nil {
		return err
	}
	c.baseline = composed
	c.dirty = false
	return nil
}

// Rename renames the open document to newName and updates the held
// path/name in place without re-reading content. The baseline and dirty
// state are untouched: pending edits still refer to the same document.
func (c *Controller) Rename(newName string) error {
	a, err := c.adapter()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoDocument
	}

	var newPath string
	if c.current.IsFolder {
		newPath = newName + "/article.md"
	} else {
		if !strings.HasSuffix(newName, ".md") {
			newName += ".md"
		}
		newPath = newName
	}
	if err := a.RenameFile(c.current.Path, newPath); err != nil {
		return err
	}
	c.current.Path = newPath
	c.current.Name = displayName(newPath)
	return nil
}

// Delete removes the open document and clears the controller state: no
// current document, blank body, no pending autosave.
func (c *Controller) Delete() error {
	a, err := c.adapter()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ErrNoDocument
	}
	if err := a.DeleteFile(c.current.Path); err != nil {
		return err
	}
	c.clearLocked()
	return nil
}

// Reset drops the open document without touching the backend. Called when
// the workspace or the storage backend changes.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Controller) clearLocked() {
	c.current = nil
	c.baseline = ""
	c.dirty = false
	c.stopTimerLocked()
	c.gen++
}

// Close cancels any pending autosave. Unsaved edits are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.gen++
}
