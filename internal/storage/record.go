package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/frontmatter"
	"github.com/starford/inkwell/internal/models"
)

// RecordStore implements Adapter on top of an embedded key-ordered store
// (BadgerDB), keyed by logical path. Used where no directory tree is
// available or granted.
type RecordStore struct {
	dir      string
	inMemory bool
	db       *badger.DB
}

// storedRecord is the value persisted per path.
type storedRecord struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRecordStore creates a record store persisting to dir.
func NewRecordStore(dir string) *RecordStore {
	return &RecordStore{dir: dir}
}

// NewInMemoryRecordStore creates a record store that keeps everything in
// memory. Used in tests to exercise the real badger engine without disk.
func NewInMemoryRecordStore() *RecordStore {
	return &RecordStore{inMemory: true}
}

func (r *RecordStore) Type() Type { return TypeRecordStore }

// Init opens the store. Idempotent: an already-open store reports ready
// again. Failure to open (e.g. a lock held by another process) is
// recoverable and reports Ready=false.
func (r *RecordStore) Init(_ context.Context) (InitResult, error) {
	if r.db != nil {
		return InitResult{Ready: true, Message: "record store ready"}, nil
	}
	if !r.inMemory && r.dir == "" {
		return InitResult{Ready: false, Message: "no record store directory configured"}, nil
	}
	opts := badger.DefaultOptions(r.dir).WithLogger(quietLogger{})
	if r.inMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return InitResult{Ready: false, Message: fmt.Sprintf("open record store: %v", err)}, nil
	}
	r.db = db
	return InitResult{Ready: true, Message: "record store ready"}, nil
}

func (r *RecordStore) ensureReady() error {
	if r.db == nil {
		return fmt.Errorf("storage: record store not initialized")
	}
	return nil
}

// ListFiles iterates every record in key order, derives the display name
// from the last path segment, and sorts by UpdatedAt descending.
// Undecodable records are skipped.
func (r *RecordStore) ListFiles() ([]models.FileRecord, error) {
	if err := r.ensureReady(); err != nil {
		return nil, err
	}
	records := []models.FileRecord{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			path := string(item.KeyCopy(nil))
			val, err := item.ValueCopy(nil)
			if err != nil {
				continue
			}
			var rec storedRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				continue
			}
			name := path
			if i := strings.LastIndex(path, "/"); i >= 0 {
				name = path[i+1:]
			}
			records = append(records, models.FileRecord{
				Path:      path,
				Name:      name,
				ThemeName: frontmatter.SniffThemeName(head(rec.Content)),
				CreatedAt: rec.CreatedAt,
				UpdatedAt: rec.UpdatedAt,
				Size:      int64(len(rec.Content)),
				IsFolder:  false,
			})
		}
		return nil
	})
	if err != nil {
		return []models.FileRecord{}, nil
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

func head(content string) []byte {
	if len(content) > sniffBytes {
		return []byte(content[:sniffBytes])
	}
	return []byte(content)
}

func (r *RecordStore) ReadFile(path string) (string, error) {
	if err := r.ensureReady(); err != nil {
		return "", err
	}
	var content string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var rec storedRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		content = rec.Content
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	return content, nil
}

func (r *RecordStore) WriteFile(path, content string) error {
	if err := r.ensureReady(); err != nil {
		return err
	}
	now := time.Now()
	err := r.db.Update(func(txn *badger.Txn) error {
		rec := storedRecord{Content: content, CreatedAt: now, UpdatedAt: now}
		// Preserve the original creation time on overwrite.
		if item, err := txn.Get([]byte(path)); err == nil {
			if val, err := item.ValueCopy(nil); err == nil {
				var prev storedRecord
				if json.Unmarshal(val, &prev) == nil && !prev.CreatedAt.IsZero() {
					rec.CreatedAt = prev.CreatedAt
				}
			}
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set([]byte(path), val)
	})
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// RenameFile is read-then-write-then-delete across three transactions, not
// a native rename. A crash between the write and the delete leaves both
// keys present; callers treat rename as best-effort and re-verify via
// ListFiles or Exists after a crash.
func (r *RecordStore) RenameFile(oldPath, newPath string) error {
	if err := r.ensureReady(); err != nil {
		return err
	}
	if oldPath == newPath {
		return nil
	}
	exists, err := r.Exists(newPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("storage: rename %s -> %s: %w", oldPath, newPath, apperr.ErrConflict)
	}
	content, err := r.ReadFile(oldPath)
	if err != nil {
		return err
	}
	if err := r.WriteFile(newPath, content); err != nil {
		return err
	}
	return r.DeleteFile(oldPath)
}

func (r *RecordStore) DeleteFile(path string) error {
	if err := r.ensureReady(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(path))
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (r *RecordStore) Exists(path string) (bool, error) {
	if err := r.ensureReady(); err != nil {
		return false, err
	}
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(path))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: exists %s: %w", path, err)
	}
	return true, nil
}

// CreateArticle stores content under "<ISO-date>-<title>.md", suffixing
// "-N" until the key is unique.
func (r *RecordStore) CreateArticle(title, content string) (string, error) {
	if err := r.ensureReady(); err != nil {
		return "", err
	}
	base := time.Now().Format("2006-01-02") + "-" + strings.TrimSpace(title)
	name := base
	for n := 1; ; n++ {
		exists, err := r.Exists(name + ".md")
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}
	path := name + ".md"
	if err := r.WriteFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

func (r *RecordStore) Teardown() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	if err != nil {
		return fmt.Errorf("storage: close record store: %w", err)
	}
	return nil
}

// quietLogger silences badger's info and debug chatter; errors and
// warnings still reach the process log.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
