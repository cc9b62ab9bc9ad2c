package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"jobprep/internal/errors"
)

// errCorrupt marks a document on disk that is not a JSON object.
var errCorrupt = stderrors.New("storage: corrupt document")

// FileBackend keeps every key in one JSON document on disk.
type FileBackend struct {
	mu     sync.Mutex
	path   string
	quota  int64
	logger *errors.Logger
}

// NewFileBackend stores documents at path. quota <= 0 disables the size limit.
func NewFileBackend(path string, quota int64) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{path: path, quota: quota}, nil
}

// WithLogger reports recovered documents to logger.
func (b *FileBackend) WithLogger(logger *errors.Logger) *FileBackend {
	b.logger = logger
	return b
}

// Path returns the document location, for the watcher.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return nil, err
	}
	value, ok := doc[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.readForWrite()
	if err != nil {
		return err
	}
	doc[key] = json.RawMessage(value)
	return b.write(doc)
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return b.write(doc)
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	doc := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", errCorrupt, b.path, err)
	}
	return doc, nil
}

// readForWrite is read, except that a corrupt document is moved aside to path.corrupt
// and writing starts over from an empty one.
func (b *FileBackend) readForWrite() (map[string]json.RawMessage, error) {
	doc, err := b.read()
	if !stderrors.Is(err, errCorrupt) {
		return doc, err
	}
	backup := b.path + ".corrupt"
	if renameErr := os.Rename(b.path, backup); renameErr != nil {
		b.logger.Warn("Failed to back up corrupt storage document", "path", b.path, "error", renameErr)
		backup = ""
	}
	b.logger.LogError(err, "Discarding corrupt storage document", "path", b.path, "backup", backup)
	return map[string]json.RawMessage{}, nil
}

// write replaces the document through a temp file and rename.
func (b *FileBackend) write(doc map[string]json.RawMessage) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if b.quota > 0 && int64(len(data)) > b.quota {
		return fmt.Errorf("%w: document is %d bytes, limit %d", ErrQuotaExceeded, len(data), b.quota)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".jobprep-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}
