package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dukerupert/freezer/internal/model"
)

// Local stores the document as one JSON file. It is also the repository used
// when remote sync is disabled.
type Local struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

func NewLocal(path string, logger *slog.Logger) *Local {
	return &Local{path: path, logger: logger}
}

// Path returns the cache file location.
func (l *Local) Path() string {
	return l.path
}

func (l *Local) Backend() Backend {
	return BackendLocal
}

func (l *Local) Load() (*model.Document, error) {
	l.mu.Lock()
	data, err := os.ReadFile(l.path)
	l.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	doc, err := model.Decode(data)
	if err != nil {
		l.logger.Warn("ignoring unreadable cache", "path", l.path, "error", err)
		return nil, nil
	}
	return doc, nil
}

func (l *Local) LoadSnapshot() *model.Document {
	doc, err := l.Load()
	if err != nil {
		l.logger.Warn("load snapshot", "error", err)
		return nil
	}
	return doc
}

func (l *Local) Save(doc *model.Document) error {
	data, err := model.Encode(doc)
	if err != nil {
		return err
	}
	return l.write(data)
}

// write replaces the cache file with data via a temp file and rename.
func (l *Local) write(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return writeFileAtomic(l.path, data)
}

func (l *Local) SyncFromRemote(context.Context) error {
	return nil
}

func (l *Local) EnsureSubscriptions(context.Context) error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
