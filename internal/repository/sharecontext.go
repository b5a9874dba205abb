package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ShareContext is device-local state recording which shared household this
// device joined. It is never synced.
type ShareContext struct {
	mu    sync.RWMutex
	path  string
	state shareState
}

type shareState struct {
	RootRecordName string    `json:"root_record_name,omitempty"`
	AcceptedAt     time.Time `json:"accepted_at,omitzero"`
}

// OpenShareContext reads the state file at path. An empty path keeps the
// state in memory only.
func OpenShareContext(path string) (*ShareContext, error) {
	c := &ShareContext{path: path}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read share state: %w", err)
	}
	if err := json.Unmarshal(data, &c.state); err != nil {
		return nil, fmt.Errorf("decode share state: %w", err)
	}
	return c, nil
}

// RootRecordName returns the accepted shared root, or "" when this device
// uses its own household.
func (c *ShareContext) RootRecordName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.RootRecordName
}

// AcceptedAt returns when the current share was accepted.
func (c *ShareContext) AcceptedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AcceptedAt
}

// SetRootRecordName records an accepted share and persists it.
func (c *ShareContext) SetRootRecordName(name string, at time.Time) error {
	return c.update(shareState{RootRecordName: name, AcceptedAt: at.UTC()})
}

// Clear forgets the accepted share.
func (c *ShareContext) Clear() error {
	return c.update(shareState{})
}

func (c *ShareContext) update(next shareState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode share state: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
		if err := writeFileAtomic(c.path, data); err != nil {
			return fmt.Errorf("save share state: %w", err)
		}
	}
	c.state = next
	return nil
}
