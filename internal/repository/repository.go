// Package repository loads and saves the household document. The local JSON
// cache is always the source of truth for reads; the synced variant mirrors
// saves to a remote.Store in the background.
package repository

import (
	"context"
	"time"

	"github.com/dukerupert/freezer/internal/model"
)

type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

const (
	DefaultSyncTimeout = 2 * time.Second
	DefaultPushTimeout = 15 * time.Second
)

// Repository persists the document.
type Repository interface {
	Backend() Backend
	// Load returns nil, nil when nothing has been saved yet or the cache is
	// unreadable.
	Load() (*model.Document, error)
	Save(doc *model.Document) error
	// LoadSnapshot is a best-effort Load that never fails.
	LoadSnapshot() *model.Document
	// SyncFromRemote replaces the local cache with the remote copy. A missing
	// remote record or a timeout is not an error.
	SyncFromRemote(ctx context.Context) error
	// EnsureSubscriptions registers change subscriptions for both scopes.
	EnsureSubscriptions(ctx context.Context) error
}

// Snapshot reads the current document without a state engine, falling back to
// a first-run document.
func Snapshot(r Repository) *model.Document {
	if doc := r.LoadSnapshot(); doc != nil {
		return doc
	}
	return model.NewDocument(time.Now())
}
