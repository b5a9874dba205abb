// Package memory is an in-process remote.Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/remote"
)

type subKey struct {
	scope remote.Scope
	id    string
}

// Store keeps records, subscriptions and shares in maps. Values are copied
// on the way in and out.
type Store struct {
	mu            sync.RWMutex
	records       map[string]remote.Record
	subscriptions map[subKey]remote.Subscription
	shares        map[string]remote.Share // by record name
	byURL         map[string]string       // share URL -> record name
	accepted      map[string]bool         // record names accepted into the shared scope
	baseURL       string
	now           func() time.Time
}

// New creates an empty store. Share URLs are minted under baseURL.
func New(baseURL string) *Store {
	if baseURL == "" {
		baseURL = "memory://share/"
	}
	return &Store{
		records:       make(map[string]remote.Record),
		subscriptions: make(map[subKey]remote.Subscription),
		shares:        make(map[string]remote.Share),
		byURL:         make(map[string]string),
		accepted:      make(map[string]bool),
		baseURL:       baseURL,
		now:           time.Now,
	}
}

func (s *Store) visible(scope remote.Scope, name string) bool {
	if scope == remote.ScopeShared {
		_, shared := s.shares[name]
		return shared && s.accepted[name]
	}
	return true
}

func (s *Store) FetchRecord(_ context.Context, scope remote.Scope, name string) (*remote.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok || !s.visible(scope, name) {
		return nil, remote.ErrNotFound
	}
	return copyRecord(&rec), nil
}

func (s *Store) SaveRecord(_ context.Context, scope remote.Scope, rec *remote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visible(scope, rec.Name) {
		return remote.ErrNotFound
	}
	s.records[rec.Name] = *copyRecord(rec)
	return nil
}

func (s *Store) FetchSubscription(_ context.Context, scope remote.Scope, id string) (*remote.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subKey{scope, id}]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) SaveSubscription(_ context.Context, sub *remote.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subKey{sub.Scope, sub.ID}
	if _, ok := s.subscriptions[key]; ok {
		return remote.ErrAlreadyExists
	}
	saved := *sub
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = s.now().UTC()
	}
	s.subscriptions[key] = saved
	return nil
}

func (s *Store) FetchShare(_ context.Context, recordName string) (*remote.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shares[recordName]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return &sh, nil
}

func (s *Store) SaveShare(_ context.Context, root *remote.Record, share *remote.Share) (*remote.Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[root.Name] = *copyRecord(root)

	saved := *share
	saved.RecordName = root.Name
	if existing, ok := s.shares[root.Name]; ok {
		saved.URL = existing.URL
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.URL = s.baseURL + uuid.NewString()
		saved.CreatedAt = s.now().UTC()
	}
	s.shares[root.Name] = saved
	s.byURL[saved.URL] = root.Name
	return &saved, nil
}

func (s *Store) FetchShareMetadata(_ context.Context, url string) (*remote.ShareMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.byURL[url]
	if !ok {
		return nil, remote.ErrNotFound
	}
	sh := s.shares[name]
	return &remote.ShareMetadata{
		URL:            sh.URL,
		RootRecordName: name,
		Permission:     sh.Permission,
		Title:          sh.Title,
	}, nil
}

func (s *Store) AcceptShare(_ context.Context, meta *remote.ShareMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[meta.RootRecordName]; !ok {
		return remote.ErrNotFound
	}
	s.accepted[meta.RootRecordName] = true
	return nil
}

func copyRecord(r *remote.Record) *remote.Record {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	return &c
}
