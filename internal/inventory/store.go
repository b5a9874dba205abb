// Package inventory is the single in-memory owner of the household document.
// Every mutation checks the current user's role, validates its input, applies
// the change, repoints dangling references and saves through a repository.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
	"github.com/dukerupert/freezer/internal/reminder"
	"github.com/dukerupert/freezer/internal/repository"
)

var (
	// ErrForbidden is returned when the current user's role does not allow
	// the operation.
	ErrForbidden = errors.New("not permitted")
	// ErrInvalid is returned for input that was refused.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
}

// Store serializes all access to the document. Rejected calls never change
// or save the document.
type Store struct {
	mu       sync.RWMutex
	doc      *model.Document
	repo     repository.Repository
	notifier reminder.Notifier
	lastReq  *reminder.Request
	now      func() time.Time
	newID    func() uuid.UUID
	logger   *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDs(newID func() uuid.UUID) Option {
	return func(s *Store) { s.newID = newID }
}

func WithNotifier(n reminder.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// New loads the document from repo. When nothing is stored yet a first-run
// document is created and saved. A loaded document is repaired and saved if
// the repair changed it.
func New(repo repository.Repository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:     repo,
		notifier: reminder.Nop{},
		now:      time.Now,
		newID:    uuid.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := repo.Load()
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		s.doc = model.NewDocument(s.now())
		s.save()
	} else {
		s.doc = doc
		if s.doc.Repair(s.now(), s.newID) {
			s.logger.Info("repaired loaded document")
			s.save()
		}
	}
	s.refreshReminder()
	return s, nil
}

// Document returns a copy of the current document.
func (s *Store) Document() *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// save persists the document. Failures are logged; the in-memory document
// stays authoritative for this process.
func (s *Store) save() {
	if err := s.repo.Save(s.doc); err != nil {
		s.logger.Error("save document", "error", err)
	}
}

func (s *Store) saveAndRefresh() {
	s.save()
	s.refreshReminder()
}

func (s *Store) requireEdit() error {
	if !s.doc.CurrentRole().CanEditContent() {
		return fmt.Errorf("%w: %s cannot edit freezer content", ErrForbidden, s.doc.CurrentRole().Label())
	}
	return nil
}

func (s *Store) requireManage() error {
	if !s.doc.CurrentRole().CanManageMembers() {
		return fmt.Errorf("%w: only owners can manage the household", ErrForbidden)
	}
	return nil
}

// refreshReminder replaces the scheduled reminder when the overdue count or
// the notification hour changed.
func (s *Store) refreshReminder() {
	req := reminder.Request{
		OverdueCount: len(s.overdueItems(s.now())),
		Hour:         model.ClampHour(s.doc.Settings.NotificationHour),
	}
	if s.lastReq != nil && *s.lastReq == req {
		return
	}
	s.notifier.Clear()
	if req.OverdueCount > 0 {
		s.notifier.Schedule(req)
	}
	s.lastReq = &req
}

// ReloadIfChanged replaces the in-memory document with the stored one when
// they differ. It reports whether a reload happened.
func (s *Store) ReloadIfChanged() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() (bool, error) {
	loaded, err := s.repo.Load()
	if err != nil {
		return false, fmt.Errorf("reload document: %w", err)
	}
	if loaded == nil {
		return false, nil
	}

	current, err := model.Encode(s.doc)
	if err != nil {
		return false, err
	}
	next, err := model.Encode(loaded)
	if err != nil {
		return false, err
	}
	if bytes.Equal(current, next) {
		return false, nil
	}

	s.doc = loaded
	if s.doc.Repair(s.now(), s.newID) {
		s.save()
	}
	s.refreshReminder()
	s.logger.Info("document reloaded", "items", len(s.doc.Items))
	return true, nil
}

// HandleRemoteChange pulls the remote copy and reloads it. Both steps run
// under the write lock so no mutation interleaves. A sync error is returned
// after the reload has still been attempted.
func (s *Store) HandleRemoteChange(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	syncErr := s.repo.SyncFromRemote(ctx)
	if syncErr != nil {
		s.logger.Warn("sync from remote", "error", syncErr)
	}
	changed, err := s.reloadLocked()
	return changed, errors.Join(syncErr, err)
}

func invalidSelf(action string) error {
	return fmt.Errorf("%w: you cannot %s", ErrForbidden, action)
}
