package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/model"
	"github.com/dukerupert/freezer/internal/remote"
)

// Options tunes a Synced repository.
type Options struct {
	SyncTimeout time.Duration
	PushTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

func (o *Options) setDefaults() {
	if o.SyncTimeout == 0 {
		o.SyncTimeout = DefaultSyncTimeout
	}
	if o.PushTimeout == 0 {
		o.PushTimeout = DefaultPushTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type pushJob struct {
	scope  remote.Scope
	record remote.Record
}

// Synced reads and writes the local cache and mirrors every save to a remote
// store. Pushes run on one background goroutine in save order; a save that
// arrives while a push is in flight replaces any push still waiting.
type Synced struct {
	local *Local
	store remote.Store
	share *ShareContext
	opts  Options

	mu      sync.Mutex
	pending *pushJob
	busy    bool
	closed  bool
	idle    []chan struct{}

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSynced starts the background pusher. Call Close to stop it.
func NewSynced(local *Local, store remote.Store, share *ShareContext, opts Options) *Synced {
	opts.setDefaults()
	if share == nil {
		share, _ = OpenShareContext("")
	}
	s := &Synced{
		local: local,
		store: store,
		share: share,
		opts:  opts,
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Synced) Backend() Backend {
	return BackendRemote
}

func (s *Synced) Load() (*model.Document, error) {
	return s.local.Load()
}

func (s *Synced) LoadSnapshot() *model.Document {
	return s.local.LoadSnapshot()
}

// Save writes the local cache and queues a push. Push failures are logged,
// never returned.
func (s *Synced) Save(doc *model.Document) error {
	data, err := model.Encode(doc)
	if err != nil {
		return err
	}
	if err := s.local.write(data); err != nil {
		return err
	}

	job := &pushJob{
		scope: s.activeScope(),
		record: remote.Record{
			Name:          s.activeRecordName(doc),
			Payload:       data,
			UpdatedAt:     s.opts.Now().UTC(),
			HouseholdID:   doc.Household.ID.String(),
			HouseholdName: doc.Household.Name,
		},
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.opts.Logger.Warn("repository closed, push skipped", "record", job.record.Name)
		return nil
	}
	s.pending = job
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// ActiveScope reports which scope loads and saves target.
func (s *Synced) ActiveScope() remote.Scope {
	return s.activeScope()
}

// ActiveRecordName reports the record loads and saves target.
func (s *Synced) ActiveRecordName() string {
	return s.activeRecordName(nil)
}

func (s *Synced) activeScope() remote.Scope {
	if s.share.RootRecordName() != "" {
		return remote.ScopeShared
	}
	return remote.ScopePrivate
}

// activeRecordName prefers an accepted shared root, then the household of
// doc or of the cached document.
func (s *Synced) activeRecordName(doc *model.Document) string {
	if name := s.share.RootRecordName(); name != "" {
		return name
	}
	if doc == nil {
		doc = s.local.LoadSnapshot()
	}
	if doc == nil {
		return remote.RecordName(uuid.Nil)
	}
	return remote.RecordName(doc.Household.ID)
}

func (s *Synced) SyncFromRemote(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SyncTimeout)
	defer cancel()

	scope, name := s.activeScope(), s.activeRecordName(nil)
	rec, err := s.store.FetchRecord(ctx, scope, name)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		s.opts.Logger.Debug("no remote record", "scope", scope, "record", name)
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.opts.Logger.Debug("remote fetch timed out", "scope", scope, "record", name, "timeout", s.opts.SyncTimeout)
		return nil
	case err != nil:
		return fmt.Errorf("fetch remote record: %w", err)
	}

	if len(rec.Payload) == 0 {
		s.opts.Logger.Debug("remote record has no document yet", "scope", scope, "record", name)
		return nil
	}
	if _, err := model.Decode(rec.Payload); err != nil {
		return fmt.Errorf("decode remote record %s: %w", name, err)
	}
	if err := s.local.write(rec.Payload); err != nil {
		return fmt.Errorf("write remote record to cache: %w", err)
	}
	return nil
}

func (s *Synced) EnsureSubscriptions(ctx context.Context) error {
	return errors.Join(
		s.ensureSubscription(ctx, remote.ScopePrivate, remote.PrivateSubscriptionID),
		s.ensureSubscription(ctx, remote.ScopeShared, remote.SharedSubscriptionID),
	)
}

func (s *Synced) ensureSubscription(ctx context.Context, scope remote.Scope, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SyncTimeout)
	defer cancel()

	_, err := s.store.FetchSubscription(ctx, scope, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("fetch %s subscription: %w", scope, err)
	}

	sub := &remote.Subscription{ID: id, Scope: scope, CreatedAt: s.opts.Now().UTC()}
	err = s.store.SaveSubscription(ctx, sub)
	if err != nil && !errors.Is(err, remote.ErrAlreadyExists) {
		return fmt.Errorf("create %s subscription: %w", scope, err)
	}
	return nil
}

// Flush waits until every queued push has been attempted.
func (s *Synced) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == nil && !s.busy {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.idle = append(s.idle, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close pushes anything still queued and stops the pusher.
func (s *Synced) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.quit)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synced) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.quit:
			s.drain()
			return
		}
	}
}

func (s *Synced) drain() {
	for {
		s.mu.Lock()
		job := s.pending
		s.pending = nil
		if job == nil {
			s.busy = false
			for _, ch := range s.idle {
				close(ch)
			}
			s.idle = nil
			s.mu.Unlock()
			return
		}
		s.busy = true
		s.mu.Unlock()

		s.push(job)
	}
}

func (s *Synced) push(job *pushJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PushTimeout)
	defer cancel()

	if err := s.store.SaveRecord(ctx, job.scope, &job.record); err != nil {
		s.opts.Logger.Warn("push to remote failed", "scope", job.scope, "record", job.record.Name, "error", err)
		return
	}
	s.opts.Logger.Debug("pushed to remote", "scope", job.scope, "record", job.record.Name, "bytes", len(job.record.Payload))
}
