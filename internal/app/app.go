// Package app assembles the repository, sharing service, reminder delivery
// and state engine described by a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dukerupert/freezer/internal/config"
	"github.com/dukerupert/freezer/internal/inventory"
	"github.com/dukerupert/freezer/internal/reminder"
	"github.com/dukerupert/freezer/internal/remote"
	"github.com/dukerupert/freezer/internal/remote/httpstore"
	"github.com/dukerupert/freezer/internal/remote/memory"
	"github.com/dukerupert/freezer/internal/remote/s3store"
	"github.com/dukerupert/freezer/internal/remote/seal"
	"github.com/dukerupert/freezer/internal/repository"
	"github.com/dukerupert/freezer/internal/sharing"
)

// App is one device's view of a household.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	Repo    repository.Repository
	Store   *inventory.Store
	Sharing sharing.Service

	share     *repository.ShareContext
	synced    *repository.Synced
	webPush   *reminder.WebPush
	scheduler *reminder.Scheduler
}

type Option func(*options)

type options struct {
	remote remote.Store
	now    func() time.Time
}

// WithRemote uses store instead of the one the remote driver would open.
func WithRemote(store remote.Store) Option {
	return func(o *options) { o.remote = store }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the local cache, connects the configured remote store and loads
// the document.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, now: o.now}
	local := repository.NewLocal(cfg.CachePath(), logger.With("component", "repository"))

	if cfg.RemoteEnabled() {
		store := o.remote
		if store == nil {
			var err error
			if store, err = openRemote(cfg); err != nil {
				return nil, err
			}
		}
		store = seal.Wrap(store, cfg.Remote.Passphrase)

		share, err := repository.OpenShareContext(cfg.ShareStatePath())
		if err != nil {
			return nil, err
		}
		a.share = share
		a.synced = repository.NewSynced(local, store, share, repository.Options{
			SyncTimeout: cfg.Remote.SyncTimeout,
			PushTimeout: cfg.Remote.PushTimeout,
			Logger:      logger.With("component", "sync"),
			Now:         o.now,
		})
		a.Repo = a.synced
		a.Sharing = sharing.NewRemote(store)
	} else {
		a.Repo = local
		a.Sharing = sharing.Disabled{Reason: sharing.DisabledReason}
	}

	var senders reminder.Senders
	if cfg.Reminder.VAPIDPublicKey != "" && cfg.Reminder.VAPIDPrivateKey != "" {
		wp, err := reminder.NewWebPush(reminder.WebPushConfig{
			VAPIDPublicKey:    cfg.Reminder.VAPIDPublicKey,
			VAPIDPrivateKey:   cfg.Reminder.VAPIDPrivateKey,
			Subscriber:        cfg.Reminder.Subscriber,
			SubscriptionsFile: cfg.SubscriptionsPath(),
		}, logger.With("component", "webpush"))
		if err != nil {
			a.closeSynced()
			return nil, fmt.Errorf("set up web push: %w", err)
		}
		a.webPush = wp
		senders = append(senders, wp)
	}
	if cfg.Reminder.EmailEnabled() {
		email, err := reminder.NewEmail(reminder.EmailConfig{
			ServerToken: cfg.Reminder.PostmarkToken,
			From:        cfg.Reminder.EmailFrom,
			To:          cfg.Reminder.EmailTo,
		})
		if err != nil {
			a.closeSynced()
			return nil, fmt.Errorf("set up reminder email: %w", err)
		}
		senders = append(senders, email)
	}

	var notifier reminder.Notifier = reminder.Nop{}
	if len(senders) > 0 {
		a.scheduler = reminder.NewScheduler(senders, logger.With("component", "reminder"))
		notifier = a.scheduler
	}

	store, err := inventory.New(a.Repo,
		inventory.WithLogger(logger.With("component", "inventory")),
		inventory.WithClock(o.now),
		inventory.WithNotifier(notifier),
	)
	if err != nil {
		a.closeSynced()
		return nil, err
	}
	a.Store = store
	return a, nil
}

func openRemote(cfg *config.Config) (remote.Store, error) {
	switch cfg.Remote.Driver {
	case config.DriverMemory:
		return memory.New(""), nil
	case config.DriverHub:
		return httpstore.New(httpstore.Config{
			URL:     cfg.Remote.Hub.URL,
			APIKey:  cfg.Remote.Hub.APIKey,
			Timeout: cfg.Remote.PushTimeout,
		})
	case config.DriverS3:
		return s3store.New(s3store.Config{
			Endpoint:     cfg.Remote.S3.Endpoint,
			Bucket:       cfg.Remote.S3.Bucket,
			Region:       cfg.Remote.S3.Region,
			AccessKey:    cfg.Remote.S3.AccessKey,
			SecretKey:    cfg.Remote.S3.SecretKey,
			PathStyle:    cfg.Remote.S3.PathStyle,
			ShareBaseURL: cfg.Remote.S3.ShareBaseURL,
		})
	}
	return nil, fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
}

// RemoteEnabled reports whether saves are mirrored to a remote store.
func (a *App) RemoteEnabled() bool {
	return a.synced != nil
}

// WebPush returns the configured push sender, or nil.
func (a *App) WebPush() *reminder.WebPush {
	return a.webPush
}

// AcceptedShare returns the shared root this device joined, or "".
func (a *App) AcceptedShare() string {
	if a.share == nil {
		return ""
	}
	return a.share.RootRecordName()
}

// ActiveRecord describes where saves go.
func (a *App) ActiveRecord() (remote.Scope, string) {
	if a.synced == nil {
		return "", ""
	}
	return a.synced.ActiveScope(), a.synced.ActiveRecordName()
}

// CreateShareURL returns the household's share link. Pending pushes are
// flushed first so the shared root carries the current document.
func (a *App) CreateShareURL(ctx context.Context) (string, error) {
	if err := a.Flush(ctx); err != nil {
		return "", err
	}
	h := a.Store.Household()
	return a.Sharing.CreateOrFetchShareURL(ctx, h.ID, h.Name)
}

// AcceptShare joins the household behind shareURL: the accepted root is
// remembered, pulled into the local cache and loaded.
func (a *App) AcceptShare(ctx context.Context, shareURL string) (sharing.Acceptance, error) {
	acc, err := a.Sharing.AcceptShare(ctx, shareURL)
	if err != nil {
		return sharing.Acceptance{}, err
	}
	if acc.RootRecordName == "" {
		return sharing.Acceptance{}, errors.New("accepted share has no root record")
	}
	if err := a.share.SetRootRecordName(acc.RootRecordName, a.now()); err != nil {
		return sharing.Acceptance{}, err
	}
	a.logger.Info("share accepted", "root", acc.RootRecordName, "title", acc.Title)

	if _, err := a.Store.HandleRemoteChange(ctx); err != nil {
		return acc, fmt.Errorf("load shared household: %w", err)
	}
	return acc, nil
}

// LeaveShare forgets an accepted share. The device goes back to its own
// household record on the next save.
func (a *App) LeaveShare() error {
	if a.share == nil {
		return nil
	}
	return a.share.Clear()
}

// Sync pulls the remote document and reloads it when it changed. Queued
// pushes go out first so a pull never replaces a newer local save.
func (a *App) Sync(ctx context.Context) (bool, error) {
	if err := a.Flush(ctx); err != nil {
		return false, err
	}
	return a.Store.HandleRemoteChange(ctx)
}

// Flush waits for queued pushes.
func (a *App) Flush(ctx context.Context) error {
	if a.synced == nil {
		return nil
	}
	return a.synced.Flush(ctx)
}

// Close drains queued pushes and stops the pusher.
func (a *App) Close(ctx context.Context) error {
	if a.synced == nil {
		return nil
	}
	return a.synced.Close(ctx)
}

func (a *App) closeSynced() {
	if a.synced == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.synced.Close(ctx)
}
