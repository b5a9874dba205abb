package app

import (
	"context"
	"time"

	"github.com/dukerupert/freezer/internal/config"
	"github.com/dukerupert/freezer/internal/notify"
	"github.com/dukerupert/freezer/internal/remote"
)

// DefaultPollInterval is how often Watch re-fetches from remote stores that
// have no change feed.
const DefaultPollInterval = time.Minute

// Watch keeps the device current until ctx is done. It registers change
// subscriptions, follows the hub change feed (or polls other remote stores)
// and runs the daily reminder when web push is configured.
func (a *App) Watch(ctx context.Context, pollInterval time.Duration) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
		defer a.scheduler.Stop()
	}
	if a.synced == nil {
		<-ctx.Done()
		return nil
	}

	if err := a.Repo.EnsureSubscriptions(ctx); err != nil {
		a.logger.Warn("ensure subscriptions", "error", err)
	}
	a.handleChange(ctx)

	if a.cfg.Remote.Driver == config.DriverHub {
		l := notify.NewListener(notify.ListenerConfig{
			HubURL: a.cfg.Remote.Hub.URL,
			APIKey: a.cfg.Remote.Hub.APIKey,
			Scopes: []remote.Scope{remote.ScopePrivate, remote.ScopeShared},
		}, a.onSignal, a.logger.With("component", "listener"))
		l.Start(ctx)
		defer l.Stop()
		<-ctx.Done()
		return nil
	}

	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.handleChange(ctx)
		}
	}
}

// onSignal reacts to change signals for the record this device uses.
func (a *App) onSignal(ctx context.Context, msg notify.Message) {
	scope, name := a.ActiveRecord()
	if msg.RecordName != name || msg.Scope != scope {
		return
	}
	a.handleChange(ctx)
}

func (a *App) handleChange(ctx context.Context) {
	changed, err := a.Sync(ctx)
	if err != nil {
		a.logger.Warn("remote change", "error", err)
		return
	}
	if changed {
		a.logger.Info("household updated from remote")
	}
}
