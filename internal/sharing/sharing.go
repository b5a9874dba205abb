// Package sharing creates and accepts household share links.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/remote"
)

// DisabledReason is reported when no remote store is configured.
const DisabledReason = "Cloud sharing is not configured for this build."

// ErrMissingShareURL is returned when the store saved a share without a link.
var ErrMissingShareURL = errors.New("could not create a share URL")

// UnavailableError is returned by every call on a Disabled service.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return e.Reason
}

// Acceptance identifies the shared root a device joined. Callers persist
// RootRecordName so later loads and saves target it.
type Acceptance struct {
	RootRecordName string
	Title          string
}

type Service interface {
	// CreateOrFetchShareURL returns the household's share link, creating it on
	// first use. Repeated calls return the same link.
	CreateOrFetchShareURL(ctx context.Context, householdID uuid.UUID, householdName string) (string, error)
	AcceptShare(ctx context.Context, shareURL string) (Acceptance, error)
}

// Remote shares through a remote.Store.
type Remote struct {
	store remote.Store
	now   func() time.Time
}

func NewRemote(store remote.Store) *Remote {
	return &Remote{store: store, now: time.Now}
}

func (r *Remote) CreateOrFetchShareURL(ctx context.Context, householdID uuid.UUID, householdName string) (string, error) {
	name := remote.RecordName(householdID)

	root, err := r.store.FetchRecord(ctx, remote.ScopePrivate, name)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		root = &remote.Record{Name: name, HouseholdID: householdID.String()}
	case err != nil:
		return "", fmt.Errorf("fetch root record: %w", err)
	}
	root.HouseholdName = householdName
	root.UpdatedAt = r.now().UTC()

	existing, err := r.store.FetchShare(ctx, name)
	switch {
	case err == nil && existing.URL != "":
		return existing.URL, nil
	case err != nil && !errors.Is(err, remote.ErrNotFound):
		return "", fmt.Errorf("fetch share: %w", err)
	}

	saved, err := r.store.SaveShare(ctx, root, &remote.Share{
		Permission: remote.PermissionReadWrite,
		Title:      householdName,
	})
	if err != nil {
		return "", fmt.Errorf("save share: %w", err)
	}
	if saved.URL == "" {
		return "", ErrMissingShareURL
	}
	return saved.URL, nil
}

func (r *Remote) AcceptShare(ctx context.Context, shareURL string) (Acceptance, error) {
	meta, err := r.store.FetchShareMetadata(ctx, shareURL)
	if err != nil {
		return Acceptance{}, fmt.Errorf("fetch share metadata: %w", err)
	}
	if err := r.store.AcceptShare(ctx, meta); err != nil {
		return Acceptance{}, fmt.Errorf("accept share: %w", err)
	}
	return Acceptance{RootRecordName: meta.RootRecordName, Title: meta.Title}, nil
}

// Disabled fails every call with an UnavailableError.
type Disabled struct {
	Reason string
}

func (d Disabled) err() error {
	reason := d.Reason
	if reason == "" {
		reason = DisabledReason
	}
	return &UnavailableError{Reason: reason}
}

func (d Disabled) CreateOrFetchShareURL(context.Context, uuid.UUID, string) (string, error) {
	return "", d.err()
}

func (d Disabled) AcceptShare(context.Context, string) (Acceptance, error) {
	return Acceptance{}, d.err()
}
