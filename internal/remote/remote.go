// Package remote defines the shared store that household documents are
// synced through. The store is a dumb record store with share links and
// change subscriptions; it never merges or validates payloads.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record, subscription or share does not exist.
	ErrNotFound = errors.New("remote: not found")
	// ErrAlreadyExists is returned when creating a subscription that exists.
	ErrAlreadyExists = errors.New("remote: already exists")
)

// Scope selects the database a record lives in: the device owner's private
// records or records shared with them.
type Scope string

const (
	ScopePrivate Scope = "private"
	ScopeShared  Scope = "shared"
)

// ParseScope validates a scope string.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopePrivate, ScopeShared:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

const (
	// RecordType is the type of every household root record.
	RecordType = "FreezerRoot"

	PrivateSubscriptionID = "freezer.private.database.subscription"
	SharedSubscriptionID  = "freezer.shared.database.subscription"

	defaultRecordName = "freezer-default"
)

// RecordName is the root record name for a household.
func RecordName(householdID uuid.UUID) string {
	if householdID == uuid.Nil {
		return defaultRecordName
	}
	return "freezer-" + strings.ToLower(householdID.String())
}

// Record is one household root. Payload is the opaque encoded document;
// the remaining fields are denormalized for discovery.
type Record struct {
	Name          string    `json:"name"`
	Payload       []byte    `json:"payload"`
	UpdatedAt     time.Time `json:"updated_at"`
	HouseholdID   string    `json:"household_id"`
	HouseholdName string    `json:"household_name"`
}

// Subscription asks the store to signal changes in a scope.
type Subscription struct {
	ID        string    `json:"id"`
	Scope     Scope     `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
}

type Permission string

const (
	PermissionReadOnly  Permission = "read_only"
	PermissionReadWrite Permission = "read_write"
)

// Share is a public link granting access to a root record.
type Share struct {
	RecordName string     `json:"record_name"`
	URL        string     `json:"url"`
	Permission Permission `json:"permission"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ShareMetadata is what a share URL resolves to before it is accepted.
type ShareMetadata struct {
	URL            string     `json:"url"`
	RootRecordName string     `json:"root_record_name"`
	Permission     Permission `json:"permission"`
	Title          string     `json:"title"`
}

// Store is the remote record store.
type Store interface {
	// FetchRecord returns ErrNotFound when the record does not exist in scope.
	FetchRecord(ctx context.Context, scope Scope, name string) (*Record, error)
	// SaveRecord overwrites the record.
	SaveRecord(ctx context.Context, scope Scope, rec *Record) error

	FetchSubscription(ctx context.Context, scope Scope, id string) (*Subscription, error)
	// SaveSubscription creates a subscription and returns ErrAlreadyExists
	// when one with the same id exists in scope.
	SaveSubscription(ctx context.Context, sub *Subscription) error

	// FetchShare returns the share attached to a root record, or ErrNotFound.
	FetchShare(ctx context.Context, recordName string) (*Share, error)
	// SaveShare saves root and attaches share to it. The store assigns the URL.
	SaveShare(ctx context.Context, root *Record, share *Share) (*Share, error)
	FetchShareMetadata(ctx context.Context, url string) (*ShareMetadata, error)
	// AcceptShare makes the shared root readable in ScopeShared.
	AcceptShare(ctx context.Context, meta *ShareMetadata) error
}
