// Package remotetest checks that a remote.Store honors the store contract.
package remotetest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/freezer/internal/remote"
)

// Run exercises every Store method against a fresh store from open.
func Run(t *testing.T, open func(t *testing.T) remote.Store) {
	t.Helper()
	t.Run("RecordRoundTrip", func(t *testing.T) { testRecordRoundTrip(t, open(t)) })
	t.Run("RecordNotFound", func(t *testing.T) { testRecordNotFound(t, open(t)) })
	t.Run("SubscriptionCreateOnly", func(t *testing.T) { testSubscriptionCreateOnly(t, open(t)) })
	t.Run("ShareLifecycle", func(t *testing.T) { testShareLifecycle(t, open(t)) })
	t.Run("ShareMetadataUnknownURL", func(t *testing.T) { testShareMetadataUnknown(t, open(t)) })
}

func record(name, payload string) *remote.Record {
	return &remote.Record{
		Name:          name,
		Payload:       []byte(payload),
		UpdatedAt:     time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC),
		HouseholdID:   "hh-1",
		HouseholdName: "Home Freezer",
	}
}

func testRecordRoundTrip(t *testing.T, s remote.Store) {
	ctx := context.Background()
	if err := s.SaveRecord(ctx, remote.ScopePrivate, record("freezer-a", `{"v":1}`)); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if err := s.SaveRecord(ctx, remote.ScopePrivate, record("freezer-a", `{"v":2}`)); err != nil {
		t.Fatalf("SaveRecord overwrite: %v", err)
	}

	got, err := s.FetchRecord(ctx, remote.ScopePrivate, "freezer-a")
	if err != nil {
		t.Fatalf("FetchRecord: %v", err)
	}
	if !bytes.Equal(got.Payload, []byte(`{"v":2}`)) {
		t.Errorf("payload = %s, want last write", got.Payload)
	}
	if got.HouseholdName != "Home Freezer" || got.HouseholdID != "hh-1" {
		t.Errorf("record fields = %+v", got)
	}
	if !got.UpdatedAt.Equal(time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("updated at = %s", got.UpdatedAt)
	}
}

func testRecordNotFound(t *testing.T, s remote.Store) {
	ctx := context.Background()
	if _, err := s.FetchRecord(ctx, remote.ScopePrivate, "missing"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("FetchRecord(missing) err = %v, want ErrNotFound", err)
	}

	// A private record is not visible in the shared scope until shared.
	if err := s.SaveRecord(ctx, remote.ScopePrivate, record("freezer-b", "x")); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if _, err := s.FetchRecord(ctx, remote.ScopeShared, "freezer-b"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("FetchRecord(shared) err = %v, want ErrNotFound", err)
	}
}

func testSubscriptionCreateOnly(t *testing.T, s remote.Store) {
	ctx := context.Background()
	if _, err := s.FetchSubscription(ctx, remote.ScopePrivate, remote.PrivateSubscriptionID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("FetchSubscription err = %v, want ErrNotFound", err)
	}

	sub := &remote.Subscription{ID: remote.PrivateSubscriptionID, Scope: remote.ScopePrivate}
	if err := s.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("SaveSubscription: %v", err)
	}
	if err := s.SaveSubscription(ctx, sub); !errors.Is(err, remote.ErrAlreadyExists) {
		t.Errorf("second SaveSubscription err = %v, want ErrAlreadyExists", err)
	}

	got, err := s.FetchSubscription(ctx, remote.ScopePrivate, remote.PrivateSubscriptionID)
	if err != nil {
		t.Fatalf("FetchSubscription: %v", err)
	}
	if got.ID != sub.ID || got.Scope != remote.ScopePrivate {
		t.Errorf("subscription = %+v", got)
	}

	// Same id in the other scope is a different subscription.
	if _, err := s.FetchSubscription(ctx, remote.ScopeShared, remote.PrivateSubscriptionID); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("FetchSubscription(shared) err = %v, want ErrNotFound", err)
	}
}

func testShareLifecycle(t *testing.T, s remote.Store) {
	ctx := context.Background()
	root := record("freezer-c", `{"v":1}`)

	if _, err := s.FetchShare(ctx, root.Name); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("FetchShare err = %v, want ErrNotFound", err)
	}

	share, err := s.SaveShare(ctx, root, &remote.Share{Permission: remote.PermissionReadWrite, Title: "Home Freezer"})
	if err != nil {
		t.Fatalf("SaveShare: %v", err)
	}
	if share.URL == "" {
		t.Fatal("SaveShare returned empty URL")
	}
	if share.RecordName != root.Name {
		t.Errorf("share record = %q, want %q", share.RecordName, root.Name)
	}

	fetched, err := s.FetchShare(ctx, root.Name)
	if err != nil {
		t.Fatalf("FetchShare: %v", err)
	}
	if fetched.URL != share.URL || fetched.Permission != remote.PermissionReadWrite {
		t.Errorf("fetched share = %+v, want %+v", fetched, share)
	}

	meta, err := s.FetchShareMetadata(ctx, share.URL)
	if err != nil {
		t.Fatalf("FetchShareMetadata: %v", err)
	}
	if meta.RootRecordName != root.Name || meta.Title != "Home Freezer" {
		t.Errorf("metadata = %+v", meta)
	}

	if err := s.AcceptShare(ctx, meta); err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}

	got, err := s.FetchRecord(ctx, remote.ScopeShared, root.Name)
	if err != nil {
		t.Fatalf("FetchRecord(shared): %v", err)
	}
	if !bytes.Equal(got.Payload, root.Payload) {
		t.Errorf("shared payload = %s", got.Payload)
	}

	if err := s.SaveRecord(ctx, remote.ScopeShared, record(root.Name, `{"v":2}`)); err != nil {
		t.Fatalf("SaveRecord(shared): %v", err)
	}
	got, err = s.FetchRecord(ctx, remote.ScopePrivate, root.Name)
	if err != nil {
		t.Fatalf("FetchRecord(private): %v", err)
	}
	if string(got.Payload) != `{"v":2}` {
		t.Errorf("owner sees payload %s, want shared write", got.Payload)
	}
}

func testShareMetadataUnknown(t *testing.T, s remote.Store) {
	_, err := s.FetchShareMetadata(context.Background(), "https://example.invalid/share/nope")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("FetchShareMetadata err = %v, want ErrNotFound", err)
	}
}
