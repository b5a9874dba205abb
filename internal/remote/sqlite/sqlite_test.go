package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/freezer/internal/database"
	"github.com/dukerupert/freezer/internal/remote"
	"github.com/dukerupert/freezer/internal/remote/remotetest"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, "https://hub.test/share", []byte("test-secret"))
}

func TestStoreContract(t *testing.T) {
	remotetest.Run(t, func(t *testing.T) remote.Store {
		return setupStore(t)
	})
}

func TestShareURLIsSignedToken(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	sh, err := s.SaveShare(ctx, &remote.Record{Name: "freezer-x", Payload: []byte("{}")},
		&remote.Share{Permission: remote.PermissionReadWrite, Title: "Cabin"})
	if err != nil {
		t.Fatalf("SaveShare: %v", err)
	}
	if !strings.HasPrefix(sh.URL, "https://hub.test/share/") {
		t.Errorf("url = %q, want hub prefix", sh.URL)
	}
	if name, ok := s.recordFromURL(sh.URL); !ok || name != "freezer-x" {
		t.Errorf("recordFromURL = %q, %v", name, ok)
	}

	// A token signed with another secret is rejected.
	other := New(s.db, "https://hub.test/share", []byte("other-secret"))
	if _, err := other.FetchShareMetadata(ctx, sh.URL); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("FetchShareMetadata with wrong secret err = %v, want ErrNotFound", err)
	}
}

func TestSaveShareKeepsURL(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	root := &remote.Record{Name: "freezer-y", Payload: []byte("{}")}

	first, err := s.SaveShare(ctx, root, &remote.Share{Permission: remote.PermissionReadWrite, Title: "A"})
	if err != nil {
		t.Fatalf("SaveShare: %v", err)
	}
	second, err := s.SaveShare(ctx, root, &remote.Share{Permission: remote.PermissionReadWrite, Title: "B"})
	if err != nil {
		t.Fatalf("SaveShare again: %v", err)
	}
	if first.URL != second.URL {
		t.Errorf("url changed: %q -> %q", first.URL, second.URL)
	}
	if second.Title != "B" {
		t.Errorf("title = %q, want B", second.Title)
	}
}

func TestAcceptUnknownShare(t *testing.T) {
	s := setupStore(t)
	err := s.AcceptShare(context.Background(), &remote.ShareMetadata{URL: "x", RootRecordName: "nope"})
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("AcceptShare err = %v, want ErrNotFound", err)
	}
}
