package seal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/freezer/internal/remote"
	"github.com/dukerupert/freezer/internal/remote/memory"
	"github.com/dukerupert/freezer/internal/remote/remotetest"
)

func TestStoreContract(t *testing.T) {
	remotetest.Run(t, func(t *testing.T) remote.Store {
		return Wrap(memory.New(""), "correct horse")
	})
}

func TestWrapEmptyPassphrase(t *testing.T) {
	inner := memory.New("")
	if got := Wrap(inner, ""); got != remote.Store(inner) {
		t.Error("Wrap with empty passphrase should return the inner store")
	}
}

func TestPayloadIsEncryptedAtRest(t *testing.T) {
	inner := memory.New("")
	s := Wrap(inner, "correct horse")
	ctx := context.Background()
	plain := []byte(`{"household":"secret"}`)

	if err := s.SaveRecord(ctx, remote.ScopePrivate, &remote.Record{Name: "r", Payload: plain}); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	raw, err := inner.FetchRecord(ctx, remote.ScopePrivate, "r")
	if err != nil {
		t.Fatalf("inner FetchRecord: %v", err)
	}
	if bytes.Contains(raw.Payload, []byte("secret")) {
		t.Error("plaintext visible in stored payload")
	}
	if len(raw.Payload) != saltSize+nonceSize+len(plain)+16 {
		t.Errorf("sealed length = %d", len(raw.Payload))
	}

	// A different passphrase cannot open it.
	other := Wrap(inner, "wrong")
	if _, err := other.FetchRecord(ctx, remote.ScopePrivate, "r"); err == nil {
		t.Error("expected error opening with wrong passphrase")
	}
}

func TestOpenTooShort(t *testing.T) {
	inner := memory.New("")
	ctx := context.Background()
	inner.SaveRecord(ctx, remote.ScopePrivate, &remote.Record{Name: "r", Payload: []byte("short")})

	_, err := Wrap(inner, "pw").FetchRecord(ctx, remote.ScopePrivate, "r")
	if !errors.Is(err, ErrTooShort) {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}
