package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestEmailSend(t *testing.T) {
	var (
		mu       sync.Mutex
		received []postmarkEmail
		gotToken string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m postmarkEmail
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		received = append(received, m)
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		mu.Unlock()
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	e, err := NewEmail(EmailConfig{
		ServerToken: "test-token",
		From:        "freezer@example.com",
		To:          []string{"a@example.com", "b@example.com"},
		Endpoint:    server.URL,
	}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}

	if err := e.Send(context.Background(), PayloadFor(Request{OverdueCount: 2, Hour: 9})); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if len(received) != 2 {
		t.Fatalf("emails = %d, want 2", len(received))
	}
	if received[0].Subject != Title || received[1].To != "b@example.com" {
		t.Errorf("email = %+v", received[0])
	}
	if received[0].TextBody != "2 items have been in the freezer longer than your limit." {
		t.Errorf("body = %q", received[0].TextBody)
	}
}

func TestEmailAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	e, _ := NewEmail(EmailConfig{ServerToken: "t", From: "f@example.com", To: []string{"a@example.com"}, Endpoint: server.URL})
	if err := e.Send(context.Background(), Payload{Title: "x"}); err == nil {
		t.Error("expected error for 422")
	}
}

func TestNewEmailRequiresConfig(t *testing.T) {
	if _, err := NewEmail(EmailConfig{From: "f@example.com", To: []string{"a"}}); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewEmail(EmailConfig{ServerToken: "t"}); err == nil {
		t.Error("expected error without addresses")
	}
}

type sendFunc func(context.Context, Payload) error

func (f sendFunc) Send(ctx context.Context, p Payload) error { return f(ctx, p) }

func TestSendersJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	s := Senders{
		sendFunc(func(context.Context, Payload) error { calls++; return boom }),
		sendFunc(func(context.Context, Payload) error { calls++; return nil }),
	}
	if err := s.Send(context.Background(), Payload{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
