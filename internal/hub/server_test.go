package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/freezer/internal/auth"
	"github.com/dukerupert/freezer/internal/notify"
	"github.com/dukerupert/freezer/internal/remote"
	"github.com/dukerupert/freezer/internal/remote/memory"
)

func setup(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	keys, err := auth.ParseKeys("phone=secret")
	if err != nil {
		t.Fatalf("ParseKeys: %v", err)
	}
	s := New(memory.New(""), keys, slog.Default())
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	_, srv := setup(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	_, srv := setup(t)
	resp, err := http.Get(srv.URL + "/v1/records/private/freezer-a")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestRecordPutGet(t *testing.T) {
	_, srv := setup(t)

	resp := do(t, "PUT", srv.URL+"/v1/records/private/freezer-a",
		`{"payload":"eyJ2IjoxfQ==","household_name":"Home Freezer"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = do(t, "GET", srv.URL+"/v1/records/private/freezer-a", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var rec remote.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(rec.Payload) != `{"v":1}` || rec.Name != "freezer-a" {
		t.Errorf("record = %+v", rec)
	}
}

func TestRecordBadScope(t *testing.T) {
	_, srv := setup(t)
	resp := do(t, "GET", srv.URL+"/v1/records/public/freezer-a", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRecordValidation(t *testing.T) {
	_, srv := setup(t)

	resp := do(t, "PUT", srv.URL+"/v1/records/private/freezer-a", `{"household_name":"x"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["payload"] != "is required" {
		t.Errorf("details = %v, want payload is required", body.Details)
	}

	resp = do(t, "PUT", srv.URL+"/v1/records/private/freezer-a", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestSubscriptionConflict(t *testing.T) {
	_, srv := setup(t)
	url := srv.URL + "/v1/subscriptions/private/" + remote.PrivateSubscriptionID

	if resp := do(t, "GET", url, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if resp := do(t, "PUT", url, ""); resp.StatusCode != http.StatusCreated {
		t.Errorf("first PUT status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if resp := do(t, "PUT", url, ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("second PUT status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestShareValidation(t *testing.T) {
	_, srv := setup(t)
	resp := do(t, "POST", srv.URL+"/v1/shares", `{"root":{"name":"freezer-a"},"share":{"permission":"admin"}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestShareMetadataRequiresURL(t *testing.T) {
	_, srv := setup(t)
	if resp := do(t, "GET", srv.URL+"/v1/share-metadata", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRecordSaveSignalsListeners(t *testing.T) {
	s, srv := setup(t)

	got := make(chan notify.Message, 4)
	l := notify.NewListener(notify.ListenerConfig{
		HubURL: srv.URL,
		APIKey: "secret",
		Scopes: []remote.Scope{remote.ScopePrivate},
	}, func(_ context.Context, m notify.Message) {
		got <- m
	}, slog.Default())
	l.Start(context.Background())
	defer l.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never connected")
		}
		time.Sleep(10 * time.Millisecond)
	}

	do(t, "PUT", srv.URL+"/v1/records/private/freezer-a", `{"payload":"eA=="}`)

	select {
	case m := <-got:
		if m.Type != notify.TypeRecordChanged || m.RecordName != "freezer-a" || m.Scope != remote.ScopePrivate {
			t.Errorf("message = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func TestMetrics(t *testing.T) {
	_, srv := setup(t)
	do(t, "PUT", srv.URL+"/v1/records/private/freezer-a", `{"payload":"eA=="}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`freezerhub_records_saved_total{scope="private"} 1`,
		"freezerhub_change_clients 0",
		"freezerhub_http_requests_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestWritesLimitedPerClient(t *testing.T) {
	keys, err := auth.ParseKeys("phone=secret,tablet=other")
	if err != nil {
		t.Fatalf("ParseKeys: %v", err)
	}
	s := New(memory.New(""), keys, slog.Default(), WithWriteLimit(2, time.Minute))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	url := srv.URL + "/v1/records/private/freezer-a"
	for i := 0; i < 2; i++ {
		if resp := do(t, "PUT", url, `{"payload":"eA=="}`); resp.StatusCode != http.StatusNoContent {
			t.Fatalf("write %d: status = %d", i+1, resp.StatusCode)
		}
	}
	resp := do(t, "PUT", url, `{"payload":"eA=="}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("3rd write: status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if resp := do(t, "GET", url, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("read after limit: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	req, _ := http.NewRequest("PUT", url, strings.NewReader(`{"payload":"eA=="}`))
	req.Header.Set("Authorization", "Bearer other")
	other, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT as tablet: %v", err)
	}
	other.Body.Close()
	if other.StatusCode != http.StatusNoContent {
		t.Errorf("other client: status = %d, want %d", other.StatusCode, http.StatusNoContent)
	}

	metrics, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metrics.Body.Close()
	body, _ := io.ReadAll(metrics.Body)
	if want := `freezerhub_writes_throttled_total{kind="client"} 1`; !strings.Contains(string(body), want) {
		t.Errorf("metrics missing %q", want)
	}
}
