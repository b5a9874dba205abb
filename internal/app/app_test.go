package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/freezer/internal/auth"
	"github.com/dukerupert/freezer/internal/config"
	"github.com/dukerupert/freezer/internal/hub"
	"github.com/dukerupert/freezer/internal/inventory"
	"github.com/dukerupert/freezer/internal/model"
	"github.com/dukerupert/freezer/internal/remote"
	"github.com/dukerupert/freezer/internal/remote/memory"
	"github.com/dukerupert/freezer/internal/sharing"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:       "debug",
		DataDir:        t.TempDir(),
		CacheFile:      "freezer-data.json",
		ShareStateFile: "share-state.json",
		Remote: config.RemoteConfig{
			Driver:      driver,
			SyncTimeout: 2 * time.Second,
			PushTimeout: 2 * time.Second,
		},
	}
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(cfg, slog.Default(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.Close(ctx)
	})
	return a
}

func onboard(t *testing.T, a *App) {
	t.Helper()
	if err := a.Store.CompleteOnboarding([]model.DrawerDraft{{Name: "Top"}, {Name: "Bottom"}}, 6); err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDisabledRemote(t *testing.T) {
	a := newApp(t, testConfig(t, config.DriverDisabled))
	onboard(t, a)

	if a.RemoteEnabled() {
		t.Error("remote should be disabled")
	}
	_, err := a.CreateShareURL(context.Background())
	var unavailable *sharing.UnavailableError
	if !errors.As(err, &unavailable) || unavailable.Reason != sharing.DisabledReason {
		t.Errorf("err = %v, want UnavailableError", err)
	}
	if changed, err := a.Sync(context.Background()); changed || err != nil {
		t.Errorf("Sync = %v, %v", changed, err)
	}
}

func TestReopenKeepsDocument(t *testing.T) {
	cfg := testConfig(t, config.DriverDisabled)
	a := newApp(t, cfg)
	onboard(t, a)
	if _, err := a.Store.AddItem(inventory.NewItem{Name: "Peas"}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	b := newApp(t, cfg)
	if got := len(b.Store.Items()); got != 1 {
		t.Errorf("items after reopen = %d, want 1", got)
	}
}

func TestShareBetweenDevices(t *testing.T) {
	ctx := context.Background()
	shared := memory.New("")
	owner := newApp(t, testConfig(t, config.DriverMemory), WithRemote(shared))
	onboard(t, owner)
	if _, err := owner.Store.AddItem(inventory.NewItem{Name: "Chicken"}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	url, err := owner.CreateShareURL(ctx)
	if err != nil {
		t.Fatalf("CreateShareURL: %v", err)
	}
	again, err := owner.CreateShareURL(ctx)
	if err != nil || again != url {
		t.Errorf("second CreateShareURL = %q, %v; want %q", again, err, url)
	}

	guest := newApp(t, testConfig(t, config.DriverMemory), WithRemote(shared))
	acc, err := guest.AcceptShare(ctx, url)
	if err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}
	if acc.RootRecordName != remote.RecordName(owner.Store.Household().ID) {
		t.Errorf("root = %q", acc.RootRecordName)
	}
	if guest.AcceptedShare() != acc.RootRecordName {
		t.Error("accepted share not remembered")
	}
	if scope, _ := guest.ActiveRecord(); scope != remote.ScopeShared {
		t.Errorf("scope = %q, want shared", scope)
	}
	if got := guest.Store.Items(); len(got) != 1 || got[0].Name != "Chicken" {
		t.Fatalf("guest items = %+v", got)
	}

	if _, err := guest.Store.AddItem(inventory.NewItem{Name: "Peas"}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := guest.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	changed, err := owner.Sync(ctx)
	if err != nil || !changed {
		t.Fatalf("Sync = %v, %v", changed, err)
	}
	if got := len(owner.Store.Items()); got != 2 {
		t.Errorf("owner items = %d, want 2", got)
	}
}

func TestAcceptShareWithEmptyRoot(t *testing.T) {
	ctx := context.Background()
	shared := memory.New("")
	url, err := sharing.NewRemote(shared).CreateOrFetchShareURL(ctx, uuid.New(), "Cabin")
	if err != nil {
		t.Fatalf("CreateOrFetchShareURL: %v", err)
	}

	guest := newApp(t, testConfig(t, config.DriverMemory), WithRemote(shared))
	onboard(t, guest)
	if _, err := guest.AcceptShare(ctx, url); err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}
	if len(guest.Store.Drawers()) != 2 {
		t.Errorf("drawers = %d, want local document kept", len(guest.Store.Drawers()))
	}
}

func TestAcceptUnknownShare(t *testing.T) {
	a := newApp(t, testConfig(t, config.DriverMemory))
	if _, err := a.AcceptShare(context.Background(), "memory://share/nope"); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if a.AcceptedShare() != "" {
		t.Error("failed accept was remembered")
	}
}

func TestWatchPollsRemote(t *testing.T) {
	shared := memory.New("")
	owner := newApp(t, testConfig(t, config.DriverMemory), WithRemote(shared))
	onboard(t, owner)
	url, err := owner.CreateShareURL(context.Background())
	if err != nil {
		t.Fatalf("CreateShareURL: %v", err)
	}

	guest := newApp(t, testConfig(t, config.DriverMemory), WithRemote(shared))
	if _, err := guest.AcceptShare(context.Background(), url); err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guest.Watch(ctx, 20*time.Millisecond) }()

	owner.Store.AddItem(inventory.NewItem{Name: "Salmon"})
	waitFor(t, "guest to see the new item", func() bool { return len(guest.Store.Items()) == 1 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}

func TestWatchFollowsHubChangeFeed(t *testing.T) {
	keys, err := auth.ParseKeys("phone=secret")
	if err != nil {
		t.Fatalf("ParseKeys: %v", err)
	}
	srv := hub.New(memory.New(""), keys, slog.Default())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	hubConfig := func() *config.Config {
		cfg := testConfig(t, config.DriverHub)
		cfg.Remote.Hub = config.RemoteHub{URL: ts.URL, APIKey: "secret"}
		return cfg
	}

	owner := newApp(t, hubConfig())
	onboard(t, owner)
	url, err := owner.CreateShareURL(context.Background())
	if err != nil {
		t.Fatalf("CreateShareURL: %v", err)
	}

	guest := newApp(t, hubConfig())
	if _, err := guest.AcceptShare(context.Background(), url); err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guest.Watch(ctx, time.Hour) }()
	waitFor(t, "listener to connect", func() bool { return srv.Hub().ClientCount() > 0 })

	owner.Store.AddItem(inventory.NewItem{Name: "Cod"})
	if err := owner.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitFor(t, "guest to see the new item", func() bool { return len(guest.Store.Items()) == 1 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}
