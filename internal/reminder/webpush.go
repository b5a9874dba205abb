package reminder

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// Subscription is a browser push endpoint.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// WebPushConfig holds VAPID keys and where device subscriptions are kept.
type WebPushConfig struct {
	VAPIDPublicKey    string
	VAPIDPrivateKey   string
	Subscriber        string
	SubscriptionsFile string
}

// WebPush sends reminders to every registered subscription.
type WebPush struct {
	mu     sync.Mutex
	cfg    WebPushConfig
	subs   []Subscription
	logger *slog.Logger
}

// NewWebPush loads the subscription list. A missing file means no devices.
func NewWebPush(cfg WebPushConfig, logger *slog.Logger) (*WebPush, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("vapid keys are required")
	}
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:noreply@example.com"
	}
	w := &WebPush{cfg: cfg, logger: logger}
	if cfg.SubscriptionsFile == "" {
		return w, nil
	}

	data, err := os.ReadFile(cfg.SubscriptionsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read subscriptions: %w", err)
	}
	if err := json.Unmarshal(data, &w.subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return w, nil
}

// Subscriptions returns a copy of the registered devices.
func (w *WebPush) Subscriptions() []Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.subs)
}

// AddSubscription registers a device, replacing one with the same endpoint.
func (w *WebPush) AddSubscription(sub Subscription) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = slices.DeleteFunc(w.subs, func(s Subscription) bool { return s.Endpoint == sub.Endpoint })
	w.subs = append(w.subs, sub)
	return w.persist()
}

func (w *WebPush) remove(endpoint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = slices.DeleteFunc(w.subs, func(s Subscription) bool { return s.Endpoint == endpoint })
	return w.persist()
}

func (w *WebPush) persist() error {
	if w.cfg.SubscriptionsFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(w.subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(w.cfg.SubscriptionsFile), 0o700); err != nil {
		return fmt.Errorf("create subscriptions dir: %w", err)
	}
	if err := os.WriteFile(w.cfg.SubscriptionsFile, data, 0o600); err != nil {
		return fmt.Errorf("write subscriptions: %w", err)
	}
	return nil
}

// Send delivers payload to every subscription. Expired subscriptions are
// dropped; other failures are joined into the returned error.
func (w *WebPush) Send(ctx context.Context, payload Payload) error {
	var errs []error
	for _, sub := range w.Subscriptions() {
		err := w.sendOne(ctx, sub, payload)
		switch {
		case errors.Is(err, ErrExpired):
			w.logger.Info("dropping expired push subscription", "endpoint", sub.Endpoint)
			if err := w.remove(sub.Endpoint); err != nil {
				errs = append(errs, err)
			}
		case err != nil:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *WebPush) sendOne(ctx context.Context, sub Subscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		Subscriber:      w.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.FillBytes(make([]byte, 32)))

	return publicKey, privateKey, nil
}
