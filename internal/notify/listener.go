package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/freezer/internal/remote"
)

const (
	minBackoff = time.Second
	maxBackoff = time.Minute
)

// ListenerConfig describes where a Listener connects.
type ListenerConfig struct {
	// HubURL is the hub base URL (http or https).
	HubURL string
	APIKey string
	Scopes []remote.Scope
}

// Listener keeps a WebSocket open to the hub and invokes a callback for
// every change signal, reconnecting with capped exponential backoff.
type Listener struct {
	mu       sync.RWMutex
	cfg      ListenerConfig
	onChange func(context.Context, Message)
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewListener creates a listener. onChange runs on the listener goroutine,
// one signal at a time.
func NewListener(cfg ListenerConfig, onChange func(context.Context, Message), logger *slog.Logger) *Listener {
	return &Listener{cfg: cfg, onChange: onChange, logger: logger}
}

// ChangesURL converts a hub base URL to its WebSocket change-feed URL.
func ChangesURL(hubURL string, scopes []remote.Scope) (string, error) {
	u, err := url.Parse(strings.TrimRight(hubURL, "/") + "/v1/changes")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	q := u.Query()
	for _, s := range scopes {
		q.Add("scope", string(s))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Start begins the listen loop.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		backoff := minBackoff
		for {
			connected, err := l.listen(ctx)
			if ctx.Err() != nil {
				return
			}
			if connected {
				backoff = minBackoff
			}
			l.logger.Warn("change feed disconnected", "error", err, "retry_in", backoff)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}()
}

// Stop closes the connection and waits for the loop to exit.
func (l *Listener) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	done := l.done
	l.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// listen holds one connection until it fails. connected reports whether the
// dial succeeded.
func (l *Listener) listen(ctx context.Context) (connected bool, err error) {
	target, err := ChangesURL(l.cfg.HubURL, l.cfg.Scopes)
	if err != nil {
		return false, err
	}

	header := http.Header{}
	if l.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}
	conn, _, err := ws.Dial(ctx, target, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()
	l.logger.Info("change feed connected", "url", target)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.logger.Warn("bad change signal", "error", err)
			continue
		}
		l.onChange(ctx, msg)
	}
}
