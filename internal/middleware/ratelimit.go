package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/freezer/internal/auth"
)

// anonymousLabel is the client label given to requests when the hub runs
// without API keys.
const anonymousLabel = "anonymous"

// RealIP returns the client address, preferring X-Real-IP, then the first
// X-Forwarded-For hop, then RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientKey identifies who a write is charged to: the API client that
// authenticated it, or the remote address for anonymous hubs.
func ClientKey(r *http.Request) string {
	if label := auth.Label(r.Context()); label != "" && label != anonymousLabel {
		return "client:" + label
	}
	return "ip:" + RealIP(r)
}

type window struct {
	writes  int
	resetAt time.Time
}

// WriteLimiter caps how many writes each hub client may make per window.
type WriteLimiter struct {
	limit      int
	period     time.Duration
	now        func() time.Time
	onThrottle func(key string)

	mu      sync.Mutex
	clients map[string]*window
}

type LimiterOption func(*WriteLimiter)

func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *WriteLimiter) { l.now = now }
}

// OnThrottle registers fn to run for every rejected write.
func OnThrottle(fn func(key string)) LimiterOption {
	return func(l *WriteLimiter) { l.onThrottle = fn }
}

func NewWriteLimiter(limit int, period time.Duration, opts ...LimiterOption) *WriteLimiter {
	l := &WriteLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		clients: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Take charges one write to key. Over the limit it reports false and how
// long until the key's window resets.
func (l *WriteLimiter) Take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || !now.Before(w.resetAt) {
		l.clients[key] = &window{writes: 1, resetAt: now.Add(l.period)}
		return true, 0
	}
	if w.writes >= l.limit {
		return false, w.resetAt.Sub(now)
	}
	w.writes++
	return true, 0
}

// Cleanup drops windows that have expired and reports how many it removed.
func (l *WriteLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Limit wraps a write handler. It must run inside RequireAPIKey so the
// client is known.
func (l *WriteLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)
		ok, wait := l.Take(key)
		if !ok {
			if l.onThrottle != nil {
				l.onThrottle(key)
			}
			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			http.Error(w, "write limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
