package hub

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/freezer/internal/notify"
	"github.com/dukerupert/freezer/internal/remote"
)

type metrics struct {
	requests     *prometheus.CounterVec
	recordsSaved *prometheus.CounterVec
	sharesSaved  prometheus.Counter
	accepted     prometheus.Counter
	throttled    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, hub *notify.Hub) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freezerhub_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		recordsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freezerhub_records_saved_total",
			Help: "Household records written, by scope.",
		}, []string{"scope"}),
		sharesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freezerhub_shares_saved_total",
			Help: "Share links created or refreshed.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freezerhub_shares_accepted_total",
			Help: "Share links accepted by a device.",
		}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freezerhub_writes_throttled_total",
			Help: "Writes refused by the per-client limit, by key kind.",
		}, []string{"kind"}),
	}
	clients := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freezerhub_change_clients",
		Help: "Connected change feed clients.",
	}, func() float64 { return float64(hub.ClientCount()) })

	reg.MustRegister(m.requests, m.recordsSaved, m.sharesSaved, m.accepted, m.throttled, clients)
	return m
}

func (m *metrics) recordSaved(scope remote.Scope) {
	m.recordsSaved.WithLabelValues(string(scope)).Inc()
}

// writeThrottled counts a refused write. Keys are "client:<label>" or
// "ip:<addr>"; only the kind is used as a label.
func (m *metrics) writeThrottled(key string) {
	kind, _, _ := strings.Cut(key, ":")
	m.throttled.WithLabelValues(kind).Inc()
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (r *codeRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets the websocket upgrade reach the underlying hijacker.
func (r *codeRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
	})
}
