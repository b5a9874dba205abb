package notify

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/freezer/internal/remote"
)

// Handler upgrades requests to WebSocket and runs them as Hub clients.
// Repeated "scope" query parameters restrict which signals are delivered.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var scopes []remote.Scope
		for _, raw := range r.URL.Query()["scope"] {
			scope, err := remote.ParseScope(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			scopes = append(scopes, scope)
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // devices connect from anywhere; the API key gates access
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, scopes...)
		client.Run(r.Context())
	}
}
