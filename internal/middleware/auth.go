package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/freezer/internal/auth"
)

// RequireAPIKey checks the bearer token against keys and stores the matching
// client in the request context. With no keys configured every request is
// let through as an anonymous client.
func RequireAPIKey(keys *auth.Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keys.Empty() {
				ctx := auth.WithClient(r.Context(), auth.Client{Label: anonymousLabel})
				reportClient(ctx)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				token = r.URL.Query().Get("api_key")
			}

			client, found := keys.Lookup(strings.TrimSpace(token))
			if !found {
				w.Header().Set("WWW-Authenticate", `Bearer realm="freezerhub"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithClient(r.Context(), client)
			reportClient(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
