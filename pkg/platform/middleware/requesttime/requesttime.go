// Package requesttime pins a single "now" per HTTP request so every timestamp
// written while serving it (issued_at, revoked_at, event time) agrees.
package requesttime

import (
	"net/http"
	"time"

	"shebuilds/pkg/requestcontext"
)

// Middleware stamps the request context with the arrival time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
