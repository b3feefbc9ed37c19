package middleware

import (
	"encoding/json"
	"net/http"

	"paydesk/pkg/models"
)

// SessionSource reports the current client session
type SessionSource interface {
	Get() models.Session
}

// RequireAuthAPI answers 401 JSON to signed-out callers of API routes
func RequireAuthAPI(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.Get().IsAuthenticated {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
