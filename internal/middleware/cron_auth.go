package middleware

import (
	"crypto/subtle"
	"net/http"

	"drayage-backend/pkg/utils"
)

// CronAuth guards the scheduled-trigger endpoints (poll, reconcile, DLQ
// retry, digest) with a shared token carried in the X-Cron-Token header.
// An empty configured token disables the endpoints entirely.
func CronAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				utils.Error(w, http.StatusForbidden, "cron endpoints disabled")
				return
			}
			provided := r.Header.Get("X-Cron-Token")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				utils.Error(w, http.StatusUnauthorized, "invalid cron token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
