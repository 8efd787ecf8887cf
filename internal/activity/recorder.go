package activity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
)

// Recorder appends one activity record per request before the route runs.
// Requests whose path starts with one of skipPrefixes are not recorded. A
// failed append ends the request with a 500 so the request transaction is
// rolled back.
func Recorder(svc *Service, logger *slog.Logger, skipPrefixes ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if err := svc.Record(r.Context(), rbac.ActorFromContext(r.Context()), path); err != nil {
				logger.Error("record activity", slog.String("path", path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
