package activityhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-accounts/internal/auth"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the activity listing, statistics and exports.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/", h.handleIndex)
	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAuthenticated, h.guard.Require(rbac.ActionReadStatistics))
		gr.Get("/users_stats", h.handleUsersStats)
		gr.Get("/pages_stats", h.handlePagesStats)
		gr.With(limiter).Get("/user_export.csv", h.handleUserExport)
		gr.With(limiter).Get("/pages_export.csv", h.handlePageExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
