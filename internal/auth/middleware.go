package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

const (
	// LoginRequiredFlashKey identifies the notice shown when a protected page
	// is requested without a login.
	LoginRequiredFlashKey = "auth.login.required"
	loginPath             = "/auth/login"
)

// IdentityResolver resolves the user bound to a session.
type IdentityResolver interface {
	Identity(ctx context.Context, id int64) (*rbac.Identity, error)
}

// ResolveActor places the current rbac.Actor in the request context. The
// actor is anonymous when the session carries no user or the user no longer
// exists; any other lookup failure ends the request with a 500.
func ResolveActor(resolver IdentityResolver, policy *rbac.Policy, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := rbac.Anonymous(policy)
			if sess := shared.SessionFromContext(ctx); sess != nil && sess.User() != "" {
				id, err := strconv.ParseInt(sess.User(), 10, 64)
				if err == nil {
					identity, err := resolver.Identity(ctx, id)
					switch {
					case err == nil:
						actor = rbac.Authenticated(policy, *identity)
					case errors.Is(err, shared.ErrNotFound):
						sess.SetUser("")
					default:
						logger.Error("resolve actor", slog.Int64("user_id", id), slog.Any("error", err))
						http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
						return
					}
				} else {
					sess.SetUser("")
				}
			}
			next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(ctx, actor)))
		})
	}
}

// RequireAuthenticated redirects anonymous actors to the login page and
// remembers the requested path in the next parameter.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rbac.ActorFromContext(r.Context()).IsAuthenticated() {
			next.ServeHTTP(w, r)
			return
		}
		shared.Flash(r.Context(), shared.FlashWarning, LoginRequiredFlashKey, "Please log in to access this page")
		target := loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// SafeNext returns next when it is a local path and fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
