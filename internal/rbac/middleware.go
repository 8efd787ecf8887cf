package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

const (
	// DeniedFlashKey identifies the notice shown after an authorization denial.
	DeniedFlashKey = "rbac.denied"
	deniedMessage  = "You do not have permission to access this page"
)

// TargetLoader fetches the user a request addresses. Implementations return
// shared.ErrNotFound when the id is unknown.
type TargetLoader interface {
	LoadTarget(ctx context.Context, id int64) (*Identity, error)
}

// TargetLoaderFunc adapts a function to TargetLoader.
type TargetLoaderFunc func(ctx context.Context, id int64) (*Identity, error)

// LoadTarget implements TargetLoader.
func (f TargetLoaderFunc) LoadTarget(ctx context.Context, id int64) (*Identity, error) {
	return f(ctx, id)
}

// Guard wires policy decisions in front of HTTP handlers.
type Guard struct {
	Targets TargetLoader
	Logger  *slog.Logger
	// TargetParam is the route parameter carrying the addressed user id.
	TargetParam string
	// DeniedRedirect is where denied requests are sent.
	DeniedRedirect string
}

// Require admits the request only when the current actor is authenticated
// and the policy permits action. Denied requests never reach next: they get
// a warning flash and a redirect.
func (g Guard) Require(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := g.Authorize(r.Context(), action, g.targetParam(r))
			if err != nil {
				g.logger().Error("rbac authorize", slog.String("action", string(action)), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				g.logger().Warn("rbac denied",
					slog.String("action", string(action)),
					slog.String("path", r.URL.Path),
					slog.String("actor", ActorFromContext(r.Context()).Login()))
				shared.Flash(r.Context(), shared.FlashWarning, DeniedFlashKey, deniedMessage)
				http.Redirect(w, r, g.deniedRedirect(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorize decides action for the actor in ctx. rawTarget is the textual
// user id taken from the route, empty when the route addresses no user. An
// unparsable or unknown id yields a nil target rather than an error.
func (g Guard) Authorize(ctx context.Context, action Action, rawTarget string) (bool, error) {
	actor := ActorFromContext(ctx)
	if !actor.IsAuthenticated() {
		return false, nil
	}
	target, err := g.loadTarget(ctx, rawTarget)
	if err != nil {
		return false, err
	}
	return actor.Can(action, target), nil
}

func (g Guard) loadTarget(ctx context.Context, raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || g.Targets == nil {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil
	}
	target, err := g.Targets.LoadTarget(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return target, nil
}

func (g Guard) targetParam(r *http.Request) string {
	if g.TargetParam == "" {
		return ""
	}
	return chi.URLParam(r, g.TargetParam)
}

func (g Guard) deniedRedirect() string {
	if g.DeniedRedirect == "" {
		return "/"
	}
	return g.DeniedRedirect
}

func (g Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
