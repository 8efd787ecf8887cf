package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-accounts/internal/activity"
	activityhttp "github.com/odyssey-erp/odyssey-accounts/internal/activity/http"
	"github.com/odyssey-erp/odyssey-accounts/internal/auth"
	"github.com/odyssey-erp/odyssey-accounts/internal/observability"
	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	rbachttp "github.com/odyssey-erp/odyssey-accounts/internal/rbac/http"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/users"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
	"github.com/odyssey-erp/odyssey-accounts/jobs"
	"github.com/odyssey-erp/odyssey-accounts/web"
)

const (
	staticPrefix  = "/static/"
	counterKey    = "counter"
	healthTimeout = 3 * time.Second
)

// Pinger is a dependency probed by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	Pool     db.TxBeginner
	Policy   *rbac.Policy
	Identity auth.IdentityResolver
	Activity *activity.Service
	Health   map[string]Pinger

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	ActivityHandler    *activityhttp.Handler
	PermissionsHandler *rbachttp.PermissionsHandler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router. Every application route runs inside
// one request transaction, with the actor resolved and the visit recorded
// before the handler.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Health, logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix(staticPrefix, http.FileServer(http.FS(staticFS)))
		r.Handle(staticPrefix+"*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(
			db.RequestTx(params.Pool, logger),
			auth.ResolveActor(params.Identity, params.Policy, logger),
			activity.Recorder(params.Activity, logger, staticPrefix),
		)

		pages := pageHandler{logger: logger, templates: params.Templates, csrf: params.CSRFManager}
		r.Get("/", pages.index)
		r.With(auth.RequireAuthenticated).Get("/secret", pages.secret)
		r.Get("/counter", pages.counter)

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.ActivityHandler != nil {
			r.Route("/user_actions", params.ActivityHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
	})

	return r
}

type pageHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

func (h pageHandler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/index.html", "Home", nil)
}

func (h pageHandler) secret(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/secret.html", "Secret", nil)
}

// counter counts the visits of the current browser session.
func (h pageHandler) counter(w http.ResponseWriter, r *http.Request) {
	visits := 1
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if n, err := strconv.Atoi(sess.Get(counterKey)); err == nil && n > 0 {
			visits = n + 1
		}
		sess.Set(counterKey, strconv.Itoa(visits))
	}
	h.render(w, r, "pages/counter.html", "Counter", map[string]any{"Visits": visits})
}

func (h pageHandler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.templates.Render(w, name, view.BaseData(r, h.csrf, title, data)); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// healthHandler probes every dependency concurrently.
func healthHandler(checks map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		for name, check := range checks {
			name, check := name, check
			g.Go(func() error {
				if err := check.Ping(gctx); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			logger.Warn("health check failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
