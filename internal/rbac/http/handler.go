package rbachttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
)

// PermissionsHandler shows the current actor what the policy grants them.
type PermissionsHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	auth      func(http.Handler) http.Handler
}

// NewPermissionsHandler builds PermissionsHandler instance. requireAuth is
// the authentication stage placed in front of the page.
func NewPermissionsHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, requireAuth func(http.Handler) http.Handler) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, templates: templates, csrf: csrf, auth: requireAuth}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Get("/", h.listPermissions)
	})
}

// Grant is one row of the permissions page.
type Grant struct {
	Action  rbac.Action
	OnSelf  bool
	OnOther bool
}

// Grants evaluates every known action for actor, once against the actor's
// own record and once against another user.
func Grants(actor rbac.Actor) []Grant {
	self, _ := actor.Identity()
	other := rbac.Identity{ID: self.ID + 1}
	grants := make([]Grant, 0, len(rbac.Actions()))
	for _, action := range rbac.Actions() {
		grants = append(grants, Grant{
			Action:  action,
			OnSelf:  actor.Can(action, &self),
			OnOther: actor.Can(action, &other),
		})
	}
	return grants
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	actor := rbac.ActorFromContext(r.Context())
	data := view.BaseData(r, h.csrf, "Permissions", map[string]any{
		"Grants":  Grants(actor),
		"IsAdmin": actor.IsAdmin(),
	})
	if err := h.templates.Render(w, "pages/permissions.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
