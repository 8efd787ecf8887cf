package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-accounts/internal/auth"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/roles"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
)

const (
	CreateSuccessFlashKey = "users.create.success"
	CreateFailedFlashKey  = "users.create.failed"
	UpdateSuccessFlashKey = "users.update.success"
	UpdateFailedFlashKey  = "users.update.failed"
	DeleteSuccessFlashKey = "users.delete.success"
	NotFoundFlashKey      = "users.not_found"

	listPath = "/users/"
)

// RoleLister provides the roles offered on user forms.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     rbac.Guard
}

// NewHandler builds Handler instance. guard decides every protected route;
// its target loader should resolve the {userID} parameter.
func NewHandler(logger *slog.Logger, service *Service, roles RoleLister, templates *view.Engine, csrf *shared.CSRFManager, guard rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if guard.TargetParam == "" {
		guard.TargetParam = "userID"
	}
	if guard.DeniedRedirect == "" {
		guard.DeniedRedirect = listPath
	}
	return &Handler{logger: logger, service: service, roles: roles, templates: templates, csrf: csrf, guard: guard}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.With(h.guard.Require(rbac.ActionRead)).Get("/{userID}/view", h.viewUser)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.With(h.guard.Require(rbac.ActionCreate)).Get("/new", h.showCreateUserForm)
		r.With(h.guard.Require(rbac.ActionCreate)).Post("/new", h.createUser)
		r.With(h.guard.Require(rbac.ActionUpdate)).Get("/{userID}/edit", h.showEditUserForm)
		r.With(h.guard.Require(rbac.ActionUpdate)).Post("/{userID}/edit", h.updateUser)
		r.With(h.guard.Require(rbac.ActionDelete)).Post("/{userID}/delete", h.deleteUser)
	})
}

type formPageData struct {
	User      User
	Form      any
	Roles     []roles.Role
	CanAssign bool
	Errors    shared.FormErrors
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	h.render(w, r, "pages/users/list.html", "Users", map[string]any{"Users": users}, http.StatusOK)
}

func (h *Handler) viewUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/users/view.html", "User "+user.Login, map[string]any{"User": user}, http.StatusOK)
}

func (h *Handler) showCreateUserForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "pages/users/form.html", "New user", formPageData{Form: CreateInput{}, CanAssign: true}, http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	in := CreateInput{
		Login:      r.PostFormValue("login"),
		Password:   r.PostFormValue("password"),
		FirstName:  r.PostFormValue("first_name"),
		MiddleName: r.PostFormValue("middle_name"),
		LastName:   r.PostFormValue("last_name"),
		RoleID:     parseID(r.PostFormValue("role_id")),
	}
	id, err := h.service.CreateUser(ctx, in)
	in.Password = ""
	data := formPageData{Form: in, CanAssign: true}
	if verr, ok := IsValidation(err); ok {
		data.Errors = verr.Fields
		h.renderForm(w, r, "pages/users/form.html", "New user", data, http.StatusBadRequest)
		return
	}
	if errors.Is(err, shared.ErrConflict) {
		h.logger.Info("create user conflict", slog.String("login", in.Login), slog.Any("error", err))
		shared.Flash(ctx, shared.FlashDanger, CreateFailedFlashKey, "Could not create the account. Check that the login is free and all required fields are filled in")
		h.renderForm(w, r, "pages/users/form.html", "New user", data, http.StatusConflict)
		return
	}
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", id), slog.String("login", in.Login))
	shared.Flash(ctx, shared.FlashSuccess, CreateSuccessFlashKey, "Account created successfully")
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	form := UpdateInput{FirstName: user.FirstName, LastName: user.LastName, RoleID: &user.RoleID}
	if user.MiddleName != nil {
		form.MiddleName = *user.MiddleName
	}
	h.renderForm(w, r, "pages/users/edit.html", "Edit user", formPageData{User: user, Form: form, CanAssign: h.canAssign(r, user)}, http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	canAssign := h.canAssign(r, user)
	in := UpdateInput{
		FirstName:  r.PostFormValue("first_name"),
		MiddleName: r.PostFormValue("middle_name"),
		LastName:   r.PostFormValue("last_name"),
	}
	if canAssign {
		roleID := parseID(r.PostFormValue("role_id"))
		in.RoleID = &roleID
	}
	err := h.service.UpdateUser(ctx, user.ID, in)
	data := formPageData{User: user, Form: in, CanAssign: canAssign}
	if verr, ok := IsValidation(err); ok {
		data.Errors = verr.Fields
		h.renderForm(w, r, "pages/users/edit.html", "Edit user", data, http.StatusBadRequest)
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotFound):
		h.notFound(w, r)
		return
	case errors.Is(err, shared.ErrConflict):
		h.logger.Info("update user conflict", slog.Int64("user_id", user.ID), slog.Any("error", err))
		shared.Flash(ctx, shared.FlashDanger, UpdateFailedFlashKey, "Could not update the account")
		h.renderForm(w, r, "pages/users/edit.html", "Edit user", data, http.StatusConflict)
		return
	default:
		h.fail(w, "update user", err)
		return
	}
	shared.Flash(ctx, shared.FlashSuccess, UpdateSuccessFlashKey, "Account updated successfully")
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "userID"))
	err := h.service.DeleteUser(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotFound):
		h.notFound(w, r)
		return
	default:
		h.fail(w, "delete user", err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id))
	shared.Flash(r.Context(), shared.FlashSuccess, DeleteSuccessFlashKey, "Account deleted successfully")
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	user, err := h.service.GetUser(r.Context(), parseID(chi.URLParam(r, "userID")))
	if errors.Is(err, shared.ErrNotFound) {
		h.notFound(w, r)
		return User{}, false
	}
	if err != nil {
		h.fail(w, "load user", err)
		return User{}, false
	}
	return user, true
}

func (h *Handler) canAssign(r *http.Request, user User) bool {
	target := user.Identity()
	return rbac.ActorFromContext(r.Context()).Can(rbac.ActionAssignRole, &target)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	shared.Flash(r.Context(), shared.FlashDanger, NotFoundFlashKey, "User not found")
	http.Redirect(w, r, listPath, http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, name, title string, data formPageData, status int) {
	roleList, err := h.roles.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	data.Roles = roleList
	if data.Errors == nil {
		data.Errors = shared.FormErrors{}
	}
	h.render(w, r, name, title, data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any, status int) {
	viewData := view.BaseData(r, h.csrf, title, data)
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.fail(w, "render template", err)
	}
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
