package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
)

const (
	LoginSuccessFlashKey    = "auth.login.success"
	LoginInvalidFlashKey    = "auth.login.invalid"
	PasswordChangedFlashKey = "auth.password.changed"

	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(loginRateLimit, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/login", h.showLogin)
	r.With(limiter).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuthenticated)
		r.Get("/password", h.showPassword)
		r.Post("/password", h.handlePassword)
	})
}

type loginForm struct {
	Login    string `form:"login" validate:"required"`
	Password string `form:"password" validate:"required"`
	Remember bool   `form:"remember_me"`
	Next     string `form:"next"`
}

type passwordForm struct {
	OldPassword     string `form:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,password"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type formPageData struct {
	Form   any
	Errors shared.FormErrors
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	form := loginForm{Next: r.URL.Query().Get("next")}
	h.render(w, r, "pages/auth/login.html", "Log in", formPageData{Form: form, Errors: shared.FormErrors{}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := loginForm{
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
		Remember: r.PostFormValue("remember_me") == "on",
		Next:     r.PostFormValue("next"),
	}
	errs := shared.ValidationErrors(h.validator.Struct(form))
	if len(errs) == 0 {
		user, err := h.service.Authenticate(ctx, form.Login, form.Password)
		switch {
		case err == nil:
			h.completeLogin(w, r, user, form)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			shared.Flash(ctx, shared.FlashDanger, LoginInvalidFlashKey, "Invalid login or password")
		default:
			h.logger.Error("authenticate", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	form.Password = ""
	h.render(w, r, "pages/auth/login.html", "Log in", formPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, user *User, form loginForm) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.Regenerate()
	sess.Delete(shared.CSRFSessionKey)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.SetPersistent(form.Remember)
	sess.AddFlash(shared.FlashMessage{Kind: shared.FlashSuccess, Key: LoginSuccessFlashKey, Message: "You have logged in successfully"})

	ttl := h.sessionManager.TTL()
	if form.Remember {
		ttl = h.sessionManager.RememberTTL()
	}
	if err := h.service.RegisterSession(ctx, sess.ID, user.ID, ttl, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.Bool("remember", form.Remember))
	http.Redirect(w, r, SafeNext(form.Next, "/"), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) showPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/password.html", "Change password", formPageData{Form: passwordForm{}, Errors: shared.FormErrors{}}, http.StatusOK)
}

func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	userID, _ := rbac.ActorFromContext(ctx).ID()
	form := passwordForm{
		OldPassword:     r.PostFormValue("old_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	errs := shared.ValidationErrors(h.validator.Struct(form))
	if len(errs) == 0 {
		err := h.service.ChangePassword(ctx, userID, form.OldPassword, form.NewPassword)
		switch {
		case err == nil:
			shared.Flash(ctx, shared.FlashSuccess, PasswordChangedFlashKey, "Password changed successfully")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["old_password"] = "Wrong password"
		default:
			h.logger.Error("change password", slog.Int64("user_id", userID), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	h.render(w, r, "pages/auth/password.html", "Change password", formPageData{Form: passwordForm{}, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data formPageData, status int) {
	viewData := view.BaseData(r, h.csrfManager, title, data)
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
