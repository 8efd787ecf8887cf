package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/roles"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
	"github.com/odyssey-erp/odyssey-accounts/internal/view"
)

type staticRoles []roles.Role

func (s staticRoles) ListRoles(ctx context.Context) ([]roles.Role, error) {
	return s, nil
}

type handlerFixture struct {
	repo   *memoryRepo
	sess   *shared.Session
	actor  rbac.Actor
	router http.Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)

	policy := rbac.NewPolicy(1)
	f := &handlerFixture{
		repo: newMemoryRepo(
			User{ID: 1, Login: "admin", FirstName: "Admin", LastName: "Root", RoleID: 1, RoleName: "admin"},
			User{ID: 2, Login: "user02", FirstName: "Anna", LastName: "Smirnova", RoleID: 2, RoleName: "user"},
		),
		sess:  &shared.Session{ID: "s"},
		actor: rbac.Anonymous(policy),
	}
	svc := newTestService(f.repo)
	handler := NewHandler(nil, svc, staticRoles{{ID: 1, Name: "admin"}, {ID: 2, Name: "user"}}, templates,
		shared.NewCSRFManager("secret"), rbac.Guard{Targets: svc})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), f.sess)
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithActor(ctx, f.actor)))
		})
	})
	r.Route("/users", handler.MountRoutes)
	f.router = r
	return f
}

func (f *handlerFixture) loginAs(id, role int64) {
	f.actor = rbac.Authenticated(rbac.NewPolicy(1), rbac.Identity{ID: id, RoleID: role})
}

func (f *handlerFixture) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *handlerFixture) flash(t *testing.T) shared.FlashMessage {
	t.Helper()
	msg := f.sess.PopFlash()
	require.NotNil(t, msg)
	return *msg
}

func newUserForm() url.Values {
	return url.Values{
		"login":      {"newbie1"},
		"password":   {"Qwerty123"},
		"first_name": {"Oleg"},
		"last_name":  {"Novikov"},
		"role_id":    {"2"},
	}
}

func TestListUsersIsPublic(t *testing.T) {
	f := newHandlerFixture(t)
	res := f.do(http.MethodGet, "/users/", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "user02")
}

func TestCreateUserAsAdmin(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(1, 1)

	res := f.do(http.MethodPost, "/users/new", newUserForm())
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/users/", res.Header().Get("Location"))
	assert.Len(t, f.repo.users, 3)
	flash := f.flash(t)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
	assert.Equal(t, CreateSuccessFlashKey, flash.Key)
}

func TestCreateUserDeniedForRegularUser(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(2, 2)

	res := f.do(http.MethodPost, "/users/new", newUserForm())
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/users/", res.Header().Get("Location"))
	assert.Len(t, f.repo.users, 2)
	flash := f.flash(t)
	assert.Equal(t, shared.FlashWarning, flash.Kind)
	assert.Equal(t, rbac.DeniedFlashKey, flash.Key)
}

func TestCreateUserAnonymousRedirectsToLogin(t *testing.T) {
	f := newHandlerFixture(t)
	res := f.do(http.MethodGet, "/users/new", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Header().Get("Location"), "/auth/login?next="))
}

func TestCreateUserDuplicateLogin(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(1, 1)
	form := newUserForm()
	form.Set("login", "user02")

	res := f.do(http.MethodPost, "/users/new", form)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Len(t, f.repo.users, 2)
	assert.Contains(t, res.Body.String(), "Could not create the account")
}

func TestCreateUserInvalidForm(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(1, 1)
	form := newUserForm()
	form.Set("login", "abc")

	res := f.do(http.MethodPost, "/users/new", form)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Must be at least 5 characters long")
	assert.Len(t, f.repo.users, 2)
}

func TestEditOwnAccountIgnoresRole(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(2, 2)

	res := f.do(http.MethodPost, "/users/2/edit", url.Values{
		"first_name": {"Anya"},
		"last_name":  {"Smirnova"},
		"role_id":    {"1"},
	})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "Anya", f.repo.users[2].FirstName)
	assert.EqualValues(t, 2, f.repo.users[2].RoleID)
	assert.Equal(t, UpdateSuccessFlashKey, f.flash(t).Key)
}

func TestAdminAssignsRole(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(1, 1)

	res := f.do(http.MethodPost, "/users/2/edit", url.Values{
		"first_name": {"Anna"},
		"last_name":  {"Smirnova"},
		"role_id":    {"1"},
	})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.EqualValues(t, 1, f.repo.users[2].RoleID)
}

func TestEditOtherAccountDenied(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(2, 2)

	res := f.do(http.MethodGet, "/users/1/edit", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, rbac.DeniedFlashKey, f.flash(t).Key)
}

func TestViewMissingUser(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(2, 2)

	res := f.do(http.MethodGet, "/users/42/view", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	flash := f.flash(t)
	assert.Equal(t, shared.FlashDanger, flash.Kind)
	assert.Equal(t, NotFoundFlashKey, flash.Key)
}

func TestViewRequiresLogin(t *testing.T) {
	f := newHandlerFixture(t)
	res := f.do(http.MethodGet, "/users/2/view", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, rbac.DeniedFlashKey, f.flash(t).Key)
}

func TestDeleteUser(t *testing.T) {
	f := newHandlerFixture(t)
	f.loginAs(1, 1)

	res := f.do(http.MethodPost, "/users/2/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.NotContains(t, f.repo.users, int64(2))
	assert.Equal(t, DeleteSuccessFlashKey, f.flash(t).Key)

	f.loginAs(2, 2)
	f.repo.users[3] = User{ID: 3, Login: "third", RoleID: 2}
	f.do(http.MethodPost, "/users/3/delete", url.Values{})
	assert.Contains(t, f.repo.users, int64(3))
}
