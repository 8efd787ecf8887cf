package users

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
	hashes map[int64]string
}

func newMemoryRepo(seed ...User) *memoryRepo {
	m := &memoryRepo{users: map[int64]User{}, hashes: map[int64]string{}}
	for _, u := range seed {
		m.users[u.ID] = u
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memoryRepo) List(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) Create(ctx context.Context, in NewUser) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == in.Login {
			return 0, &db.ConflictError{Constraint: "users_login_key", Detail: "duplicate login"}
		}
	}
	m.nextID++
	m.users[m.nextID] = User{ID: m.nextID, Login: in.Login, FirstName: in.FirstName, MiddleName: in.MiddleName, LastName: in.LastName, RoleID: in.RoleID}
	m.hashes[m.nextID] = in.PasswordHash
	return m.nextID, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, c Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.FirstName, u.MiddleName, u.LastName = c.FirstName, c.MiddleName, c.LastName
	if c.RoleID != nil {
		u.RoleID = *c.RoleID
	}
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	svc := NewService(repo)
	svc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return svc
}

func validCreateInput() CreateInput {
	return CreateInput{Login: "ivanov1", Password: "Qwerty123", FirstName: "Ivan", LastName: "Ivanov", RoleID: 2}
}

func TestCreateUserValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	in := validCreateInput()
	in.Login = "ab!"
	in.Password = "short"
	in.FirstName = "Ivan1"
	in.RoleID = 0

	_, err := svc.CreateUser(context.Background(), in)
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "login")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "first_name")
	assert.Contains(t, verr.Fields, "role_id")
	assert.NotContains(t, verr.Fields, "middle_name")
	assert.Empty(t, repo.users)
}

func TestCreateUserNormalizesNames(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	in := validCreateInput()
	in.FirstName = "  " + norm.NFD.String("Йоган") + " "
	in.MiddleName = ""

	id, err := svc.CreateUser(context.Background(), in)
	require.NoError(t, err)
	u := repo.users[id]
	assert.Equal(t, "Йоган", u.FirstName)
	assert.Nil(t, u.MiddleName)
	assert.Equal(t, "hashed:Qwerty123", repo.hashes[id])
}

func TestCreateUserDuplicateLoginIsConflict(t *testing.T) {
	repo := newMemoryRepo(User{ID: 1, Login: "ivanov1", FirstName: "A", LastName: "B", RoleID: 2})
	svc := newTestService(repo)

	_, err := svc.CreateUser(context.Background(), validCreateInput())
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Len(t, repo.users, 1)
}

func TestUpdateUserKeepsRoleWithoutAssignment(t *testing.T) {
	repo := newMemoryRepo(User{ID: 4, Login: "petrov", FirstName: "Petr", LastName: "Petrov", RoleID: 2})
	svc := newTestService(repo)

	require.NoError(t, svc.UpdateUser(context.Background(), 4, UpdateInput{FirstName: "Pavel", LastName: "Petrov"}))
	assert.EqualValues(t, 2, repo.users[4].RoleID)
	assert.Equal(t, "Pavel", repo.users[4].FirstName)

	role := int64(1)
	require.NoError(t, svc.UpdateUser(context.Background(), 4, UpdateInput{FirstName: "Pavel", LastName: "Petrov", RoleID: &role}))
	assert.EqualValues(t, 1, repo.users[4].RoleID)

	err := svc.UpdateUser(context.Background(), 99, UpdateInput{FirstName: "X", LastName: "Y"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLoadTarget(t *testing.T) {
	svc := newTestService(newMemoryRepo(User{ID: 4, Login: "petrov", RoleID: 2}))

	target, err := svc.LoadTarget(context.Background(), 4)
	require.NoError(t, err)
	assert.EqualValues(t, 4, target.ID)
	assert.EqualValues(t, 2, target.RoleID)

	_, err = svc.LoadTarget(context.Background(), 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFullName(t *testing.T) {
	middle := "Ivanovich"
	assert.Equal(t, "Ivanov Ivan Ivanovich", User{FirstName: "Ivan", MiddleName: &middle, LastName: "Ivanov"}.FullName())
	assert.Equal(t, "Ivanov Ivan", User{FirstName: "Ivan", LastName: "Ivanov"}.FullName())
}
