package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-accounts/internal/auth"
	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, in NewUser) (int64, error)
	Update(ctx context.Context, id int64, changes Changes) error
	Delete(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	hash     func(string) (string, error)
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: shared.NewValidator(), hash: auth.HashPassword}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// GetUser returns one user or shared.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// LoadTarget resolves the user addressed by a guarded route.
func (s *Service) LoadTarget(ctx context.Context, id int64) (*rbac.Identity, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	identity := u.Identity()
	return &identity, nil
}

// CreateUser validates in and inserts the user. Invalid input yields a
// *ValidationError and no write. A taken login matches shared.ErrConflict;
// the failed insert is undone without touching the rest of the request.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (int64, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.FirstName = normalizeName(in.FirstName)
	in.MiddleName = normalizeName(in.MiddleName)
	in.LastName = normalizeName(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		return 0, &ValidationError{Fields: shared.ValidationErrors(err)}
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	var id int64
	err = db.Savepoint(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.repo.Create(ctx, NewUser{
			Login:        in.Login,
			PasswordHash: hash,
			FirstName:    in.FirstName,
			MiddleName:   optional(in.MiddleName),
			LastName:     in.LastName,
			RoleID:       in.RoleID,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateUser applies in to user id. The role changes only when in.RoleID is
// set; callers clear it when the actor may not assign roles.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateInput) error {
	in.FirstName = normalizeName(in.FirstName)
	in.MiddleName = normalizeName(in.MiddleName)
	in.LastName = normalizeName(in.LastName)
	if err := s.validate.Struct(in); err != nil {
		return &ValidationError{Fields: shared.ValidationErrors(err)}
	}
	return db.Savepoint(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, id, Changes{
			FirstName:  in.FirstName,
			MiddleName: optional(in.MiddleName),
			LastName:   in.LastName,
			RoleID:     in.RoleID,
		})
	})
}

// DeleteUser removes user id.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
