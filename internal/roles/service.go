package roles

import (
	"context"
	"fmt"
)

// RepositoryPort reads the role catalogue.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
}

// Service feeds the role selector of the user forms.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns every role ordered by id.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	return roles, nil
}
