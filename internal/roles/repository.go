package roles

import (
	"context"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool db.DBTX) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := db.Querier(ctx, r.pool).Query(ctx, `SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}
