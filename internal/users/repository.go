package users

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool db.DBTX) *Repository {
	return &Repository{pool: pool}
}

const selectUsers = `SELECT u.id, u.login, u.first_name, u.middle_name, u.last_name, u.role_id,
	COALESCE(r.name, ''), u.created_at
FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Login, &u.FirstName, &u.MiddleName, &u.LastName, &u.RoleID, &u.RoleName, &u.CreatedAt)
	return u, err
}

// List returns all users with their role names.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := db.Querier(ctx, r.pool).Query(ctx, selectUsers+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Get returns one user or shared.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(db.Querier(ctx, r.pool).QueryRow(ctx, selectUsers+` WHERE u.id = $1`, id))
	if err != nil {
		return User{}, db.Translate(err)
	}
	return u, nil
}

// Create inserts a user and returns its id. A taken login yields an error
// matching shared.ErrConflict.
func (r *Repository) Create(ctx context.Context, in NewUser) (int64, error) {
	var id int64
	err := db.Querier(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO users (login, password_hash, first_name, middle_name, last_name, role_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		in.Login, in.PasswordHash, in.FirstName, in.MiddleName, in.LastName, in.RoleID).Scan(&id)
	if err != nil {
		return 0, db.Translate(err)
	}
	return id, nil
}

// Update applies changes to the user row. The role is kept when
// changes.RoleID is nil.
func (r *Repository) Update(ctx context.Context, id int64, changes Changes) error {
	tag, err := db.Querier(ctx, r.pool).Exec(ctx,
		`UPDATE users SET first_name = $2, middle_name = $3, last_name = $4,
		 role_id = COALESCE($5, role_id) WHERE id = $1`,
		id, changes.FirstName, changes.MiddleName, changes.LastName, changes.RoleID)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Querier(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
