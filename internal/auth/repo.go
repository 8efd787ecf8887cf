package auth

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByLogin(ctx context.Context, login string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	CreateSession(ctx context.Context, session LoginSession) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL. Queries run inside
// the request transaction when one is active.
type PGRepository struct {
	pool db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.DBTX) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `SELECT id, login, password_hash, role_id FROM users`

// FindByLogin fetches a user by login.
func (r *PGRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	return r.findOne(ctx, selectUser+` WHERE login = $1`, login)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PGRepository) findOne(ctx context.Context, sql string, arg any) (*User, error) {
	var user User
	err := db.Querier(ctx, r.pool).QueryRow(ctx, sql, arg).
		Scan(&user.ID, &user.Login, &user.PasswordHash, &user.RoleID)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &user, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := db.Querier(ctx, r.pool).Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, s LoginSession) error {
	_, err := db.Querier(ctx, r.pool).Exec(ctx,
		`INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, user_agent)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`,
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC(), s.IP, s.UserAgent)
	return db.Translate(err)
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := db.Querier(ctx, r.pool).Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return db.Translate(err)
}

// DeleteExpiredSessions prunes sessions that expired before now.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Querier(ctx, r.pool).Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, db.Translate(err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
