package activity

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/db"
)

// Repository persists activity records in PostgreSQL. Every query joins the
// request transaction when one is active.
type Repository struct {
	pool db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool db.DBTX) *Repository {
	return &Repository{pool: pool}
}

// Append inserts a record. created_at is assigned by the database.
func (r *Repository) Append(ctx context.Context, userID *int64, path string) error {
	_, err := db.Querier(ctx, r.pool).Exec(ctx,
		`INSERT INTO user_actions (user_id, path) VALUES ($1, $2)`, userID, path)
	if err != nil {
		return fmt.Errorf("activity: append: %w", err)
	}
	return nil
}

func scopeClause(scope Scope) (string, []any) {
	switch scope.Kind {
	case ScopeAll:
		return "", nil
	case ScopeOwn:
		return "WHERE a.user_id = $1", []any{scope.UserID}
	default:
		return "WHERE a.user_id IS NULL", nil
	}
}

func listQuery(scope Scope, limit, offset int) (string, []any) {
	where, args := scopeClause(scope)
	n := len(args)
	sql := fmt.Sprintf(`SELECT a.id, a.user_id, a.path, a.created_at,
	COALESCE(u.last_name, ''), COALESCE(u.first_name, ''), u.middle_name
FROM user_actions a LEFT JOIN users u ON u.id = a.user_id
%s
ORDER BY a.created_at, a.id
LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	return sql, append(args, limit, offset)
}

// List returns records visible in scope in insertion order.
func (r *Repository) List(ctx context.Context, scope Scope, limit, offset int) ([]Record, error) {
	sql, args := listQuery(scope, limit, offset)
	rows, err := db.Querier(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: list: %w", err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Path, &rec.CreatedAt, &rec.LastName, &rec.FirstName, &rec.MiddleName); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns how many records are visible in scope.
func (r *Repository) Count(ctx context.Context, scope Scope) (int, error) {
	where, args := scopeClause(scope)
	var total int
	err := db.Querier(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM user_actions a `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("activity: count: %w", err)
	}
	return total, nil
}

const userStatsQuery = `SELECT a.user_id,
	COALESCE(MAX(u.last_name), ''), COALESCE(MAX(u.first_name), ''), MAX(u.middle_name),
	COUNT(*)
FROM user_actions a LEFT JOIN users u ON u.id = a.user_id
GROUP BY a.user_id
ORDER BY COUNT(*) DESC, a.user_id NULLS FIRST`

// UserStats groups records by user. Anonymous records form their own group.
func (r *Repository) UserStats(ctx context.Context) ([]UserStat, error) {
	rows, err := db.Querier(ctx, r.pool).Query(ctx, userStatsQuery)
	if err != nil {
		return nil, fmt.Errorf("activity: user stats: %w", err)
	}
	defer rows.Close()
	var stats []UserStat
	for rows.Next() {
		var s UserStat
		if err := rows.Scan(&s.UserID, &s.LastName, &s.FirstName, &s.MiddleName, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// PageStats groups records by path, most visited first, ties by path.
func (r *Repository) PageStats(ctx context.Context) ([]PageStat, error) {
	rows, err := db.Querier(ctx, r.pool).Query(ctx, `SELECT path, COUNT(*) AS visits
FROM user_actions
GROUP BY path
ORDER BY visits DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("activity: page stats: %w", err)
	}
	defer rows.Close()
	var stats []PageStat
	for rows.Next() {
		var s PageStat
		if err := rows.Scan(&s.Path, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
