package activity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeClause(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		where string
		args  []any
	}{
		{name: "all", scope: Scope{Kind: ScopeAll}, where: "", args: nil},
		{name: "own", scope: Scope{Kind: ScopeOwn, UserID: 7}, where: "WHERE a.user_id = $1", args: []any{int64(7)}},
		{name: "anonymous", scope: Scope{Kind: ScopeAnonymous}, where: "WHERE a.user_id IS NULL", args: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := scopeClause(tt.scope)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestListQueryPlaceholders(t *testing.T) {
	tests := []struct {
		name   string
		scope  Scope
		where  string
		paging string
		args   []any
	}{
		{
			name:   "all",
			scope:  Scope{Kind: ScopeAll},
			paging: "LIMIT $1 OFFSET $2",
			args:   []any{10, 20},
		},
		{
			name:   "own",
			scope:  Scope{Kind: ScopeOwn, UserID: 3},
			where:  "WHERE a.user_id = $1",
			paging: "LIMIT $2 OFFSET $3",
			args:   []any{int64(3), 10, 20},
		},
		{
			name:   "anonymous",
			scope:  Scope{Kind: ScopeAnonymous},
			where:  "WHERE a.user_id IS NULL",
			paging: "LIMIT $1 OFFSET $2",
			args:   []any{10, 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := listQuery(tt.scope, 10, 20)
			assert.True(t, strings.HasSuffix(sql, tt.paging), sql)
			assert.Contains(t, sql, "ORDER BY a.created_at, a.id")
			if tt.where != "" {
				assert.Contains(t, sql, tt.where)
			} else {
				assert.NotContains(t, sql, "WHERE")
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestUserStatsQueryGroupsAnonymousFirst(t *testing.T) {
	assert.Contains(t, userStatsQuery, "LEFT JOIN users u ON u.id = a.user_id")
	assert.Contains(t, userStatsQuery, "GROUP BY a.user_id")
	assert.Contains(t, userStatsQuery, "ORDER BY COUNT(*) DESC, a.user_id NULLS FIRST")
}
