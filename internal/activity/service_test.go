package activity

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
)

type memoryStore struct {
	mu        sync.Mutex
	records   []Record
	err       error
	listCalls int
	offsets   []int
}

func (m *memoryStore) Append(ctx context.Context, userID *int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, Record{ID: int64(len(m.records) + 1), UserID: userID, Path: path, CreatedAt: time.Now()})
	return nil
}

func (m *memoryStore) visible(scope Scope) []Record {
	var out []Record
	for _, r := range m.records {
		switch scope.Kind {
		case ScopeAll:
		case ScopeOwn:
			if r.UserID == nil || *r.UserID != scope.UserID {
				continue
			}
		default:
			if r.UserID != nil {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func (m *memoryStore) List(ctx context.Context, scope Scope, limit, offset int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.offsets = append(m.offsets, offset)
	rows := m.visible(scope)
	if offset >= len(rows) {
		return nil, nil
	}
	end := min(len(rows), offset+limit)
	return rows[offset:end], nil
}

func (m *memoryStore) Count(ctx context.Context, scope Scope) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visible(scope)), nil
}

func (m *memoryStore) UserStats(ctx context.Context) ([]UserStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int64]int64{}
	var anonymous int64
	for _, r := range m.records {
		if r.UserID == nil {
			anonymous++
			continue
		}
		counts[*r.UserID]++
	}
	var stats []UserStat
	if anonymous > 0 {
		stats = append(stats, UserStat{Count: anonymous})
	}
	for id, n := range counts {
		id := id
		stats = append(stats, UserStat{UserID: &id, LastName: "User", FirstName: "N", Count: n})
	}
	return stats, nil
}

func (m *memoryStore) PageStats(ctx context.Context) ([]PageStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, r := range m.records {
		counts[r.Path]++
	}
	stats := make([]PageStat, 0, len(counts))
	for path, n := range counts {
		stats = append(stats, PageStat{Path: path, Count: n})
	}
	// map order is random; the service must make it deterministic.
	return stats, nil
}

type countingObserver struct {
	anonymous, authenticated int
}

func (c *countingObserver) ActivityRecorded(authenticated bool) {
	if authenticated {
		c.authenticated++
		return
	}
	c.anonymous++
}

var policy = rbac.NewPolicy(1)

func actorFor(id, role int64) rbac.Actor {
	return rbac.Authenticated(policy, rbac.Identity{ID: id, RoleID: role})
}

func TestListVisibility(t *testing.T) {
	store := &memoryStore{}
	observer := &countingObserver{}
	svc := NewService(store, observer)
	ctx := context.Background()

	userA, userB, admin := actorFor(10, 2), actorFor(20, 2), actorFor(1, 1)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, userA, "/a"))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Record(ctx, userB, "/b"))
	}
	require.NoError(t, svc.Record(ctx, rbac.Anonymous(policy), "/"))
	assert.Equal(t, 5, observer.authenticated)
	assert.Equal(t, 1, observer.anonymous)

	listing, err := svc.List(ctx, userB, 1)
	require.NoError(t, err)
	assert.Len(t, listing.Records, 2)
	for _, r := range listing.Records {
		assert.EqualValues(t, 20, *r.UserID)
	}

	listing, err = svc.List(ctx, rbac.Anonymous(policy), 1)
	require.NoError(t, err)
	require.Len(t, listing.Records, 1)
	assert.True(t, listing.Records[0].Anonymous())

	listing, err = svc.List(ctx, admin, 1)
	require.NoError(t, err)
	assert.Len(t, listing.Records, 6)
	assert.Equal(t, 6, listing.Pagination.Total)
}

func TestListPaginationWindow(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()
	admin := actorFor(1, 1)
	for i := 0; i < 100; i++ {
		require.NoError(t, svc.Record(ctx, admin, "/p"))
	}

	tests := []struct {
		page        int
		first, last int
	}{
		{1, 1, 4},
		{5, 2, 8},
		{10, 7, 10},
	}
	for _, tt := range tests {
		listing, err := svc.List(ctx, admin, tt.page)
		require.NoError(t, err)
		assert.Equal(t, 10, listing.Pagination.TotalPages)
		first, last := listing.Pagination.Window()
		assert.Equal(t, tt.first, first, "page %d", tt.page)
		assert.Equal(t, tt.last, last, "page %d", tt.page)
		require.Len(t, listing.Records, PageSize)
		assert.EqualValues(t, (tt.page-1)*PageSize+1, listing.Records[0].ID)
	}

	listing, err := svc.List(ctx, admin, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Pagination.Page)

	listing, err = svc.List(ctx, admin, 11)
	require.NoError(t, err)
	assert.Empty(t, listing.Records)
}

func TestListPageBeyondLastSkipsStore(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()
	admin := actorFor(1, 1)
	for i := 0; i < 15; i++ {
		require.NoError(t, svc.Record(ctx, admin, "/p"))
	}

	listing, err := svc.List(ctx, admin, 922337203685477590)
	require.NoError(t, err)
	assert.Empty(t, listing.Records)
	assert.Equal(t, 2, listing.Pagination.TotalPages)
	assert.Positive(t, listing.Pagination.Offset())
	assert.Zero(t, store.listCalls)

	_, err = svc.List(ctx, admin, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{PageSize}, store.offsets)
}

func TestRecordPropagatesStoreFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("store unavailable")}
	observer := &countingObserver{}
	err := NewService(store, observer).Record(context.Background(), rbac.Anonymous(policy), "/")
	assert.Error(t, err)
	assert.Zero(t, observer.anonymous)
}

func TestPageStatsOrdering(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()
	anon := rbac.Anonymous(policy)
	for path, n := range map[string]int{"/a": 5, "/b": 9, "/c": 9} {
		for i := 0; i < n; i++ {
			require.NoError(t, svc.Record(ctx, anon, path))
		}
	}

	var first []PageStat
	for run := 0; run < 20; run++ {
		stats, err := svc.PageStats(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.EqualValues(t, 9, stats[0].Count)
		assert.EqualValues(t, 9, stats[1].Count)
		assert.Equal(t, PageStat{Path: "/a", Count: 5}, stats[2])
		if first == nil {
			first = stats
			continue
		}
		assert.Equal(t, first, stats)
	}
	assert.Equal(t, "/b", first[0].Path)
}

func TestUserStatsIncludesAnonymousGroup(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, rbac.Anonymous(policy), "/"))
	require.NoError(t, svc.Record(ctx, actorFor(3, 2), "/"))

	stats, err := svc.UserStats(ctx)
	require.NoError(t, err)
	sort.Slice(stats, func(i, j int) bool { return stats[i].Anonymous() })
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Anonymous())
	assert.False(t, stats[1].Anonymous())
}

func TestWriteUserStatsCSV(t *testing.T) {
	id := int64(3)
	middle := "Petrovich"
	var buf bytes.Buffer
	require.NoError(t, WriteUserStatsCSV(&buf, []UserStat{
		{Count: 4},
		{UserID: &id, LastName: "Ivanov", FirstName: "Ivan", MiddleName: &middle, Count: 12},
		{UserID: new(int64), Count: 1},
	}))

	assert.Equal(t, "last_name,first_name,middle_name,entries_counter\n"+
		"not,authenticated,user,4\n"+
		"Ivanov,Ivan,Petrovich,12\n"+
		",,,1\n", buf.String())
}

func TestWritePageStatsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePageStatsCSV(&buf, []PageStat{{Path: "/b", Count: 9}, {Path: "/a,x", Count: 5}}))
	assert.Equal(t, "No,Page,Visits Count\n1,/b,9\n2,\"/a,x\",5\n", buf.String())
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, Scope{Kind: ScopeAll}, ScopeFor(actorFor(1, 1)))
	assert.Equal(t, Scope{Kind: ScopeOwn, UserID: 7}, ScopeFor(actorFor(7, 2)))
	assert.Equal(t, Scope{Kind: ScopeAnonymous}, ScopeFor(rbac.Anonymous(policy)))
	assert.Equal(t, Scope{Kind: ScopeAnonymous}, ScopeFor(rbac.Actor{}))
}
