package activity

import (
	"context"
	"sort"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

// Store is the persistence port of the activity log.
type Store interface {
	Append(ctx context.Context, userID *int64, path string) error
	List(ctx context.Context, scope Scope, limit, offset int) ([]Record, error)
	Count(ctx context.Context, scope Scope) (int, error)
	UserStats(ctx context.Context) ([]UserStat, error)
	PageStats(ctx context.Context) ([]PageStat, error)
}

// Observer is notified after every appended record.
type Observer interface {
	ActivityRecorded(authenticated bool)
}

// Service implements the activity log and its statistics.
type Service struct {
	store    Store
	observer Observer
}

// NewService builds Service instance. observer may be nil.
func NewService(store Store, observer Observer) *Service {
	return &Service{store: store, observer: observer}
}

// Record appends one record for actor and path. Errors are returned
// unchanged so the caller aborts the request.
func (s *Service) Record(ctx context.Context, actor rbac.Actor, path string) error {
	var userID *int64
	if id, ok := actor.ID(); ok {
		userID = &id
	}
	if err := s.store.Append(ctx, userID, path); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.ActivityRecorded(userID != nil)
	}
	return nil
}

// List returns page of the records visible to actor. Pages below 1 are
// treated as the first page.
func (s *Service) List(ctx context.Context, actor rbac.Actor, page int) (Listing, error) {
	scope := ScopeFor(actor)
	total, err := s.store.Count(ctx, scope)
	if err != nil {
		return Listing{}, err
	}
	pagination := shared.NewPagination(page, PageSize, total)
	if pagination.Beyond() {
		return Listing{Pagination: pagination}, nil
	}
	records, err := s.store.List(ctx, scope, PageSize, pagination.Offset())
	if err != nil {
		return Listing{}, err
	}
	return Listing{Records: records, Pagination: pagination}, nil
}

// UserStats returns the number of records per user, the anonymous group
// included.
func (s *Service) UserStats(ctx context.Context) ([]UserStat, error) {
	return s.store.UserStats(ctx)
}

// PageStats returns the number of records per path ordered by count
// descending, equal counts by path.
func (s *Service) PageStats(ctx context.Context) ([]PageStat, error) {
	stats, err := s.store.PageStats(ctx)
	if err != nil {
		return nil, err
	}
	SortPageStats(stats)
	return stats, nil
}

// SortPageStats orders stats by count descending, then path ascending.
func SortPageStats(stats []PageStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Path < stats[j].Path
	})
}
