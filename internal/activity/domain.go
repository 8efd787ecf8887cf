// Package activity records one row per handled request and derives the
// visit statistics shown to administrators.
package activity

import (
	"time"

	"github.com/odyssey-erp/odyssey-accounts/internal/rbac"
	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

// PageSize is the fixed number of records per listing page.
const PageSize = 10

// Record is one logged (user, path, time) tuple. UserID is nil for
// anonymous requests. Name fields are filled from the user table when the
// record is listed.
type Record struct {
	ID         int64
	UserID     *int64
	Path       string
	CreatedAt  time.Time
	LastName   string
	FirstName  string
	MiddleName *string
}

// Anonymous reports whether the record was made by an anonymous actor.
func (r Record) Anonymous() bool {
	return r.UserID == nil
}

// ScopeKind selects which records a viewer may list.
type ScopeKind int

const (
	// ScopeAnonymous covers records without a user.
	ScopeAnonymous ScopeKind = iota
	// ScopeOwn covers the records of a single user.
	ScopeOwn
	// ScopeAll covers every record.
	ScopeAll
)

// Scope is the visibility filter applied to a listing.
type Scope struct {
	Kind   ScopeKind
	UserID int64
}

// ScopeFor derives the listing scope of actor: administrators see every
// record, other users their own, anonymous viewers the anonymous ones.
func ScopeFor(actor rbac.Actor) Scope {
	if actor.IsAdmin() {
		return Scope{Kind: ScopeAll}
	}
	if id, ok := actor.ID(); ok {
		return Scope{Kind: ScopeOwn, UserID: id}
	}
	return Scope{Kind: ScopeAnonymous}
}

// Listing is one page of activity records.
type Listing struct {
	Records    []Record
	Pagination shared.Pagination
}

// UserStat is the number of records attributed to one user. The anonymous
// group has a nil UserID. A deleted user keeps its group with empty names.
type UserStat struct {
	UserID     *int64
	LastName   string
	FirstName  string
	MiddleName *string
	Count      int64
}

// Anonymous reports whether the group collects anonymous records.
func (s UserStat) Anonymous() bool {
	return s.UserID == nil
}

// PageStat is the number of records for one path.
type PageStat struct {
	Path  string
	Count int64
}
