// Package dbtest provides an in-memory stand-in for pgx transactions so the
// commit and rollback behaviour of request scoped units of work can be
// asserted without a database.
package dbtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Statement is one recorded Exec call.
type Statement struct {
	SQL  string
	Args []any
}

// Store collects statements that reached a committed top level transaction.
type Store struct {
	mu        sync.Mutex
	committed []Statement
	begun     int
	commits   int
	rollbacks int

	// BeginErr and CommitErr inject failures.
	BeginErr  error
	CommitErr error
	// ExecErr, when set, is returned by Exec for statements containing the key.
	ExecErr map[string]error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// BeginTx implements db.TxBeginner.
func (s *Store) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.begun++
	return &Tx{store: s}, nil
}

// Committed returns the statements that were made durable.
func (s *Store) Committed() []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Statement, len(s.committed))
	copy(out, s.committed)
	return out
}

// Counts reports begun, committed and rolled back top level transactions.
func (s *Store) Counts() (begun, commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begun, s.commits, s.rollbacks
}

// Tx is a fake pgx.Tx. Methods not overridden here panic when called.
type Tx struct {
	pgx.Tx
	store   *Store
	parent  *Tx
	pending []Statement
	closed  bool
}

// Exec records the statement in the transaction.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	for key, err := range t.store.ExecErr {
		if strings.Contains(sql, key) {
			return pgconn.CommandTag{}, err
		}
	}
	t.pending = append(t.pending, Statement{SQL: sql, Args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// Begin opens a nested transaction that behaves like a savepoint.
func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return &Tx{store: t.store, parent: t}, nil
}

// Commit publishes pending statements to the parent or the store.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.parent != nil {
		t.parent.pending = append(t.parent.pending, t.pending...)
		return nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.CommitErr != nil {
		t.store.rollbacks++
		return t.store.CommitErr
	}
	t.store.commits++
	t.store.committed = append(t.store.committed, t.pending...)
	return nil
}

// Rollback discards pending statements.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.pending = nil
	if t.parent == nil {
		t.store.mu.Lock()
		t.store.rollbacks++
		t.store.mu.Unlock()
	}
	return nil
}

// Pending returns statements executed but not yet committed.
func (t *Tx) Pending() []Statement {
	out := make([]Statement, len(t.pending))
	copy(out, t.pending)
	return out
}

// ErrInjected is a convenience error for failure injection.
var ErrInjected = errors.New("dbtest: injected failure")
