package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-accounts/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
)

// Translate maps driver errors onto the shared sentinel errors. Errors that
// are not anticipated are returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return &ConflictError{Constraint: pgErr.ConstraintName, Detail: pgErr.Message, err: err}
		}
	}
	return err
}

// ConflictError describes a constraint violation reported by the store.
type ConflictError struct {
	Constraint string
	Detail     string
	err        error
}

func (e *ConflictError) Error() string {
	if e.Constraint != "" {
		return "conflict on " + e.Constraint + ": " + e.Detail
	}
	return "conflict: " + e.Detail
}

// Is lets errors.Is match shared.ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == shared.ErrConflict
}

func (e *ConflictError) Unwrap() error {
	return e.err
}
