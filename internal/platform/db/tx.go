package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-accounts/internal/platform/httpx"
)

// DBTX is the query surface shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type txContextKey struct{}

// ContextWithTx stores tx in ctx.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// Querier returns the request transaction when one is active and fallback
// otherwise, so repositories join the unit of work of the current request.
func Querier(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// WithTx executes fn within a read committed transaction.
func WithTx(ctx context.Context, pool TxBeginner, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// Savepoint runs fn inside a nested transaction of the request transaction.
// A failing fn only undoes its own writes; the enclosing transaction stays
// usable. Without a request transaction fn runs unchanged.
func Savepoint(ctx context.Context, fn func(context.Context) error) error {
	tx, ok := TxFromContext(ctx)
	if !ok {
		return fn(ctx)
	}
	nested, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: savepoint: %w", err)
	}
	if err := fn(ContextWithTx(ctx, nested)); err != nil {
		if rbErr := nested.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("platform/db: rollback savepoint: %w", rbErr)
		}
		return err
	}
	if err := nested.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: release savepoint: %w", err)
	}
	return nil
}

// RequestTx opens one transaction per request and shares it through the
// request context. The transaction commits right before the response header
// is written with a status below 500. A 5xx status or a panic rolls it back.
// If the commit fails the client receives a 500 instead of the intended
// response.
func RequestTx(pool TxBeginner, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
			if err != nil {
				logger.Error("begin request tx", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
				return
			}
			tw := &txResponseWriter{ResponseWriter: w, tx: tx, ctx: ctx, logger: logger}
			defer func() {
				if rec := recover(); rec != nil {
					tw.rollback()
					panic(rec)
				}
				// Nothing written: the handler finished without error.
				if !tw.finish(http.StatusOK) {
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				}
			}()
			next.ServeHTTP(tw, r.WithContext(ContextWithTx(ctx, tx)))
		})
	}
}

type txResponseWriter struct {
	http.ResponseWriter
	tx       pgx.Tx
	ctx      context.Context
	logger   *slog.Logger
	finished bool
	failed   bool
}

// finish ends the transaction according to status and reports whether the
// intended status can still be sent.
func (w *txResponseWriter) finish(status int) bool {
	if w.finished {
		return true
	}
	w.finished = true
	if status >= http.StatusInternalServerError {
		w.rollback()
		return true
	}
	if err := w.tx.Commit(w.ctx); err != nil {
		w.logger.Error("commit request tx", slog.Any("error", err))
		_ = w.tx.Rollback(w.ctx)
		return false
	}
	return true
}

func (w *txResponseWriter) rollback() {
	w.finished = true
	if err := w.tx.Rollback(w.ctx); err != nil && err != pgx.ErrTxClosed {
		w.logger.Warn("rollback request tx", slog.Any("error", err))
	}
}

func (w *txResponseWriter) WriteHeader(status int) {
	if w.failed {
		return
	}
	if !w.finish(status) {
		w.failed = true
		w.Header().Del("Location")
		w.Header().Del("Content-Disposition")
		httpx.Problem(w.ResponseWriter, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *txResponseWriter) Write(data []byte) (int, error) {
	if !w.finished {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(data), nil
	}
	return w.ResponseWriter.Write(data)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *txResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
