// Package store is gildash's embedded relational persistence layer:
// three primary tables (files, symbols, relations) plus the watcher
// ownership singleton, backed by modernc.org/sqlite (spec.md §4.3, §6).
//
// Grounded on agentic-research-mache's internal/ingest/sqlite_writer.go
// (PRAGMA tuning, prepared-statement batching) and
// josephgoksu-TaskWing's internal/memory/sqlite.go (FK-cascading
// schema shape) and internal/codeintel/repository.go (upsert/FTS
// patterns), restyled around gildash's own entities.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
)

// Execer is the subset of *sql.DB / *sql.Tx / *sql.Conn that
// repositories operate against, so the same repository code runs
// whether or not it is inside a transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a *sql.DB opened against a single gildash.db file, plus
// the single-writer transaction discipline spec.md §4.3 requires.
type Store struct {
	db *sql.DB

	busyTimeout time.Duration
	maxRetries  int

	writerMu sync.Mutex // serializes ImmediateTx: the store's own write-reservation lock

	closeOnce sync.Once
	closed    bool
}

// Options configures Open.
type Options struct {
	// BusyTimeout bounds how long SQLite itself waits for the write
	// lock before returning SQLITE_BUSY (spec.md §5 "busy timeout
	// (default 5s)").
	BusyTimeout time.Duration
	// MaxRetries bounds how many times the Tx/ImmediateTx wrapper
	// re-attempts an operation that failed with store-busy (spec.md §7,
	// §9 "Retry policy on busy": up to 5 attempts).
	MaxRetries int
}

// DefaultOptions returns spec-mandated defaults.
func DefaultOptions() Options {
	return Options{BusyTimeout: 5 * time.Second, MaxRetries: 5}
}

// Open opens (creating if absent) the store at path and runs the
// migration sequence from SPEC_FULL.md §4.3 / §9: enable WAL, disable
// FK, run migrations, integrity-check, re-enable FK. Any integrity
// violation aborts with a *errors.Error{Kind: errors.StoreIntegrity}.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultOptions().BusyTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultOptions().MaxRetries
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "store.Open", err)
	}
	db.SetMaxOpenConns(1) // single writer discipline; sqlite serializes anyway

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, gderrors.New(gderrors.IO, "store.Open:wal", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", opts.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, gderrors.New(gderrors.IO, "store.Open:busy_timeout", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		db.Close()
		return nil, gderrors.New(gderrors.IO, "store.Open:fk_off", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := checkIntegrity(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, gderrors.New(gderrors.IO, "store.Open:fk_on", err)
	}

	return &Store{db: db, busyTimeout: opts.BusyTimeout, maxRetries: opts.MaxRetries}, nil
}

func checkIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return gderrors.New(gderrors.StoreIntegrity, "store.Open:integrity_check", err)
	}
	defer rows.Close()
	if rows.Next() {
		return gderrors.New(gderrors.StoreIntegrity, "store.Open:integrity_check",
			fmt.Errorf("foreign key violations detected after migration"))
	}
	return rows.Err()
}

// Close is idempotent (spec.md §8 "Calling dispose twice ... observationally equal to calling it once").
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed = true
		err = s.db.Close()
	})
	return err
}

// DB exposes the underlying *sql.DB, e.g. for read-only queries that
// do not need transactional scope.
func (s *Store) DB() *sql.DB { return s.db }

// txKey threads the active Execer through context so nested Tx/
// ImmediateTx calls detect an already-open transaction and become
// no-ops, per spec.md §4.3 "nested transaction calls must behave as
// savepoint-free no-ops for the inner call."
type txKey struct{}

func withExecer(ctx context.Context, ex Execer) context.Context {
	return context.WithValue(ctx, txKey{}, ex)
}

func execerFromContext(ctx context.Context) (Execer, bool) {
	ex, ok := ctx.Value(txKey{}).(Execer)
	return ex, ok
}

// Tx runs fn inside a deferred (BEGIN DEFERRED) transaction, retrying
// on SQLITE_BUSY up to MaxRetries times with exponential backoff
// (spec.md §9 "Retry policy on busy"), grounded on the teacher's
// internal/indexing/index_locks.go acquireLockWithRetry idiom.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, ex Execer) error) error {
	if existing, ok := execerFromContext(ctx); ok {
		return fn(ctx, existing)
	}
	return s.runTx(ctx, false, fn)
}

// ImmediateTx runs fn inside a write-reserving (BEGIN IMMEDIATE)
// transaction (spec.md §4.3), additionally serialized in-process by
// writerMu so that a single coordinator process never issues two
// immediate transactions concurrently.
func (s *Store) ImmediateTx(ctx context.Context, fn func(ctx context.Context, ex Execer) error) error {
	if existing, ok := execerFromContext(ctx); ok {
		return fn(ctx, existing)
	}
	s.writerMu.Lock()
	defer s.writerMu.Unlock()
	return s.runTx(ctx, true, fn)
}

func (s *Store) runTx(ctx context.Context, immediate bool, fn func(ctx context.Context, ex Execer) error) error {
	if s.closed {
		return gderrors.New(gderrors.Closed, "store.Tx", fmt.Errorf("store is closed"))
	}

	var lastErr error
	backoff := 10 * time.Millisecond
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.attemptTx(ctx, immediate, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !gderrors.IsKind(err, gderrors.StoreBusy) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return lastErr
}

func (s *Store) attemptTx(ctx context.Context, immediate bool, fn func(ctx context.Context, ex Execer) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return gderrors.New(gderrors.IO, "store.Tx:conn", err)
	}
	defer conn.Close()

	begin := "BEGIN DEFERRED"
	if immediate {
		begin = "BEGIN IMMEDIATE"
	}
	if _, err := conn.ExecContext(ctx, begin); err != nil {
		if isBusy(err) {
			return gderrors.New(gderrors.StoreBusy, "store.Tx:begin", err)
		}
		return gderrors.New(gderrors.IO, "store.Tx:begin", err)
	}

	nestedCtx := withExecer(ctx, conn)
	if err := fn(nestedCtx, conn); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		if isBusy(err) {
			return gderrors.New(gderrors.StoreBusy, "store.Tx:commit", err)
		}
		return gderrors.New(gderrors.IO, "store.Tx:commit", err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy")
}
