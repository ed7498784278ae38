// Package ownership implements the watcher ownership protocol
// (spec.md §4.8): at most one coordinator process per store owns the
// filesystem watcher; the rest poll and act as readers.
package ownership

import (
	"context"
	"database/sql"
	"errors"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

// StaleAfter is the default heartbeat staleness threshold (spec.md §4.8).
const StaleAfter = 60 * time.Second

// HeartbeatInterval is the owner's refresh cadence: strictly less than
// half StaleAfter, per spec.md §4.8.
const HeartbeatInterval = 15 * time.Second

// NewInstanceID returns a random opaque per-process identifier.
func NewInstanceID() string { return uuid.NewString() }

// LivenessProbe reports whether pid is alive. The default implementation
// sends signal 0 (spec.md §4.8 step 3).
type LivenessProbe func(pid int) bool

// DefaultLivenessProbe sends syscall.Signal(0): ESRCH means dead, any
// other error (including EPERM) means alive, unknown errors default to
// alive to be conservative.
func DefaultLivenessProbe(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.ESRCH {
		return false
	}
	return true
}

// Options configures Acquire.
//
// StaleAfterSeconds is a pointer so an explicit 0 (spec.md §4.8: "a
// caller-supplied staleAfterSeconds of 0 always promotes the caller to
// owner, regardless of the current heartbeat's age") is distinguishable
// from "unset", which falls back to StaleAfter. A plain int field
// cannot make that distinction since its zero value is indistinguishable
// from an explicit 0.
type Options struct {
	Now               func() time.Time
	IsAlive           LivenessProbe
	StaleAfterSeconds *int
	InstanceID        string
}

// staleAfterSeconds returns the effective threshold: the explicit
// value when set (including 0), StaleAfter otherwise.
func (o *Options) staleAfterSeconds() int {
	if o.StaleAfterSeconds != nil {
		return *o.StaleAfterSeconds
	}
	return int(StaleAfter.Seconds())
}

func (o *Options) withDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.IsAlive == nil {
		o.IsAlive = DefaultLivenessProbe
	}
}

// Manager runs the ownership protocol against a Store (spec.md §4.8).
type Manager struct {
	store *store.Store
}

// NewManager returns a Manager backed by s.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

const timeLayout = time.RFC3339

// Acquire runs the acquire algorithm (spec.md §4.8) inside an
// immediate (write-reserving) transaction and returns the resulting
// Role.
func (m *Manager) Acquire(ctx context.Context, pid int, opts Options) (types.Role, error) {
	opts.withDefaults()

	var role types.Role
	err := m.store.ImmediateTx(ctx, func(ctx context.Context, ex store.Execer) error {
		row, err := getOwnerRow(ctx, ex)
		if err != nil {
			return err
		}
		now := opts.Now()

		if row == nil {
			role = types.RoleOwner
			return putOwnerRow(ctx, ex, pid, now, opts.InstanceID)
		}

		ageSeconds := heartbeatAgeSeconds(row.HeartbeatAt, now)
		pidAlive := opts.IsAlive(row.PID)

		// PID-recycling branch (spec.md §4.8 step 4): both sides carry
		// distinct instance identifiers and the owning pid differs from
		// the caller's — a new process reused an old pid.
		if pidAlive && row.InstanceID != nil && opts.InstanceID != "" &&
			*row.InstanceID != opts.InstanceID && row.PID != pid {
			role = types.RoleOwner
			return putOwnerRow(ctx, ex, pid, now, opts.InstanceID)
		}

		if pidAlive && ageSeconds < opts.staleAfterSeconds() {
			role = types.RoleReader
			return nil
		}

		role = types.RoleOwner
		return putOwnerRow(ctx, ex, pid, now, opts.InstanceID)
	})
	if err != nil {
		return types.RoleReader, err
	}
	return role, nil
}

// UpdateHeartbeat refreshes the owner row's timestamp iff its pid
// equals pid; no-op otherwise (spec.md §4.8).
func (m *Manager) UpdateHeartbeat(ctx context.Context, pid int, now time.Time) error {
	return m.store.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		_, err := ex.ExecContext(ctx, `UPDATE watcher_owner SET heartbeat_at = ? WHERE pid = ?`,
			now.UTC().Format(timeLayout), pid)
		return err
	})
}

// Release deletes the owner row iff its pid equals pid (spec.md §4.8).
func (m *Manager) Release(ctx context.Context, pid int) error {
	return m.store.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		_, err := ex.ExecContext(ctx, `DELETE FROM watcher_owner WHERE pid = ?`, pid)
		return err
	})
}

func getOwnerRow(ctx context.Context, ex store.Execer) (*types.WatcherOwnerRow, error) {
	row := ex.QueryRowContext(ctx, `SELECT pid, heartbeat_at, instance_id FROM watcher_owner LIMIT 1`)
	var out types.WatcherOwnerRow
	var instanceID *string
	if err := row.Scan(&out.PID, &out.HeartbeatAt, &instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.InstanceID = instanceID
	return &out, nil
}

func putOwnerRow(ctx context.Context, ex store.Execer, pid int, now time.Time, instanceID string) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM watcher_owner`); err != nil {
		return err
	}
	var idParam any
	if instanceID != "" {
		idParam = instanceID
	}
	_, err := ex.ExecContext(ctx, `INSERT INTO watcher_owner (pid, heartbeat_at, instance_id) VALUES (?, ?, ?)`,
		pid, now.UTC().Format(timeLayout), idParam)
	return err
}

// heartbeatAgeSeconds computes now - parse(heartbeatAt) in whole
// seconds; an unparsable timestamp is treated as age 0 (spec.md §4.8
// step 2).
func heartbeatAgeSeconds(heartbeatAt string, now time.Time) int {
	parsed, err := time.Parse(timeLayout, heartbeatAt)
	if err != nil {
		return 0
	}
	age := now.Sub(parsed)
	if age < 0 {
		return 0
	}
	return int(age.Seconds())
}

