package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gildash.db")
	s, err := Open(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gildash.db")
	ctx := context.Background()

	s1, err := Open(ctx, path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, path, DefaultOptions())
	require.NoError(t, err)
	defer s2.Close()

	var n int
	row := s2.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations")
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestClosedStoreRejectsTx(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	err := s.Tx(context.Background(), func(ctx context.Context, ex Execer) error { return nil })
	require.Error(t, err)
	assert.True(t, gderrors.IsKind(err, gderrors.Closed))
}

func TestNestedTxIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var innerCalls int
	err := s.Tx(ctx, func(ctx context.Context, ex Execer) error {
		return s.Tx(ctx, func(ctx context.Context, ex Execer) error {
			innerCalls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, innerCalls)
}

func TestImmediateTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files := NewFileRepo()
	sentinel := errors.New("boom")
	err := s.ImmediateTx(ctx, func(ctx context.Context, ex Execer) error {
		require.NoError(t, files.Upsert(ctx, ex, testFileRecord("p", "a.ts")))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := files.Get(ctx, s.DB(), "p", "a.ts")
	require.NoError(t, err)
	assert.Nil(t, got)
}
