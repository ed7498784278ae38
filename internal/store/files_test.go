package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/gildash/internal/types"
)

func testFileRecord(project, path string) types.FileRecord {
	return types.FileRecord{
		Project:     project,
		Path:        path,
		MTimeMs:     1000,
		Size:        42,
		ContentHash: "abc123",
		UpdatedAt:   "2026-07-31T00:00:00Z",
	}
}

func TestFileUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	files := NewFileRepo()

	rec := testFileRecord("proj", "src/a.ts")
	require.NoError(t, files.Upsert(ctx, s.DB(), rec))

	got, err := files.Get(ctx, s.DB(), "proj", "src/a.ts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ContentHash, got.ContentHash)
	assert.Equal(t, rec.Size, got.Size)
}

func TestFileUpsertOverwritesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	files := NewFileRepo()

	rec := testFileRecord("proj", "src/a.ts")
	require.NoError(t, files.Upsert(ctx, s.DB(), rec))

	rec.ContentHash = "def456"
	rec.Size = 99
	require.NoError(t, files.Upsert(ctx, s.DB(), rec))

	got, err := files.Get(ctx, s.DB(), "proj", "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.ContentHash)
	assert.Equal(t, int64(99), got.Size)
}

func TestFileGetMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	files := NewFileRepo()

	got, err := files.Get(context.Background(), s.DB(), "proj", "missing.ts")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileDeleteCascadesSymbols(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	files := NewFileRepo()
	symbols := NewSymbolRepo()

	require.NoError(t, files.Upsert(ctx, s.DB(), testFileRecord("proj", "a.ts")))
	sig := "function foo()"
	require.NoError(t, symbols.ReplaceFileSymbols(ctx, s.DB(), "proj", "a.ts", "hash1", []types.SymbolRecord{
		{Name: "foo", Kind: types.KindFunction, Span: types.Span{Start: 1, End: 1}, IsExported: true, Signature: &sig, Fingerprint: "fp1", DetailJSON: "{}"},
	}))

	require.NoError(t, files.Delete(ctx, s.DB(), "proj", "a.ts"))

	syms, err := symbols.GetFileSymbols(ctx, s.DB(), "proj", "a.ts")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestFileListAllAndMapByPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	files := NewFileRepo()

	require.NoError(t, files.Upsert(ctx, s.DB(), testFileRecord("proj", "a.ts")))
	require.NoError(t, files.Upsert(ctx, s.DB(), testFileRecord("proj", "b.ts")))

	all, err := files.ListAll(ctx, s.DB(), "proj")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	m, err := files.MapByPath(ctx, s.DB(), "proj")
	require.NoError(t, err)
	assert.Contains(t, m, "a.ts")
	assert.Contains(t, m, "b.ts")
}
