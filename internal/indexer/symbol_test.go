package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gildash.db")
	s, err := store.Open(context.Background(), path, store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSymbolIndexerWritesFunctionSignature(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files := store.NewFileRepo()
	require.NoError(t, files.Upsert(ctx, s.DB(), types.FileRecord{
		Project: "proj", Path: "a.ts", ContentHash: "h1", UpdatedAt: "now",
	}))

	extractor := extract.NewStaticExtractor()
	ast, err := extractor.Parse("a.ts", []byte("export async function foo(a, b) {}\n"))
	require.NoError(t, err)

	si := NewSymbolIndexer(store.NewSymbolRepo())
	require.NoError(t, si.Index(ctx, s.DB(), extractor, "proj", "a.ts", "h1", ast))

	got, err := store.NewSymbolRepo().GetFileSymbols(ctx, s.DB(), "proj", "a.ts")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "foo", got[0].Name)
	require.NotNil(t, got[0].Signature)
	assert.Equal(t, "params:2|async:1", *got[0].Signature)
	assert.True(t, got[0].IsExported)
}

func TestSymbolIndexerNonCallableHasNilSignature(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files := store.NewFileRepo()
	require.NoError(t, files.Upsert(ctx, s.DB(), types.FileRecord{
		Project: "proj", Path: "a.ts", ContentHash: "h1", UpdatedAt: "now",
	}))

	extractor := extract.NewStaticExtractor()
	ast, err := extractor.Parse("a.ts", []byte("export interface Foo {}\n"))
	require.NoError(t, err)

	si := NewSymbolIndexer(store.NewSymbolRepo())
	require.NoError(t, si.Index(ctx, s.DB(), extractor, "proj", "a.ts", "h1", ast))

	got, err := store.NewSymbolRepo().GetFileSymbols(ctx, s.DB(), "proj", "a.ts")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Signature)
}

func TestSymbolIndexerSkipsWhenHashUnchanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files := store.NewFileRepo()
	require.NoError(t, files.Upsert(ctx, s.DB(), types.FileRecord{
		Project: "proj", Path: "a.ts", ContentHash: "h1", UpdatedAt: "now",
	}))

	extractor := extract.NewStaticExtractor()
	ast, err := extractor.Parse("a.ts", []byte("export function foo() {}\n"))
	require.NoError(t, err)

	si := NewSymbolIndexer(store.NewSymbolRepo())
	require.NoError(t, si.Index(ctx, s.DB(), extractor, "proj", "a.ts", "h1", ast))

	ast2, err := extractor.Parse("a.ts", []byte("export function bar() {}\n"))
	require.NoError(t, err)
	require.NoError(t, si.Index(ctx, s.DB(), extractor, "proj", "a.ts", "h1", ast2))

	got, err := store.NewSymbolRepo().GetFileSymbols(ctx, s.DB(), "proj", "a.ts")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "foo", got[0].Name)
}
