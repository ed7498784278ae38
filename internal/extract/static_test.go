package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/gildash/internal/types"
)

// identityResolve echoes the specifier back as its own single
// candidate, enough to exercise resolution wiring without a real
// resolver/known-file filter.
func identityResolve(specifier string) []string { return []string{specifier} }

func TestExtractRelationsHeritageResolvesThroughImportMap(t *testing.T) {
	s := NewStaticExtractor()
	src := "import { Base } from './base'\n\nclass Foo extends Base {}\n"
	ast, err := s.Parse("a.ts", []byte(src))
	require.NoError(t, err)

	rels, err := s.ExtractRelations(ast, "a.ts", identityResolve)
	require.NoError(t, err)

	var heritage *RawRelation
	for i := range rels {
		if rels[i].Type == types.RelTypeReferences {
			heritage = &rels[i]
		}
	}
	require.NotNil(t, heritage, "expected a type-references relation for the extends clause")
	assert.Equal(t, "./base", heritage.Specifier)
	assert.Equal(t, []string{"./base"}, heritage.ResolvedPaths)
	require.NotNil(t, heritage.SrcSymbolName)
	assert.Equal(t, "Foo", *heritage.SrcSymbolName)
}

func TestExtractRelationsHeritageLocalTargetIsNotCrossFile(t *testing.T) {
	s := NewStaticExtractor()
	src := "class Base {}\n\nclass Foo extends Base {}\n"
	ast, err := s.Parse("a.ts", []byte(src))
	require.NoError(t, err)

	rels, err := s.ExtractRelations(ast, "a.ts", identityResolve)
	require.NoError(t, err)

	for _, r := range rels {
		assert.NotEqual(t, types.RelTypeReferences, r.Type, "a same-file heritage target must not produce a relation")
	}
}

func TestExtractRelationsCallsResolveThroughImportMap(t *testing.T) {
	s := NewStaticExtractor()
	src := "import { helper } from './util'\n\nexport function main() {\n\thelper()\n}\n"
	ast, err := s.Parse("a.ts", []byte(src))
	require.NoError(t, err)

	rels, err := s.ExtractRelations(ast, "a.ts", identityResolve)
	require.NoError(t, err)

	var call *RawRelation
	for i := range rels {
		if rels[i].Type == types.RelCalls {
			call = &rels[i]
		}
	}
	require.NotNil(t, call, "expected a calls relation for helper()")
	assert.Equal(t, "./util", call.Specifier)
	require.NotNil(t, call.SrcSymbolName)
	assert.Equal(t, "main", *call.SrcSymbolName)
}

func TestExtractRelationsCallsIgnoreLocalAndKeywordNames(t *testing.T) {
	s := NewStaticExtractor()
	src := "export function main() {\n\tif (ready()) {\n\t\tlocalHelper()\n\t}\n}\n"
	ast, err := s.Parse("a.ts", []byte(src))
	require.NoError(t, err)

	rels, err := s.ExtractRelations(ast, "a.ts", identityResolve)
	require.NoError(t, err)

	for _, r := range rels {
		assert.NotEqual(t, types.RelCalls, r.Type, "calls to non-imported names must not produce relations")
	}
}
