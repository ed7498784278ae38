// Package extract defines the extractor adapter interface (SPEC_FULL.md
// §4.2). The real AST parser is an external collaborator out of scope
// for this module (spec.md §1); only the interface through which the
// indexer consumes a parsed file is specified here, following the
// teacher's pattern of injecting small interfaces for testability
// (internal/interfaces/indexer.go's FileProvider/SymbolProvider) per
// SPEC_FULL.md §9 design note "Dynamic injection of
// resolvers/repositories".
package extract

import "github.com/standardbeagle/gildash/internal/types"

// AST is deliberately opaque: this module never inspects parser
// internals, only what an Extractor implementation reports about one.
type AST any

// Parameter describes one formal parameter of a callable symbol.
type Parameter struct {
	Name string
	Type string
}

// SymbolDescriptor is one declaration reported by ExtractSymbols,
// before the symbol indexer computes its signature/fingerprint rows
// (spec.md §4.2).
type SymbolDescriptor struct {
	Name       string
	Kind       types.SymbolKind
	Span       types.Span
	Exported   bool
	Modifiers  types.Modifier
	Parameters []Parameter
	ReturnType string
	Async      bool
	Members    []SymbolDescriptor // flattened into dotted-name rows by the symbol indexer
	Heritage   []string           // extends/implements target names
	Decorators []string
	JSDoc      string
}

// ResolveFunc is the injected resolver a relation extraction pass calls
// to turn an import/heritage/call specifier into candidate absolute
// paths. The relation indexer supplies the filtering resolver (§4.5);
// bare ExtractRelations callers may supply the plain path resolver.
type ResolveFunc func(specifier string) []string

// RawRelation is one unresolved edge reported by ExtractRelations; the
// relation indexer fills in destination project and path (spec.md §4.2,
// §4.5). It does not copy ImportedBinding into the destination symbol,
// which it leaves nil.
type RawRelation struct {
	Type            types.RelationType
	SrcSymbolName   *string // nil for file-level relations (plain imports)
	Specifier       string  // the import/heritage/call specifier as written
	ImportedBinding *string // "default", "*", or the named binding
	ResolvedPaths   []string
	Line            int
}

// Extractor converts a parsed AST into symbol and relation descriptors.
// Implementations are pure and synchronous; no I/O, no resolver calls
// beyond invoking the injected ResolveFunc.
type Extractor interface {
	// ExtractSymbols returns every top-level declaration in ast.
	ExtractSymbols(ast AST) ([]SymbolDescriptor, error)

	// ExtractRelations returns every raw relation in ast. path is the
	// file's absolute path (resolver candidates are built against its
	// directory); resolve is the injected resolver and may be nil.
	ExtractRelations(ast AST, path string, resolve ResolveFunc) ([]RawRelation, error)

	// Parse turns raw file content into an AST. Parse failures are
	// reported as *errors.Error{Kind: errors.Parse} by callers.
	Parse(path string, content []byte) (AST, error)
}
