// Package indexer implements the symbol and relation indexers
// (spec.md §4.4, §4.5): the translation from an Extractor's descriptors
// into store rows.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/fingerprint"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

// SymbolIndexer runs ExtractSymbols over a parsed file and writes the
// resulting rows via a SymbolRepo (spec.md §4.4).
type SymbolIndexer struct {
	Symbols *store.SymbolRepo
}

// NewSymbolIndexer returns a SymbolIndexer backed by repo.
func NewSymbolIndexer(repo *store.SymbolRepo) *SymbolIndexer {
	return &SymbolIndexer{Symbols: repo}
}

// Index extracts symbols from ast and replaces the file's rows,
// relying on the repository's content-hash short-circuit for
// idempotence (spec.md §4.4 step 4).
func (si *SymbolIndexer) Index(ctx context.Context, ex store.Execer, extractor extract.Extractor, project, file, contentHash string, ast extract.AST) error {
	descs, err := extractor.ExtractSymbols(ast)
	if err != nil {
		return err
	}

	rows := make([]types.SymbolRecord, 0, len(descs))
	for _, d := range descs {
		rows = append(rows, buildRow(d.Name, d)...)
	}
	return si.Symbols.ReplaceFileSymbols(ctx, ex, project, file, contentHash, rows)
}

// buildRow turns one descriptor into its own row, plus one flattened,
// dotted-name row per member (spec.md §4.4 step 3).
func buildRow(name string, d extract.SymbolDescriptor) []types.SymbolRecord {
	sig := signatureFor(d)
	detail := detailJSON(d)
	rec := types.SymbolRecord{
		Name:        name,
		Kind:        d.Kind,
		Span:        d.Span,
		IsExported:  d.Exported,
		Signature:   sig,
		Fingerprint: fingerprint.Symbol(name, string(d.Kind), sigOrEmpty(sig), detail),
		DetailJSON:  detail,
		Modifiers:   d.Modifiers,
	}
	out := []types.SymbolRecord{rec}

	// Each member flattens into its own dotted-name row (spec.md §4.4
	// step 3); its Kind already carries the method kind
	// (getter/setter/constructor) when the extractor set one, else the
	// raw declaration kind, and its Modifiers already carry
	// visibility/isStatic/isReadonly.
	for _, member := range d.Members {
		dotted := fmt.Sprintf("%s.%s", name, member.Name)
		out = append(out, buildRow(dotted, member)...)
	}
	return out
}

// signatureFor computes "params:<n>|async:<0|1>" for callables and nil
// otherwise (spec.md §4.4 step 2).
func signatureFor(d extract.SymbolDescriptor) *string {
	if !isCallable(d.Kind) {
		return nil
	}
	s := fmt.Sprintf("params:%d|async:%d", len(d.Parameters), boolToBit(d.Async))
	return &s
}

func sigOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isCallable(kind types.SymbolKind) bool {
	switch kind {
	case types.KindFunction, types.KindMethod, types.KindConstructor, types.KindGetter, types.KindSetter:
		return true
	default:
		return false
	}
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// detailJSON captures the descriptor fields not otherwise stored as
// columns, matching the fingerprint formula's "detailJSON" input.
func detailJSON(d extract.SymbolDescriptor) string {
	detail := struct {
		ReturnType string   `json:"returnType,omitempty"`
		Heritage   []string `json:"heritage,omitempty"`
		Decorators []string `json:"decorators,omitempty"`
		JSDoc      string   `json:"jsdoc,omitempty"`
	}{
		ReturnType: d.ReturnType,
		Heritage:   d.Heritage,
		Decorators: d.Decorators,
		JSDoc:      d.JSDoc,
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return "{}"
	}
	return string(b)
}
