package indexer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/resolver"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

// BoundaryTable resolves a relative file path to the project that owns
// it, for cross-project relation assignment (spec.md §4.5 step 3). It
// must be able to answer for any path in the tree, not just the source
// file's own path, since a relation's destination can land anywhere
// under the project root.
type BoundaryTable func(path, fallback string) string

// ProjectFor looks up the owning project for path, defaulting to
// fallback (the source project) when the table is nil.
func (b BoundaryTable) ProjectFor(path, fallback string) string {
	if b == nil {
		return fallback
	}
	return b(path, fallback)
}

// RelationIndexer runs ExtractRelations over a parsed file through a
// known-file-filtering resolver, then writes the resulting rows via a
// RelationRepo (spec.md §4.5).
type RelationIndexer struct {
	Resolver  *resolver.Resolver
	Relations *store.RelationRepo
}

// NewRelationIndexer returns a RelationIndexer.
func NewRelationIndexer(r *resolver.Resolver, repo *store.RelationRepo) *RelationIndexer {
	return &RelationIndexer{Resolver: r, Relations: repo}
}

// Index builds the filtering resolver, runs ExtractRelations, and
// replaces the file's relation rows.
//
// projectRoot is the absolute directory relations are resolved
// relative to; aliases may be nil; known may be nil (an empty
// known-files set, so every relation is discarded — used when no
// files have been indexed yet); boundaries may be nil.
func (ri *RelationIndexer) Index(ctx context.Context, ex store.Execer, extractor extract.Extractor, ast extract.AST, project, file, projectRoot string, aliases *resolver.AliasTable, known *types.KnownFiles, boundaries BoundaryTable) error {
	absFile := filepath.Join(projectRoot, file)

	filteringResolver := func(specifier string) []string {
		candidates := ri.Resolver.Resolve(absFile, specifier, aliases)
		if len(candidates) == 0 && isBareSpecifier(specifier) {
			candidates = ri.Resolver.BareCandidates(projectRoot, specifier)
		}
		for _, candidate := range candidates {
			rel, ok := relativeToRoot(projectRoot, candidate)
			if !ok {
				continue
			}
			if known.Contains(project, rel) || known.ContainsAnyProject(rel) {
				return []string{candidate}
			}
		}
		return nil
	}

	raws, err := extractor.ExtractRelations(ast, absFile, filteringResolver)
	if err != nil {
		return err
	}

	rows := make([]types.RelationRecord, 0, len(raws))
	for _, raw := range raws {
		if len(raw.ResolvedPaths) == 0 {
			continue
		}
		destAbs := raw.ResolvedPaths[0]
		destRel, ok := relativeToRoot(projectRoot, destAbs)
		if !ok {
			continue // destination outside project root: discarded per spec.md §4.5 step 3
		}
		destProject := boundaries.ProjectFor(destRel, project)

		meta, err := json.Marshal(struct {
			Specifier       string `json:"specifier"`
			ImportedBinding string `json:"importedBinding,omitempty"`
			Line            int    `json:"line,omitempty"`
		}{
			Specifier:       raw.Specifier,
			ImportedBinding: bindingOrEmpty(raw.ImportedBinding),
			Line:            raw.Line,
		})
		if err != nil {
			meta = []byte("{}")
		}

		rows = append(rows, types.RelationRecord{
			Project:       project,
			Type:          raw.Type,
			SrcFilePath:   file,
			SrcSymbolName: raw.SrcSymbolName,
			DstProject:    destProject,
			DstFilePath:   destRel,
			DstSymbolName: nil,
			MetaJSON:      string(meta),
		})
	}

	return ri.Relations.ReplaceFileRelations(ctx, ex, project, file, rows)
}

func bindingOrEmpty(b *string) string {
	if b == nil {
		return ""
	}
	return *b
}

func isBareSpecifier(specifier string) bool {
	return !strings.HasPrefix(specifier, ".") && !strings.HasPrefix(specifier, "/")
}

// relativeToRoot reports path's location relative to root, and whether
// it lies within root at all.
func relativeToRoot(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
