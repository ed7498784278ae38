package indexer

import (
	"fmt"

	"github.com/standardbeagle/gildash/internal/types"
)

// Rename is a same-file symbol rename detected between two indexing
// passes over the same file (spec.md §4.6 step 4 "Call
// retargetRelations when a symbol is renamed inside a file").
type Rename struct {
	OldName string
	NewName string
}

// DetectRenames compares a file's previously indexed symbol rows
// against the rows just produced for the same file and reports every
// declaration whose name changed while its kind and declaration
// position did not. Kind+span is the only identity a line-scan
// extractor offers across passes without a real parser's stable
// declaration ids, so a rename is "same slot, new name" rather than a
// diff against file content.
func DetectRenames(old, fresh []types.SymbolRecord) []Rename {
	byPos := make(map[string]types.SymbolRecord, len(fresh))
	for _, s := range fresh {
		byPos[renameKey(s)] = s
	}

	var renames []Rename
	for _, o := range old {
		n, ok := byPos[renameKey(o)]
		if !ok || n.Name == o.Name {
			continue
		}
		renames = append(renames, Rename{OldName: o.Name, NewName: n.Name})
	}
	return renames
}

func renameKey(s types.SymbolRecord) string {
	return fmt.Sprintf("%s@%d", s.Kind, s.Span.Start)
}
