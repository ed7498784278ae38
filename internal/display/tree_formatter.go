// Package display renders dependency-graph query results for the CLI
// (SPEC_FULL.md §6 "query deps|dependents|cycles|impact"). Grounded on
// the teacher's internal/display/tree_formatter.go ASCII-tree idiom,
// restyled around types.FileKey edges instead of function call trees.
package display

import (
	"fmt"
	"strings"

	"github.com/standardbeagle/gildash/internal/types"
)

// TreeFormatter renders dependency-graph query results as ASCII trees
// and lists.
type TreeFormatter struct {
	ShowDepth bool
}

// NewTreeFormatter returns a TreeFormatter.
func NewTreeFormatter(showDepth bool) *TreeFormatter {
	return &TreeFormatter{ShowDepth: showDepth}
}

// FormatList renders files as a flat, one-per-line list (used for
// "deps"/"dependents"/"impact" which return a flat set, not a tree).
func (tf *TreeFormatter) FormatList(root types.FileKey, files []types.FileKey) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", root.Path)
	for i, f := range files {
		branch := "├─→ "
		if i == len(files)-1 {
			branch = "└─→ "
		}
		sb.WriteString(branch)
		sb.WriteString(f.Path)
		if f.Project != root.Project {
			fmt.Fprintf(&sb, " (%s)", f.Project)
		}
		sb.WriteString("\n")
	}
	if len(files) == 0 {
		sb.WriteString("(none)\n")
	}
	return sb.String()
}

// FormatCycle renders one cycle as an arrow-joined path, closing the
// loop back to its first node. A cycle that already ends on its first
// node (the form graph.CyclePaths returns) is not closed a second time.
func (tf *TreeFormatter) FormatCycle(cycle []types.FileKey) string {
	if len(cycle) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cycle)+1)
	for _, f := range cycle {
		parts = append(parts, f.Path)
	}
	if len(cycle) < 2 || cycle[len(cycle)-1] != cycle[0] {
		parts = append(parts, cycle[0].Path)
	}
	return strings.Join(parts, " → ")
}

// FormatCycles renders every cycle, numbered, one per paragraph.
func (tf *TreeFormatter) FormatCycles(cycles [][]types.FileKey) string {
	if len(cycles) == 0 {
		return "no cycles found\n"
	}
	var sb strings.Builder
	for i, c := range cycles {
		fmt.Fprintf(&sb, "%d: %s\n", i+1, tf.FormatCycle(c))
	}
	return sb.String()
}
