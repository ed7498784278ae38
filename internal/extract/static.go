package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/standardbeagle/gildash/internal/types"
)

// StaticExtractor is a line-scan pseudo-parser used in place of the
// real (out-of-scope) AST parser. It understands a small, regular
// subset of TypeScript declarations and import/export forms — enough
// to exercise the indexer and coordinator end-to-end in tests without
// depending on a real parser. AST here is simply the source text.
//
// Grounded on the teacher's own pattern of injecting a FileProvider/
// SymbolProvider test double (internal/interfaces/indexer.go) rather
// than wiring a real parser into unit tests.
type StaticExtractor struct{}

// NewStaticExtractor returns a StaticExtractor.
func NewStaticExtractor() *StaticExtractor { return &StaticExtractor{} }

var _ Extractor = (*StaticExtractor)(nil)

func (s *StaticExtractor) Parse(path string, content []byte) (AST, error) {
	return string(content), nil
}

var declRe = regexp.MustCompile(
	`^\s*(export\s+)?(default\s+)?(async\s+)?(function|class|interface|enum|type|const|let|var)\s+([A-Za-z_$][\w$]*)`)

var classHeritageRe = regexp.MustCompile(`class\s+[A-Za-z_$][\w$]*\s+(extends\s+([A-Za-z_$][\w$]*))?\s*(implements\s+([A-Za-z_$][\w$,\s]*))?`)

func kindFor(keyword string) types.SymbolKind {
	switch keyword {
	case "function":
		return types.KindFunction
	case "class":
		return types.KindClass
	case "interface":
		return types.KindInterface
	case "enum":
		return types.KindEnum
	case "type":
		return types.KindType
	default:
		return types.KindVariable
	}
}

func (s *StaticExtractor) ExtractSymbols(ast AST) ([]SymbolDescriptor, error) {
	src, _ := ast.(string)
	lines := strings.Split(src, "\n")
	var out []SymbolDescriptor

	for i, line := range lines {
		m := declRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		exported := m[1] != ""
		async := m[3] != ""
		keyword := m[4]
		name := m[5]

		desc := SymbolDescriptor{
			Name:     name,
			Kind:     kindFor(keyword),
			Span:     types.Span{Start: i + 1, End: i + 1},
			Exported: exported,
			Async:    async,
		}
		if exported {
			desc.Modifiers |= types.ModExported
		}
		if async {
			desc.Modifiers |= types.ModAsync
			desc.Signature0()
		}
		if keyword == "function" {
			desc.Parameters = extractParams(line)
		}
		if keyword == "class" {
			if hm := classHeritageRe.FindStringSubmatch(line); hm != nil {
				if hm[2] != "" {
					desc.Heritage = append(desc.Heritage, hm[2])
				}
				if hm[4] != "" {
					for _, n := range strings.Split(hm[4], ",") {
						n = strings.TrimSpace(n)
						if n != "" {
							desc.Heritage = append(desc.Heritage, n)
						}
					}
				}
			}
		}
		out = append(out, desc)
	}
	return out, nil
}

// Signature0 is a no-op hook kept for symmetry with richer extractors
// that compute per-symbol derived fields at extraction time.
func (d *SymbolDescriptor) Signature0() {}

var paramsRe = regexp.MustCompile(`\(([^)]*)\)`)

func extractParams(line string) []Parameter {
	m := paramsRe.FindStringSubmatch(line)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return nil
	}
	parts := strings.Split(m[1], ",")
	out := make([]Parameter, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		nameType := strings.SplitN(p, ":", 2)
		param := Parameter{Name: strings.TrimSpace(nameType[0])}
		if len(nameType) == 2 {
			param.Type = strings.TrimSpace(nameType[1])
		}
		out = append(out, param)
	}
	return out
}

var (
	namedImportRe     = regexp.MustCompile(`^\s*import\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	defaultImportRe   = regexp.MustCompile(`^\s*import\s+([A-Za-z_$][\w$]*)\s*from\s*['"]([^'"]+)['"]`)
	namespaceImportRe = regexp.MustCompile(`^\s*import\s*\*\s*as\s+([A-Za-z_$][\w$]*)\s*from\s*['"]([^'"]+)['"]`)
	sideEffectImportRe = regexp.MustCompile(`^\s*import\s*['"]([^'"]+)['"]`)
	reExportRe        = regexp.MustCompile(`^\s*export\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
)

func (s *StaticExtractor) ExtractRelations(ast AST, path string, resolve ResolveFunc) ([]RawRelation, error) {
	src, _ := ast.(string)
	lines := strings.Split(src, "\n")
	var out []RawRelation

	// Per-file specifier map, binding name -> import specifier, so
	// heritage clauses and call expressions (which reference bindings,
	// not specifiers) can be resolved through the same resolver as
	// imports (spec.md §4.2 "destinations are resolved through a
	// per-file import map built from the same resolver").
	imports := buildImportMap(lines)

	var currentSymbol string

	for i, line := range lines {
		lineNo := i + 1

		if m := namedImportRe.FindStringSubmatch(line); m != nil {
			for _, binding := range strings.Split(m[1], ",") {
				binding = strings.TrimSpace(binding)
				if binding == "" {
					continue
				}
				b := binding
				out = append(out, relationFor(types.RelImports, m[2], &b, lineNo, resolve))
			}
			continue
		}
		if m := defaultImportRe.FindStringSubmatch(line); m != nil {
			b := "default"
			out = append(out, relationFor(types.RelImports, m[2], &b, lineNo, resolve))
			continue
		}
		if m := namespaceImportRe.FindStringSubmatch(line); m != nil {
			b := "*"
			out = append(out, relationFor(types.RelImports, m[2], &b, lineNo, resolve))
			continue
		}
		if m := reExportRe.FindStringSubmatch(line); m != nil {
			for _, binding := range strings.Split(m[1], ",") {
				binding = strings.TrimSpace(binding)
				if binding == "" {
					continue
				}
				b := binding
				out = append(out, relationFor(types.RelReExports, m[2], &b, lineNo, resolve))
			}
			continue
		}
		if m := sideEffectImportRe.FindStringSubmatch(line); m != nil {
			out = append(out, relationFor(types.RelImports, m[1], nil, lineNo, resolve))
			continue
		}
		if m := declRe.FindStringSubmatch(line); m != nil {
			currentSymbol = m[5]
			continue
		}

		out = append(out, extractCalls(line, currentSymbol, imports, resolve)...)
	}

	// class heritage -> type-references relations, resolved through the
	// per-file import map: a heritage target only produces a relation
	// when it names an imported binding, since a target declared in the
	// same file is not a cross-file edge.
	for _, desc := range mustSymbols(s, ast) {
		for _, target := range desc.Heritage {
			specifier, ok := imports[target]
			if !ok {
				continue
			}
			name := desc.Name
			var candidates []string
			if resolve != nil {
				candidates = resolve(specifier)
			}
			out = append(out, RawRelation{
				Type:          types.RelTypeReferences,
				SrcSymbolName: &name,
				Specifier:     specifier,
				ResolvedPaths: candidates,
			})
		}
	}

	return out, nil
}

func mustSymbols(s *StaticExtractor, ast AST) []SymbolDescriptor {
	syms, _ := s.ExtractSymbols(ast)
	return syms
}

// buildImportMap scans a file's import declarations and returns the
// local binding name (the "as"-aliased name when present) mapped to
// the specifier it came from.
func buildImportMap(lines []string) map[string]string {
	out := make(map[string]string)
	for _, line := range lines {
		if m := namedImportRe.FindStringSubmatch(line); m != nil {
			for _, binding := range strings.Split(m[1], ",") {
				binding = strings.TrimSpace(binding)
				if binding == "" {
					continue
				}
				fields := strings.Fields(binding)
				out[fields[len(fields)-1]] = m[2]
			}
			continue
		}
		if m := defaultImportRe.FindStringSubmatch(line); m != nil {
			out[m[1]] = m[2]
			continue
		}
		if m := namespaceImportRe.FindStringSubmatch(line); m != nil {
			out[m[1]] = m[2]
			continue
		}
	}
	return out
}

var callRe = regexp.MustCompile(`\b([A-Za-z_$][\w$]*)\s*\(`)

// jsKeywords excludes control-flow and declaration keywords from being
// mistaken for call targets by callRe.
var jsKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "new": true, "in": true,
	"of": true, "instanceof": true, "await": true, "yield": true, "class": true,
	"interface": true, "enum": true, "import": true, "export": true, "from": true,
	"as": true, "extends": true, "implements": true, "constructor": true,
	"super": true, "const": true, "let": true, "var": true, "else": true,
	"do": true, "try": true, "finally": true, "throw": true, "delete": true,
	"void": true,
}

// extractCalls finds call expressions on line that invoke an imported
// binding, attributing each to enclosingSymbol (the nearest preceding
// declaration, possibly empty for file-level calls).
func extractCalls(line, enclosingSymbol string, imports map[string]string, resolve ResolveFunc) []RawRelation {
	var out []RawRelation
	for _, m := range callRe.FindAllStringSubmatch(line, -1) {
		name := m[1]
		if jsKeywords[name] {
			continue
		}
		specifier, ok := imports[name]
		if !ok {
			continue
		}
		var src *string
		if enclosingSymbol != "" {
			s := enclosingSymbol
			src = &s
		}
		var candidates []string
		if resolve != nil {
			candidates = resolve(specifier)
		}
		out = append(out, RawRelation{
			Type:          types.RelCalls,
			SrcSymbolName: src,
			Specifier:     specifier,
			ResolvedPaths: candidates,
		})
	}
	return out
}

func relationFor(relType types.RelationType, specifier string, binding *string, line int, resolve ResolveFunc) RawRelation {
	var candidates []string
	if resolve != nil {
		candidates = resolve(specifier)
	}
	return RawRelation{
		Type:            relType,
		Specifier:       specifier,
		ImportedBinding: binding,
		ResolvedPaths:   candidates,
		Line:            line,
	}
}

// itoa is a tiny helper kept local to avoid importing strconv in call
// sites that only ever format small line numbers.
func itoa(i int) string { return strconv.Itoa(i) }
