package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DetectBuildOutputs scans root for package.json/tsconfig.json/vite
// config hints and returns glob exclusion patterns for their declared
// output directories, adapted from the teacher's BuildArtifactDetector
// (JS/TS-specific half only — gildash only ever indexes TypeScript
// sources, so the teacher's Rust/Python/Java/Go detectors have no
// target here).
func DetectBuildOutputs(root string) []string {
	var patterns []string
	patterns = append(patterns, detectPackageJSONOutDir(root)...)
	patterns = append(patterns, detectTSConfigOutDir(root)...)
	patterns = append(patterns, detectViteOutDir(root)...)
	return DeduplicatePatterns(patterns)
}

func detectPackageJSONOutDir(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg map[string]any
	if json.Unmarshal(data, &pkg) != nil {
		return nil
	}
	var patterns []string
	if build, ok := pkg["build"].(map[string]any); ok {
		if outDir, ok := build["outDir"].(string); ok && outDir != "" {
			patterns = append(patterns, "**/"+outDir+"/**")
		}
	}
	return patterns
}

func detectTSConfigOutDir(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "tsconfig.json"))
	if err != nil {
		return nil
	}
	var tsconfig map[string]any
	if json.Unmarshal(data, &tsconfig) != nil {
		return nil
	}
	compilerOptions, ok := tsconfig["compilerOptions"].(map[string]any)
	if !ok {
		return nil
	}
	outDir, ok := compilerOptions["outDir"].(string)
	if !ok || outDir == "" {
		return nil
	}
	return []string{"**/" + outDir + "/**"}
}

func detectViteOutDir(root string) []string {
	for _, name := range []string{"vite.config.js", "vite.config.ts"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		content := string(data)
		idx := strings.Index(content, "outDir")
		if idx == -1 {
			continue
		}
		rest := content[idx+len("outDir"):]
		colon := strings.Index(rest, ":")
		if colon == -1 {
			continue
		}
		rest = rest[colon+1:]
		for _, quote := range []string{"'", "\""} {
			parts := strings.SplitN(rest, quote, 3)
			if len(parts) >= 3 {
				if dir := strings.TrimSpace(parts[1]); dir != "" {
					return []string{"**/" + dir + "/**"}
				}
			}
		}
	}
	return nil
}

// DeduplicatePatterns removes duplicate exclusion patterns, preserving
// first-seen order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
