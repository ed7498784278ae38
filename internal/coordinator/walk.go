package coordinator

import (
	"os"
	"path/filepath"
)

// discoveredFile is one source file found by walkSources, read and
// hashed eagerly since Pass 1 needs its content regardless.
type discoveredFile struct {
	Path    string // root-relative, slash-separated
	Content []byte
	MTimeMs int64
	Size    int64
}

// walkSources walks root honoring include/exclude glob patterns
// (doublestar, matching the teacher's shouldIncludeFast/
// shouldExcludeFast idiom in internal/indexing/pipeline_types.go) and
// returns every matching file's content, read eagerly for Pass 1.
func walkSources(root string, include, exclude []string) ([]discoveredFile, error) {
	var out []discoveredFile
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if matchesAny(exclude, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(exclude, rel) {
			return nil
		}
		if len(include) > 0 && !matchesAny(include, rel) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		out = append(out, discoveredFile{
			Path:    rel,
			Content: content,
			MTimeMs: info.ModTime().UnixMilli(),
			Size:    info.Size(),
		})
		return nil
	})
	return out, err
}

// shouldProcess reports whether rel (root-relative, slash-separated)
// passes the include/exclude filter, used by the watcher-event path to
// decide whether a single changed file belongs in the index.
func shouldProcess(rel string, include, exclude []string) bool {
	if matchesAny(exclude, rel) {
		return false
	}
	if len(include) == 0 {
		return true
	}
	return matchesAny(include, rel)
}
