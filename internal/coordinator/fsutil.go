package coordinator

import (
	"os"
	"path/filepath"
	"time"
)

// joinRoot joins a root-relative, slash-separated path back onto root
// for filesystem access.
func joinRoot(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

type fileStat struct {
	mtimeMs int64
	size    int64
}

func statFile(path string) (fileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStat{}, err
	}
	return fileStat{mtimeMs: info.ModTime().UnixMilli(), size: info.Size()}, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
