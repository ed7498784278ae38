package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads .gildash.kdl from dir, returning nil if it does not
// exist. Mirrors the teacher's LoadKDL/parseKDL split.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, ".gildash.kdl")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read .gildash.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.ProjectRoot != "" {
		if filepath.IsAbs(cfg.ProjectRoot) {
			cfg.ProjectRoot = filepath.Clean(cfg.ProjectRoot)
		} else {
			cfg.ProjectRoot = filepath.Clean(filepath.Join(dir, cfg.ProjectRoot))
		}
	} else if abs, err := filepath.Abs(dir); err == nil {
		cfg.ProjectRoot = abs
	} else {
		cfg.ProjectRoot = dir
	}

	return cfg, nil
}

// parseKDL walks the document and fills in a Defaults()-seeded Config,
// following gildash's KDL schema:
//
//	project { root "." }
//	index {
//	  watch_mode true
//	  watch_debounce_ms 50
//	  semantic false
//	}
//	store { busy_timeout_ms 5000; max_retries 5 }
//	ownership { stale_after_seconds 60; heartbeat_interval_seconds 15; reader_poll_interval_seconds 30 }
//	graph { cache_ttl_seconds 15 }
//	parser { ast_cache_capacity 500 }
//	performance { worker_pool_size 8 }
//	include "src/**/*.ts"
//	exclude "**/node_modules/**" "**/dist/**"
func parseKDL(content string) (*Config, error) {
	cfg := Defaults()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .gildash.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.ProjectRoot = v })
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.WatchDebounceMs = v
					}
				case "semantic":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Semantic = b
					}
				}
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "busy_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.StoreBusyTimeoutMs = v
					}
				case "max_retries":
					if v, ok := firstIntArg(cn); ok {
						cfg.StoreMaxRetries = v
					}
				}
			}
		case "ownership":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "stale_after_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.StaleAfterSeconds = v
					}
				case "heartbeat_interval_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.HeartbeatIntervalSeconds = v
					}
				case "reader_poll_interval_seconds":
					if v, ok := firstIntArg(cn); ok {
						cfg.ReaderPollIntervalSeconds = v
					}
				}
			}
		case "graph":
			for _, cn := range n.Children {
				if nodeName(cn) == "cache_ttl_seconds" {
					if v, ok := firstIntArg(cn); ok {
						cfg.GraphCacheTTLSeconds = v
					}
				}
			}
		case "parser":
			for _, cn := range n.Children {
				if nodeName(cn) == "ast_cache_capacity" {
					if v, ok := firstIntArg(cn); ok {
						cfg.ASTCacheCapacity = v
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "worker_pool_size" {
					if v, ok := firstIntArg(cn); ok {
						cfg.WorkerPoolSize = v
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
