package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// FileName is the conventional config file name looked up in the project
// root, analogous to the teacher's .lci.kdl.
const FileName = ".groovy-lsp-index.kdl"

// Load reads FileName from projectRoot. A missing file is not an error: the
// caller gets Default(projectRoot) instead, since an absent config is a
// normal first-run state, not a fault.
func Load(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, FileName)

	content, err := os.ReadFile(kdlPath)
	if os.IsNotExist(err) {
		return Default(projectRoot), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", FileName, err)
	}

	cfg, err := parseKDL(string(content), projectRoot)
	if err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
	}

	// Best-effort: a failed enrichment never fails config loading.
	_ = enrichExclusionsWithBuildArtifacts(cfg)

	return cfg, nil
}

// parseKDL parses the raw KDL document into a Config seeded with Default,
// then overrides fields present in the document.
func parseKDL(content, projectRoot string) (*Config, error) {
	cfg := Default(projectRoot)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", FileName, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "store":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.Dir = s
					}
				case "map_size":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Store.MapSizeBytes = sz
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Store.MapSizeBytes = int64(v)
					}
				}
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Index.MaxFileSize = sz
						}
					} else if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				case "watch_mode":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.WatchMode = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.WatchDebounceMs = v
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "parallel_file_workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ParallelFileWorkers = v
					}
				case "indexing_timeout_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.IndexingTimeoutSec = v
					}
				}
			}
		case "dependency_cache":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "ttl_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.DepCache.DependencyTTLSeconds = v
					}
				case "max_classloader_entries":
					if v, ok := firstIntArg(cn); ok {
						cfg.DepCache.MaxClassLoaderEntries = v
					}
				case "memory_pressure_target_mb":
					if v, ok := firstIntArg(cn); ok {
						cfg.DepCache.MemoryPressureTargetMB = v
					}
				case "memory_check_interval_sec":
					if v, ok := firstIntArg(cn); ok {
						cfg.DepCache.MemoryCheckIntervalSec = v
					}
				}
			}
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model.

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

// parseSize parses sizes like "10MB", "1GiB", "500" (bytes).
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(upper, "GIB"), strings.HasSuffix(upper, "GB"):
		multiplier = 1 << 30
	case strings.HasSuffix(upper, "MIB"), strings.HasSuffix(upper, "MB"):
		multiplier = 1 << 20
	case strings.HasSuffix(upper, "KIB"), strings.HasSuffix(upper, "KB"):
		multiplier = 1 << 10
	}
	if multiplier > 1 {
		suffixLen := 2
		if strings.HasSuffix(upper, "IB") {
			suffixLen = 3
		}
		s = s[:len(s)-suffixLen]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n * multiplier, nil
}
