// Build-artifact detection for co-located non-JVM tooling: a Groovy/Gradle
// monorepo often sits next to a Rust or Python subproject whose own build
// output directory (a custom Cargo "target-dir", a Poetry build target)
// would otherwise get walked as if it were source. This peeks at those
// descriptors to extend the workspace's exclude list; it has nothing to do
// with resolving Groovy's own dependencies (see internal/depresolver).
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// buildArtifactDetector finds non-JVM build output directories by parsing
// their project descriptors.
type buildArtifactDetector struct {
	projectRoot string
}

// detectOutputDirectories scans for Cargo.toml / pyproject.toml and returns
// glob exclude patterns for any custom output directory they declare.
func (d *buildArtifactDetector) detectOutputDirectories() []string {
	var patterns []string
	patterns = append(patterns, d.detectRustOutputs()...)
	patterns = append(patterns, d.detectPythonOutputs()...)
	return patterns
}

func (d *buildArtifactDetector) detectRustOutputs() []string {
	var patterns []string
	data, err := os.ReadFile(filepath.Join(d.projectRoot, "Cargo.toml"))
	if err != nil {
		return nil
	}
	var cargo map[string]interface{}
	if toml.Unmarshal(data, &cargo) != nil {
		return nil
	}
	if profile, ok := cargo["profile"].(map[string]interface{}); ok {
		if release, ok := profile["release"].(map[string]interface{}); ok {
			if targetDir, ok := release["target-dir"].(string); ok {
				patterns = append(patterns, "**/"+targetDir+"/**")
			}
		}
	}
	return patterns
}

func (d *buildArtifactDetector) detectPythonOutputs() []string {
	var patterns []string
	data, err := os.ReadFile(filepath.Join(d.projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var pyproject map[string]interface{}
	if toml.Unmarshal(data, &pyproject) != nil {
		return nil
	}
	if tool, ok := pyproject["tool"].(map[string]interface{}); ok {
		if poetry, ok := tool["poetry"].(map[string]interface{}); ok {
			if build, ok := poetry["build"].(map[string]interface{}); ok {
				if targetDir, ok := build["target-dir"].(string); ok {
					patterns = append(patterns, "**/"+targetDir+"/**")
				}
			}
		}
	}
	return patterns
}

// dedupePatterns removes duplicate exclusion patterns while preserving order.
func dedupePatterns(patterns []string) []string {
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

// enrichExclusionsWithBuildArtifacts extends cfg.Exclude with any non-JVM
// build output directories detected under the project root. Detection
// failures are non-fatal: they only ever widen the exclude list.
func enrichExclusionsWithBuildArtifacts(cfg *Config) error {
	detector := &buildArtifactDetector{projectRoot: cfg.Project.Root}
	extra := detector.detectOutputDirectories()
	if len(extra) == 0 {
		return nil
	}
	cfg.Exclude = dedupePatterns(append(cfg.Exclude, extra...))
	return nil
}
