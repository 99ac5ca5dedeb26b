// Package indexing composes the Symbol Store, Parser/Visitor Bridge, JAR
// Indexer, Dependency Resolver, Dependency Cache and Event Bus into the
// Indexer Orchestrator's workspace lifecycle: scanner.go walks the
// workspace tree, pipeline.go dispatches bounded parse jobs, watcher.go
// adapts filesystem change notifications, and orchestrator.go owns the
// public initialize/updateFile/searchSymbols/shutdown contract.
package indexing

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ScanWorkspace walks root and returns every regular file whose
// root-relative, slash-normalized path matches at least one include glob
// and no exclude glob.
func ScanWorkspace(root string, include, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(exclude, rel) {
			return nil
		}
		if !matchesAny(include, rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// IsJavaFile reports whether path has the .java extension.
func IsJavaFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".java")
}

// buildDescriptorNames are the files that, when changed, invalidate the
// Dependency Cache and trigger a full re-initialize (spec.md §4.6).
var buildDescriptorNames = map[string]bool{
	"build.gradle":      true,
	"build.gradle.kts":  true,
	"pom.xml":           true,
	"settings.gradle":   true,
	"settings.gradle.kts": true,
}

// IsBuildDescriptor reports whether path's base name is a recognized build
// descriptor.
func IsBuildDescriptor(path string) bool {
	return buildDescriptorNames[filepath.Base(path)]
}
