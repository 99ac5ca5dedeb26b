package indexing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanWorkspaceHonorsIncludeAndExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "Greeter.groovy"), "class Greeter {}\n")
	writeFile(t, filepath.Join(root, "src", "Widget.java"), "class Widget {}\n")
	writeFile(t, filepath.Join(root, "README.md"), "not indexed\n")
	writeFile(t, filepath.Join(root, "build", "Generated.groovy"), "class Generated {}\n")

	include := []string{"**/*.groovy", "**/*.java"}
	exclude := []string{"**/build/**"}

	files, err := ScanWorkspace(root, include, exclude)
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		rels = append(rels, filepath.ToSlash(rel))
	}

	require.Contains(t, rels, "src/Greeter.groovy")
	require.Contains(t, rels, "src/Widget.java")
	require.NotContains(t, rels, "README.md")
	require.NotContains(t, rels, "build/Generated.groovy")
}

func TestIsJavaFile(t *testing.T) {
	require.True(t, IsJavaFile("Widget.java"))
	require.True(t, IsJavaFile("Widget.JAVA"))
	require.False(t, IsJavaFile("Greeter.groovy"))
}

func TestIsBuildDescriptor(t *testing.T) {
	require.True(t, IsBuildDescriptor("/proj/build.gradle"))
	require.True(t, IsBuildDescriptor("/proj/pom.xml"))
	require.False(t, IsBuildDescriptor("/proj/src/Greeter.groovy"))
}
