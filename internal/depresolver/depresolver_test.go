package depresolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, rel string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, nil, 0o644))
}

func mkdir(t *testing.T, dir, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, rel), 0o755))
}

func TestDetectBuildSystemGradleBeatsMaven(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "build.gradle")
	touch(t, root, "pom.xml")
	assert.Equal(t, BuildSystemGradle, DetectBuildSystem(root))
}

func TestDetectBuildSystemMaven(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pom.xml")
	assert.Equal(t, BuildSystemMaven, DetectBuildSystem(root))
}

func TestDetectBuildSystemNone(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, BuildSystemNone, DetectBuildSystem(root))
}

func TestResolveDependenciesMavenReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pom.xml")

	r := New(NewExecGradleConnector())
	paths := r.ResolveDependencies(root)
	assert.Empty(t, paths)
}

func TestResolveDependenciesNoneReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	r := New(NewExecGradleConnector())
	assert.Empty(t, r.ResolveDependencies(root))
}

type fakeGradleConnector struct {
	paths []string
	err   error
}

func (f *fakeGradleConnector) ModuleLibraryPaths(ctx context.Context, projectRoot string) ([]string, error) {
	return f.paths, f.err
}

func TestResolveDependenciesGradleDedupesAndFiltersMissing(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "build.gradle")

	existing := filepath.Join(root, "libs", "a.jar")
	touch(t, root, filepath.Join("libs", "a.jar"))

	connector := &fakeGradleConnector{paths: []string{
		existing, existing, filepath.Join(root, "libs", "missing.jar"),
	}}
	r := New(connector)

	paths := r.ResolveDependencies(root)
	assert.Equal(t, []string{existing}, paths)
}

func TestGetSourceDirectoriesGradleConvention(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "build.gradle")
	mkdir(t, root, "src/main/groovy")
	mkdir(t, root, "src/test/java")

	dirs := GetSourceDirectories(root)
	assert.Contains(t, dirs, filepath.Join(root, "src/main/groovy"))
	assert.Contains(t, dirs, filepath.Join(root, "src/test/java"))
	assert.NotContains(t, dirs, filepath.Join(root, "src/main/java"))
}

func TestGetSourceDirectoriesNoneConvention(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "src")

	dirs := GetSourceDirectories(root)
	assert.Equal(t, []string{filepath.Join(root, "src")}, dirs)
}
