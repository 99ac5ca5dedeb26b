// Package depresolver is the Dependency Resolver: given a project root, it
// identifies the build system in use and enumerates the paths to
// dependency archives and source roots. The real Gradle Tooling API
// connection (spec.md §4.4's "external tooling protocol") is a JVM-side
// collaborator out of scope for this module; GradleConnector is the seam
// such a connection would plug into, with a conservative os/exec-based
// default that shells out to the Gradle wrapper.
package depresolver

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
)

// BuildSystem is the detected project build tool.
type BuildSystem int

const (
	BuildSystemNone BuildSystem = iota
	BuildSystemGradle
	BuildSystemMaven
)

func (b BuildSystem) String() string {
	switch b {
	case BuildSystemGradle:
		return "gradle"
	case BuildSystemMaven:
		return "maven"
	default:
		return "none"
	}
}

var gradleMarkers = []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts"}

// DetectBuildSystem applies spec.md §4.4's first-match-wins order: any
// Gradle marker file beats pom.xml, which beats None.
func DetectBuildSystem(projectRoot string) BuildSystem {
	for _, marker := range gradleMarkers {
		if fileExists(filepath.Join(projectRoot, marker)) {
			return BuildSystemGradle
		}
	}
	if fileExists(filepath.Join(projectRoot, "pom.xml")) {
		return BuildSystemMaven
	}
	return BuildSystemNone
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GradleConnector obtains the module-library dependency listing for a
// Gradle project. The real Tooling API connection lives on the JVM side;
// this interface is what a binding to it would implement.
type GradleConnector interface {
	ModuleLibraryPaths(ctx context.Context, projectRoot string) ([]string, error)
}

var log = obslog.For("depresolver")

// execGradleConnector shells out to the project's Gradle wrapper with a
// task that prints the runtime classpath, one entry per line. Best-effort:
// a failure to start the command surfaces as an error, which the caller
// treats as "resolution failed"; a non-zero exit once started is ignored
// and whatever lines were printed are returned.
type execGradleConnector struct{}

// NewExecGradleConnector returns the default, os/exec-backed connector.
func NewExecGradleConnector() GradleConnector {
	return &execGradleConnector{}
}

func (c *execGradleConnector) ModuleLibraryPaths(ctx context.Context, projectRoot string) ([]string, error) {
	wrapper := filepath.Join(projectRoot, "gradlew")
	bin := wrapper
	if !fileExists(wrapper) {
		bin = "gradle"
	}

	cmd := exec.CommandContext(ctx, bin, "-q", "printRuntimeClasspath")
	cmd.Dir = projectRoot

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var paths []string
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}

	_ = cmd.Wait() // best-effort: partial classpath output is still useful
	return paths, nil
}

// Resolver is the Dependency Resolver. The zero value is not usable; use
// New.
type Resolver struct {
	connector GradleConnector
	timeout   time.Duration
}

// New wires a Resolver to the given GradleConnector.
func New(connector GradleConnector) *Resolver {
	return &Resolver{connector: connector, timeout: 30 * time.Second}
}

// ResolveDependencies enumerates dependency archive paths for projectRoot,
// per the per-build-system rules in spec.md §4.4.
func (r *Resolver) ResolveDependencies(projectRoot string) []string {
	switch DetectBuildSystem(projectRoot) {
	case BuildSystemGradle:
		return r.resolveGradle(projectRoot)
	case BuildSystemMaven:
		log.WithPath(projectRoot).Warnf("Maven dependency resolution is not implemented")
		return nil
	default:
		return nil
	}
}

func (r *Resolver) resolveGradle(projectRoot string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	paths, err := r.connector.ModuleLibraryPaths(ctx, projectRoot)
	if err != nil {
		log.WithPath(projectRoot).Warnf("Gradle dependency resolution failed: %v", err)
		return nil
	}

	return dedupeExisting(paths)
}

func dedupeExisting(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if fileExists(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// gradleAndMavenSourceDirs are the conventional directories checked for
// Gradle- and Maven-built projects.
var gradleAndMavenSourceDirs = []string{"src/main/groovy", "src/main/java", "src/test/groovy", "src/test/java"}

// noneSourceDirs are checked when no build system was detected.
var noneSourceDirs = []string{"src", "groovy", "java"}

// GetSourceDirectories returns the subset of conventional source
// directories that exist under projectRoot. It does not inspect build
// descriptors to discover custom source sets (an accepted limitation,
// spec.md §4.4).
func GetSourceDirectories(projectRoot string) []string {
	candidates := noneSourceDirs
	if DetectBuildSystem(projectRoot) != BuildSystemNone {
		candidates = gradleAndMavenSourceDirs
	}

	var out []string
	for _, rel := range candidates {
		full := filepath.Join(projectRoot, rel)
		if info, err := os.Stat(full); err == nil && info.IsDir() {
			out = append(out, full)
		}
	}
	return out
}
