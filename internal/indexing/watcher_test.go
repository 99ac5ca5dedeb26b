package indexing

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type changeCollector struct {
	mu    sync.Mutex
	paths []string
}

func (c *changeCollector) handle(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *changeCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.paths))
	copy(out, c.paths)
	return out
}

func TestWatcherDebouncesBurstsIntoOneChange(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "Greeter.groovy")
	require.NoError(t, os.WriteFile(target, []byte("class Greeter {}\n"), 0o644))

	collector := &changeCollector{}
	w, err := NewWatcher(root, nil, 50*time.Millisecond, collector.handle)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("class Greeter { def x = 1 }\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(collector.snapshot()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, []string{target}, collector.snapshot())
}

func TestWatcherSkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build"), 0o755))

	collector := &changeCollector{}
	w, err := NewWatcher(root, []string{"**/build/**"}, 30*time.Millisecond, collector.handle)
	require.NoError(t, err)
	defer w.Close()

	excluded := filepath.Join(root, "build", "Generated.groovy")
	require.NoError(t, os.WriteFile(excluded, []byte("class Generated {}\n"), 0o644))

	time.Sleep(200 * time.Millisecond)
	require.Empty(t, collector.snapshot())
}

func TestWatcherCloseIsSafe(t *testing.T) {
	root := t.TempDir()
	collector := &changeCollector{}
	w, err := NewWatcher(root, nil, 20*time.Millisecond, collector.handle)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
