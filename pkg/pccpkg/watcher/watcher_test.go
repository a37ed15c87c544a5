package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/archive"
)

func newWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestNewDefaultDebounce(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatch(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	sub := filepath.Join(root, "site", "tmpl")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.NoError(t, w.Watch(root))
	assert.Equal(t, []string{root, filepath.Join(root, "site"), sub}, w.Paths())

	assert.Error(t, w.Watch(filepath.Join(root, "missing")))
}

func TestWatchEntries(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	admin := filepath.Join(root, "admin")
	require.NoError(t, os.MkdirAll(filepath.Join(admin, "sql"), 0o755))
	manifest := filepath.Join(root, "manifests", "pccevents.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(manifest), 0o755))
	require.NoError(t, os.WriteFile(manifest, []byte("<extension/>"), 0o644))

	require.NoError(t, w.WatchEntries([]archive.Entry{
		{Source: admin, Destination: "admin"},
		{Source: manifest, Destination: "pccevents.xml"},
		{Source: filepath.Join(root, "gone"), Destination: "gone"},
	}))
	assert.Equal(t, []string{admin, filepath.Join(admin, "sql"), filepath.Dir(manifest)}, w.Paths())
}

func TestRunDebounces(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping event test in short mode")
	}
	w := newWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	out := filepath.Join(root, "out.zip")
	w.Ignore(out)

	batches := make(chan []string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, func(changed []string) {
		select {
		case batches <- changed:
		default:
		}
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.php"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.php"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("zip"), 0o644))

	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for !seen[filepath.Join(root, "a.php")] || !seen[filepath.Join(root, "b.php")] {
		select {
		case changed := <-batches:
			for _, p := range changed {
				seen[p] = true
			}
		case <-deadline:
			t.Fatal("no change batch delivered")
		}
	}
	assert.False(t, seen[out])
}

func TestRunWatchesNewDirectories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping event test in short mode")
	}
	w := newWatcher(t)
	root := t.TempDir()
	require.NoError(t, w.Watch(root))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	dir := filepath.Join(root, "language")
	require.NoError(t, os.Mkdir(dir, 0o755))

	assert.Eventually(t, func() bool {
		for _, p := range w.Paths() {
			if p == dir {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestForget(t *testing.T) {
	w := newWatcher(t)
	root := t.TempDir()
	sub := filepath.Join(root, "media")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "css"), 0o755))
	require.NoError(t, w.Watch(root))

	w.forget(sub)
	assert.Equal(t, []string{root}, w.Paths())
}

func TestClose(t *testing.T) {
	w, err := New(time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Empty(t, w.Paths())
}

func TestIsSubPath(t *testing.T) {
	assert.True(t, isSubPath("/a/b/c", "/a/b"))
	assert.False(t, isSubPath("/a/bc", "/a/b"))
	assert.False(t, isSubPath("/a/b", "/a/b"))
}
