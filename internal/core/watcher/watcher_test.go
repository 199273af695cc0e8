package watcher

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func collector() (chan []string, func([]string)) {
	ch := make(chan []string, 16)
	return ch, func(paths []string) {
		select {
		case ch <- paths:
		default:
		}
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			if slices.Contains(paths, want) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)

	_, err = NewWatcher(time.Millisecond, []string{"["}, nil, func([]string) {})
	assert.Error(t, err)
}

func TestWatcher_ReportsMetadataFiles(t *testing.T) {
	dir := t.TempDir()
	changed, onChange := collector()
	w, err := NewWatcher(50*time.Millisecond, []string{"skip"}, []string{"*.tmp.json"}, onChange)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	record := filepath.Join(dir, "Button.json")
	require.NoError(t, os.WriteFile(record, []byte("{}"), 0o644))
	waitFor(t, changed, record, 2*time.Second)

	// Sources and excluded names are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.tmp.json"), []byte("{}"), 0o644))
	select {
	case paths := <-changed:
		for _, p := range paths {
			assert.Equal(t, ".json", filepath.Ext(p))
			assert.NotEqual(t, "Button.tmp.json", filepath.Base(p))
		}
	case <-time.After(300 * time.Millisecond):
	}

	// Directories created later are watched recursively.
	nested := filepath.Join(dir, "app", "ui")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	nestedRecord := filepath.Join(nested, "Window.json")
	require.NoError(t, os.WriteFile(nestedRecord, []byte("{}"), 0o644))
	waitFor(t, changed, nestedRecord, 2*time.Second)
}

func TestWatcher_ReportsRemovals(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "Old.json")
	require.NoError(t, os.WriteFile(record, []byte("{}"), 0o644))

	changed, onChange := collector()
	w, err := NewWatcher(50*time.Millisecond, nil, nil, onChange)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	require.NoError(t, os.Remove(record))
	waitFor(t, changed, record, 2*time.Second)
}

func TestWatcher_SkipsMissingRoots(t *testing.T) {
	_, onChange := collector()
	w, err := NewWatcher(time.Millisecond, nil, nil, onChange)
	require.NoError(t, err)
	require.NoError(t, w.Watch([]string{filepath.Join(t.TempDir(), "compiled")}))
	require.NoError(t, w.Close())
}

func TestShouldExcludeFile(t *testing.T) {
	_, onChange := collector()
	w, err := NewWatcher(time.Millisecond, []string{".git"}, []string{"*.bak.json"}, onChange)
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.shouldExcludeFile("compiled/meta/app/Main.json"))
	assert.False(t, w.shouldExcludeFile("Main.JSON"))
	assert.True(t, w.shouldExcludeFile("source/class/app/Main.js"))
	assert.True(t, w.shouldExcludeFile("Main.bak.json"))
	assert.True(t, w.shouldExcludeDir("/repo/.git"))
	assert.False(t, w.shouldExcludeDir("/repo/compiled"))
}
