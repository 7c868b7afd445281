package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/internal/adapters/watcher"
	"go.trai.ch/stitch/internal/core/domain"
)

// collect reads events in the background until want matches or the deadline passes.
func collect(t *testing.T, w *watcher.Watcher, want func(domain.ChangeEvent) bool) domain.ChangeEvent {
	t.Helper()

	found := make(chan domain.ChangeEvent, 1)
	go func() {
		for ev := range w.Events() {
			if want(ev) {
				found <- ev
				return
			}
		}
	}()

	select {
	case ev := <-found:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ChangeEvent{}
	}
}

func startWatcher(t *testing.T, root string, window time.Duration) *watcher.Watcher {
	t.Helper()

	w, err := watcher.NewWatcher(window, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	require.NoError(t, w.Start(ctx, root))
	return w
}

func TestWatcher_FileChange(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(file, []byte("a"), domain.FilePerm))

	w := startWatcher(t, root, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(file, []byte("b"), domain.FilePerm))

	ev := collect(t, w, func(ev domain.ChangeEvent) bool { return ev.Path == file })
	assert.Equal(t, domain.ChangeModified, ev.Kind)
}

func TestWatcher_FileRemoved(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(file, []byte("a"), domain.FilePerm))

	w := startWatcher(t, root, 20*time.Millisecond)

	require.NoError(t, os.Remove(file))

	ev := collect(t, w, func(ev domain.ChangeEvent) bool { return ev.Path == file })
	assert.Equal(t, domain.ChangeUnlink, ev.Kind)
}

func TestWatcher_NestedDirectory(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, domain.DirPerm))
	file := filepath.Join(nested, "a.js")
	require.NoError(t, os.WriteFile(file, []byte("a"), domain.FilePerm))

	w := startWatcher(t, root, 0)

	require.NoError(t, os.Remove(file))

	ev := collect(t, w, func(ev domain.ChangeEvent) bool { return ev.Path == file })
	assert.Equal(t, domain.ChangeUnlink, ev.Kind)
}

func TestWatcher_StateDirIgnored(t *testing.T) {
	root := t.TempDir()
	state := filepath.Join(root, domain.StateDirName)
	require.NoError(t, os.MkdirAll(state, domain.DirPerm))

	w := startWatcher(t, root, 0)

	require.NoError(t, os.WriteFile(filepath.Join(state, domain.RecordFileName), []byte("{}"), domain.FilePerm))
	marker := filepath.Join(root, "marker.js")
	require.NoError(t, os.WriteFile(marker, []byte("m"), domain.FilePerm))

	ev := collect(t, w, func(ev domain.ChangeEvent) bool {
		assert.NotContains(t, ev.Path, domain.StateDirName)
		return ev.Path == marker
	})
	assert.Equal(t, marker, ev.Path)
}

func TestWatcher_EventsEndAfterStop(t *testing.T) {
	root := t.TempDir()
	w, err := watcher.NewWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), root))

	require.NoError(t, w.Stop())

	done := make(chan struct{})
	go func() {
		for range w.Events() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events did not end after stop")
	}
}
