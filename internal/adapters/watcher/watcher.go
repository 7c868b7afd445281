package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// skipDirectories are never watched.
var skipDirectories = map[string]bool{
	".git":              true,
	"node_modules":      true,
	domain.StateDirName: true,
}

const eventChannelBuffer = 100

// Watcher watches a directory tree with fsnotify and emits debounced change events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	logger    ports.Logger
	window    time.Duration
	events    chan domain.ChangeEvent

	mu   sync.Mutex
	dirs map[string]bool
}

// NewWatcher creates a new watcher coalescing events over window. A zero
// window emits every event as it arrives.
func NewWatcher(window time.Duration, logger ports.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create filesystem watcher")
	}
	return &Watcher{
		fsWatcher: fsw,
		logger:    logger,
		window:    window,
		events:    make(chan domain.ChangeEvent, eventChannelBuffer),
		dirs:      make(map[string]bool),
	}, nil
}

// Start begins watching root recursively. Events flow until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	for dir := range walkDirs(root) {
		if err := w.add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to watch directory"), "dir", dir)
		}
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of change events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[domain.ChangeEvent] {
	return func(yield func(domain.ChangeEvent) bool) {
		for ev := range w.events {
			if !yield(ev) {
				return
			}
		}
	}
}

func (w *Watcher) add(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[dir] = true
	w.mu.Unlock()
	return nil
}

func (w *Watcher) forget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	wasDir := w.dirs[path]
	delete(w.dirs, path)
	return wasDir
}

// walkDirs yields root and every directory below it that is not skipped.
func walkDirs(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // Unreadable directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skipDirectories[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	emit := func(events []domain.ChangeEvent) {
		for _, ev := range events {
			select {
			case w.events <- settle(ev):
			case <-ctx.Done():
				return
			}
		}
	}

	var debouncer *Debouncer
	if w.window > 0 {
		debouncer = NewDebouncer(w.window, emit)
	}

	defer close(w.events)
	defer func() {
		if debouncer != nil {
			debouncer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				if debouncer != nil {
					debouncer.Flush()
				}
				return
			}

			ev, ok := w.convertEvent(event)
			if !ok {
				continue
			}
			if ev.Kind == domain.ChangeAddDir {
				for dir := range walkDirs(ev.Path) {
					_ = w.add(dir)
				}
			}

			if debouncer != nil {
				debouncer.Add(ev)
			} else {
				emit([]domain.ChangeEvent{ev})
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil && !errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn(fmt.Sprintf("watcher: %v", err))
			}
		}
	}
}

// convertEvent maps an fsnotify event to a change event. Renames count as
// removals of the old name; the new name arrives as its own create.
func (w *Watcher) convertEvent(event fsnotify.Event) (domain.ChangeEvent, bool) {
	path := event.Name

	switch {
	case event.Has(fsnotify.Write):
		return domain.ChangeEvent{Kind: domain.ChangeModified, Path: path}, true
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if skipDirectories[info.Name()] {
				return domain.ChangeEvent{}, false
			}
			return domain.ChangeEvent{Kind: domain.ChangeAddDir, Path: path}, true
		}
		return domain.ChangeEvent{Kind: domain.ChangeAdd, Path: path}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if w.forget(path) {
			return domain.ChangeEvent{Kind: domain.ChangeUnlinkDir, Path: path}, true
		}
		return domain.ChangeEvent{Kind: domain.ChangeUnlink, Path: path}, true
	default:
		return domain.ChangeEvent{}, false
	}
}

// settle reconciles a debounced file event with the filesystem: a file that
// was removed and written again within one window is a change, and a change
// to a file that is gone is an unlink.
func settle(ev domain.ChangeEvent) domain.ChangeEvent {
	if ev.Kind == domain.ChangeAddDir || ev.Kind == domain.ChangeUnlinkDir {
		return ev
	}
	info, err := os.Stat(ev.Path)
	switch {
	case err != nil:
		ev.Kind = domain.ChangeUnlink
	case !info.IsDir() && ev.Kind == domain.ChangeUnlink:
		ev.Kind = domain.ChangeModified
	}
	return ev
}
