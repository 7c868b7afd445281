// Package watcher turns filesystem notifications on the output tree into change events.
package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
)

// Debouncer coalesces bursts of events into one batch per quiet window.
// Within a batch each path appears once, with the kind of its last event.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]domain.ChangeKind
	timer    *time.Timer
	window   time.Duration
	callback func(events []domain.ChangeEvent)
	running  sync.WaitGroup
}

// NewDebouncer creates a new debouncer with the given time window and callback.
func NewDebouncer(window time.Duration, callback func(events []domain.ChangeEvent)) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]domain.ChangeKind),
		window:   window,
		callback: callback,
	}
}

// Add records an event and restarts the window.
func (d *Debouncer) Add(ev domain.ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[ev.Path] = ev.Kind

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// take empties the pending set. Callers must hold d.mu.
func (d *Debouncer) take() []domain.ChangeEvent {
	events := make([]domain.ChangeEvent, 0, len(d.pending))
	for path, kind := range d.pending {
		events = append(events, domain.ChangeEvent{Kind: kind, Path: path})
	}
	slices.SortFunc(events, func(a, b domain.ChangeEvent) int {
		return strings.Compare(a.Path, b.Path)
	})
	d.pending = make(map[string]domain.ChangeKind)
	return events
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	if len(d.pending) == 0 || d.callback == nil {
		d.mu.Unlock()
		return
	}
	events := d.take()
	d.running.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.running.Done()
		d.callback(events)
	}()
}

// Flush delivers the pending batch now and blocks until the callback returns.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		if !d.timer.Stop() {
			// Already firing; let that delivery happen instead.
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}
	events := d.take()
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// Stop drops pending events and waits for deliveries already started.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]domain.ChangeKind)
	d.mu.Unlock()

	d.running.Wait()
}
