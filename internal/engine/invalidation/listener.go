// Package invalidation rebuilds cached destinations when their sources change.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var errRebuildPanicked = zerr.New("rebuild panicked")

// Listener consumes change events and rebuilds every destination whose cached
// sources contain the changed path. Each rebuild runs on its own goroutine and
// reports its own failure; one destination never blocks another.
type Listener struct {
	cache       ports.BuildCache
	builder     ports.Builder
	diagnostics ports.Diagnostics
	metrics     ports.Metrics
	logger      ports.Logger
	activity    func()

	wg sync.WaitGroup
}

// NewListener creates a new Listener with the given dependencies.
func NewListener(
	cache ports.BuildCache,
	builder ports.Builder,
	diagnostics ports.Diagnostics,
	metrics ports.Metrics,
	logger ports.Logger,
) *Listener {
	return &Listener{
		cache:       cache,
		builder:     builder,
		diagnostics: diagnostics,
		metrics:     metrics,
		logger:      logger,
	}
}

// WithActivity sets fn to be called for every event Run receives, matched or not.
func (l *Listener) WithActivity(fn func()) *Listener {
	l.activity = fn
	return l
}

// Run handles events until the channel is closed or ctx is done, then waits
// for the rebuilds it started.
func (l *Listener) Run(ctx context.Context, events <-chan domain.ChangeEvent) {
	defer l.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if l.activity != nil {
				l.activity()
			}
			l.Handle(ctx, ev)
		}
	}
}

// Handle starts the rebuilds triggered by ev and returns the destinations
// affected. Only change and unlink events are acted on. For unlink the path is
// first dropped from each matched entry and the rebuild is forced, since no
// remaining source got newer.
func (l *Listener) Handle(ctx context.Context, ev domain.ChangeEvent) []string {
	if !ev.Kind.Actionable() {
		return nil
	}

	matched := l.cache.Match(ev.Path)
	l.metrics.IncInvalidation(ev.Kind, len(matched))
	if len(matched) == 0 {
		return nil
	}

	force := ev.Kind == domain.ChangeUnlink
	destinations := make([]string, 0, len(matched))
	for _, entry := range matched {
		if force {
			updated, err := l.cache.RemoveSource(entry.Destination, ev.Path)
			var persistErr *domain.PersistenceError
			switch {
			case errors.As(err, &persistErr):
				l.diagnostics.Report(domain.NewDiagnostic(ev.Path, "", entry.Destination, err))
			case err != nil:
				l.logger.Warn(fmt.Sprintf("skipping %s: %v", entry.Destination, err))
				continue
			}
			entry = updated
		}

		if len(entry.Sources) == 0 {
			l.logger.Warn(fmt.Sprintf("skipping %s: no sources left", entry.Destination))
			continue
		}

		destinations = append(destinations, entry.Destination)
		req := entry.Request()
		l.wg.Go(func() {
			l.rebuild(ctx, ev, req, force)
		})
	}
	return destinations
}

// Wait blocks until every rebuild started so far has finished.
func (l *Listener) Wait() {
	l.wg.Wait()
}

func (l *Listener) rebuild(ctx context.Context, ev domain.ChangeEvent, req domain.ConcatRequest, force bool) {
	defer func() {
		if r := recover(); r != nil {
			l.diagnostics.Report(domain.NewDiagnostic(ev.Path, "", req.Destination, zerr.With(errRebuildPanicked, "panic", r)))
		}
	}()

	res, err := l.builder.Build(context.WithoutCancel(ctx), req, force)
	if err != nil {
		l.diagnostics.Report(domain.NewDiagnostic(ev.Path, res.ID, req.Destination, err))
	}
}
