// Package app implements the application layer for stitch.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"go.trai.ch/stitch/internal/adapters/daemon"
	"go.trai.ch/stitch/internal/adapters/diagnostics"
	"go.trai.ch/stitch/internal/adapters/logger"
	"go.trai.ch/stitch/internal/adapters/metrics"
	"go.trai.ch/stitch/internal/adapters/nats"
	"go.trai.ch/stitch/internal/adapters/store"
	"go.trai.ch/stitch/internal/adapters/telemetry"
	"go.trai.ch/stitch/internal/adapters/watcher"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/stitch/internal/engine/invalidation"
	"go.trai.ch/stitch/internal/engine/normalizer"
	"go.trai.ch/stitch/internal/engine/pending"
	"go.trai.ch/stitch/internal/ui/table"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// eventBuffer is the capacity of the primary's change event channel.
const eventBuffer = 256

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	connector    ports.DaemonConnector
	elector      ports.Elector
	oracle       ports.FreshnessOracle
	reader       ports.SourceReader
	writer       ports.ArtifactWriter
	tracer       ports.Tracer
	recorder     *metrics.Recorder
	watchers     watcher.Factory
	out          io.Writer
	workDir      string
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	connector ports.DaemonConnector,
	elector ports.Elector,
	oracle ports.FreshnessOracle,
	reader ports.SourceReader,
	writer ports.ArtifactWriter,
	tracer ports.Tracer,
	recorder *metrics.Recorder,
	watchers watcher.Factory,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		connector:    connector,
		elector:      elector,
		oracle:       oracle,
		reader:       reader,
		writer:       writer,
		tracer:       tracer,
		recorder:     recorder,
		watchers:     watchers,
		out:          os.Stdout,
		workDir:      ".",
	}
}

// WithOutput sets the writer command results are printed to.
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// WithWorkDir sets the directory configuration is discovered from.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

func (a *App) load() (*domain.Config, error) {
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if l, ok := a.logger.(*logger.Logger); ok {
		l.SetJSON(cfg.JSONLogs)
	}
	return cfg, nil
}

// ConcatOptions describes one concat call issued from the command line.
type ConcatOptions struct {
	Sources     []string
	Destination string
	Sourcemap   bool
	Share       string
	Layout      string
	Document    string
}

// Concat prints the URL of the requested artifact and then waits for its
// build. A running primary builds it; otherwise this process becomes the
// primary for the duration of the call.
func (a *App) Concat(ctx context.Context, opts ConcatOptions) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	doc := domain.Document{Path: opts.Document, Share: opts.Share}
	if opts.Layout != "" {
		doc.Layouts = []string{opts.Layout}
	}
	raw := domain.RawRequest{
		Sources:     opts.Sources,
		Destination: opts.Destination,
		Sourcemap:   opts.Sourcemap,
	}

	// Reject invalid requests before the state directory is touched.
	if _, err := normalizer.Normalize(doc, raw, cfg.OutputRoot); err != nil {
		return err
	}

	dispatcher, release, err := a.dispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	sink := diagnostics.NewLogSink(a.logger)
	coordinator := NewCoordinator(cfg, dispatcher, sink)
	rc := RenderContext{Document: doc, Pending: &pending.Chain{}}

	url, err := coordinator.Concat(ctx, rc, raw)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.out, url)

	rc.Pending.Wait()
	if sink.Errors() > 0 {
		return domain.ErrBuildsFailed
	}
	return nil
}

// dispatcher returns the running primary's client, or the engine of a
// primary elected in this process. release frees whichever was taken.
func (a *App) dispatcher(ctx context.Context, cfg *domain.Config) (ports.Dispatcher, func(), error) {
	if client, err := a.connector.Dial(ctx, cfg.StateDir); err == nil {
		return NewRemoteDispatcher(client), func() { _ = client.Close() }, nil
	}

	lease, err := a.elector.Acquire(cfg.StateDir)
	if err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrPrimaryUnavailable.Error())
	}

	p := a.newPrimary(cfg)
	return p.engine, func() { _ = lease.Release() }, nil
}

// ServeDaemon runs the primary in the foreground: it owns the cache, serves
// builds to secondaries and rebuilds on change events until it is stopped,
// idles out or ctx is done.
//
//nolint:cyclop,funlen // orchestration function
func (a *App) ServeDaemon(ctx context.Context) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	lease, err := a.elector.Acquire(cfg.StateDir)
	if err != nil {
		return err
	}
	defer func() { _ = lease.Release() }()

	if err := daemon.WritePIDFile(cfg.StateDir); err != nil {
		return err
	}
	defer daemon.Cleanup(cfg.StateDir)

	shutdownTracing := telemetry.Setup()
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	p := a.newPrimary(cfg)
	sinks := diagnostics.Multi{diagnostics.NewLogSink(a.logger)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan domain.ChangeEvent, eventBuffer)

	if cfg.NATSURL != "" {
		bus, err := nats.Connect(cfg.NATSURL, cfg.SubjectPrefix, a.logger)
		if err != nil {
			return err
		}
		defer func() { _ = bus.Close() }()

		if err := bus.SubscribeChanges(ctx, events); err != nil {
			return err
		}
		sinks = append(sinks, bus.Diagnostics())
		a.logger.Info(fmt.Sprintf("listening for changes on %s", nats.ChangesSubject(cfg.SubjectPrefix)))
	}

	lis, err := daemon.Listen(cfg.StateDir)
	if err != nil {
		return err
	}
	lifecycle := daemon.NewLifecycle(cfg.IdleTimeout)

	// Change events count as activity, so a watching primary stays up while
	// its output tree is being edited.
	listener := invalidation.NewListener(p.cache, p.engine, sinks, a.recorder, a.logger).
		WithActivity(lifecycle.ResetTimer)
	server := daemon.NewServer(p.engine, p.cache, lifecycle, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Watch {
		w, err := a.watchers(cfg.Debounce)
		if err != nil {
			_ = lis.Close()
			return err
		}
		if err := w.Start(gctx, cfg.OutputRoot); err != nil {
			_ = lis.Close()
			_ = w.Stop()
			return err
		}
		defer func() { _ = w.Stop() }()

		g.Go(func() error {
			for ev := range w.Events() {
				select {
				case events <- ev:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
		a.logger.Info(fmt.Sprintf("watching %s", cfg.OutputRoot))
	}

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return a.recorder.Serve(gctx, cfg.MetricsAddr)
		})
	}

	g.Go(func() error {
		listener.Run(gctx, events)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		err := server.Serve(gctx, lis)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.logger.Info(fmt.Sprintf("primary for %s listening on %s", cfg.OutputRoot, daemon.SocketPath(cfg.StateDir)))

	return g.Wait()
}

// StartDaemon spawns a background primary unless one is already running.
func (a *App) StartDaemon(ctx context.Context) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	if a.connector.IsRunning(ctx, cfg.StateDir) {
		a.logger.Info("daemon is already running")
		return nil
	}

	workDir, err := filepath.Abs(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to resolve working directory")
	}
	if err := a.connector.Spawn(ctx, workDir, cfg.StateDir); err != nil {
		return err
	}
	a.logger.Info("daemon started")
	return nil
}

// DaemonStatus prints the primary's status.
func (a *App) DaemonStatus(ctx context.Context) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	client, err := a.connector.Dial(ctx, cfg.StateDir)
	if err != nil {
		_, _ = fmt.Fprintln(a.out, "daemon is not running")
		return nil
	}
	defer func() { _ = client.Close() }()

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}

	idle := "disabled"
	if cfg.IdleTimeout > 0 {
		idle = st.IdleRemaining.Round(time.Second).String()
	}

	_, _ = fmt.Fprintln(a.out, table.Render(
		[]string{"FIELD", "VALUE"},
		[][]string{
			{"PID", fmt.Sprint(st.PID)},
			{"Uptime", st.Uptime.Round(time.Second).String()},
			{"Last activity", humanize.Time(st.LastActivity)},
			{"Idle shutdown in", idle},
			{"Cache entries", humanize.Comma(int64(st.CacheEntries))},
			{"Socket", daemon.SocketPath(cfg.StateDir)},
		},
		nil,
	))
	return nil
}

// StopDaemon asks the primary to shut down.
func (a *App) StopDaemon(ctx context.Context) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	client, err := a.connector.Dial(ctx, cfg.StateDir)
	if err != nil {
		a.logger.Info("daemon is not running")
		return nil
	}
	defer func() { _ = client.Close() }()

	if err := client.Shutdown(ctx); err != nil {
		return err
	}
	a.logger.Info("daemon stopped")
	return nil
}

// ListCache prints the durable record. It reads the record without taking
// ownership of it, so it works while a primary is running.
func (a *App) ListCache(_ context.Context) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	entries, err := store.ReadRecord(cfg.RecordPath())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.out, "build cache is empty")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		size, built := "-", "never"
		if info, err := os.Stat(entry.Destination); err == nil {
			size = humanize.IBytes(uint64(info.Size())) //nolint:gosec // Sizes are non-negative
			built = humanize.Time(info.ModTime())
		}
		sourcemap := "no"
		if entry.Sourcemap {
			sourcemap = "yes"
		}
		rows = append(rows, []string{
			relative(cfg.OutputRoot, entry.Destination),
			fmt.Sprint(len(entry.Sources)),
			sourcemap,
			size,
			built,
		})
	}

	_, _ = fmt.Fprintln(a.out, table.Render(
		[]string{"DESTINATION", "SOURCES", "MAP", "SIZE", "BUILT"},
		rows,
		[]table.Alignment{table.AlignLeft, table.AlignRight, table.AlignLeft, table.AlignRight, table.AlignLeft},
	))
	return nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Artifacts also removes every recorded destination and its source map.
	Artifacts bool
}

// Clean removes the durable record and, optionally, the artifacts it lists.
// It refuses to run while a primary owns the record.
func (a *App) Clean(ctx context.Context, options CleanOptions) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}

	if a.connector.IsRunning(ctx, cfg.StateDir) {
		return zerr.With(domain.ErrPrimaryRunning, "state_dir", cfg.StateDir)
	}

	var errs error
	remove := func(path, name string) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Artifacts {
		entries, err := store.ReadRecord(cfg.RecordPath())
		if err != nil {
			errs = errors.Join(errs, err)
		}
		for _, entry := range entries {
			rel := relative(cfg.OutputRoot, entry.Destination)
			remove(entry.Destination, rel)
			remove(domain.MapPath(entry.Destination), rel+domain.MapExt)
		}
	}

	remove(cfg.RecordPath(), "build cache record")
	return errs
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
