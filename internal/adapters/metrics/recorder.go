// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

const namespace = "stitch"

var _ ports.Metrics = (*Recorder)(nil)

// Recorder implements ports.Metrics on its own Prometheus registry.
type Recorder struct {
	reg           *prom.Registry
	buildDuration *prom.HistogramVec
	builds        *prom.CounterVec
	cacheEntries  prom.Gauge
	invalidations *prom.CounterVec
	matched       prom.Counter
}

// NewRecorder registers the stitch metrics on reg, or on a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of build attempts by outcome",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Build attempts by outcome",
		}, []string{"outcome"}),
		cacheEntries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Destinations held in the build cache",
		}),
		invalidations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invalidation_events_total",
			Help:      "Change events handled by the invalidation listener",
		}, []string{"event"}),
		matched: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invalidation_matches_total",
			Help:      "Destinations matched by change events",
		}),
	}
	reg.MustRegister(r.buildDuration, r.builds, r.cacheEntries, r.invalidations, r.matched)
	return r
}

// ObserveBuild counts a build attempt and records its duration.
func (r *Recorder) ObserveBuild(outcome ports.BuildOutcome, d time.Duration) {
	r.builds.WithLabelValues(string(outcome)).Inc()
	r.buildDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

// SetCacheEntries records the current cache size.
func (r *Recorder) SetCacheEntries(n int) {
	r.cacheEntries.Set(float64(n))
}

// IncInvalidation counts a handled change event and the destinations it matched.
func (r *Recorder) IncInvalidation(kind domain.ChangeKind, matched int) {
	r.invalidations.WithLabelValues(string(kind)).Inc()
	r.matched.Add(float64(matched))
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prom.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	lis, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen for metrics"), "addr", addr)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, "metrics server failed")
	}
	return nil
}
