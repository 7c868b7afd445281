// Package diagnostics implements the sinks background build failures are reported to.
package diagnostics

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.Diagnostics = (*LogSink)(nil)
	_ ports.Diagnostics = (Multi)(nil)
)

// LogSink writes diagnostics to a logger and counts them by severity.
type LogSink struct {
	logger   ports.Logger
	errors   atomic.Int64
	warnings atomic.Int64

	mu   sync.Mutex
	last []domain.Diagnostic
}

// NewLogSink creates a LogSink writing to logger.
func NewLogSink(logger ports.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Report logs d. Errors are logged with their full chain and annotated with
// the destination, build and context.
func (s *LogSink) Report(d domain.Diagnostic) {
	s.mu.Lock()
	s.last = append(s.last, d)
	s.mu.Unlock()

	if d.Severity == domain.SeverityWarning {
		s.warnings.Add(1)
		s.logger.Warn(fmt.Sprintf("%s: %s (%v)", d.Destination, d.Message, d.Err))
		return
	}

	s.errors.Add(1)
	err := d.Err
	if err == nil {
		err = zerr.New(d.Message)
	}
	err = zerr.With(err, "destination", d.Destination)
	err = zerr.With(err, "build_id", d.BuildID)
	err = zerr.With(err, "context", d.Context)
	s.logger.Error(err)
}

// Errors returns the number of error diagnostics reported.
func (s *LogSink) Errors() int {
	return int(s.errors.Load())
}

// Warnings returns the number of warning diagnostics reported.
func (s *LogSink) Warnings() int {
	return int(s.warnings.Load())
}

// Reported returns every diagnostic reported so far.
func (s *LogSink) Reported() []domain.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Diagnostic(nil), s.last...)
}

// Multi forwards every diagnostic to each of its sinks.
type Multi []ports.Diagnostics

// Report forwards d to every sink.
func (m Multi) Report(d domain.Diagnostic) {
	for _, sink := range m {
		if sink != nil {
			sink.Report(d)
		}
	}
}
