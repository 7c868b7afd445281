package domain

import "time"

// Config is the resolved runtime configuration of stitch.
type Config struct {
	// OutputRoot is the absolute root every source and destination resolves against.
	OutputRoot string
	// StateDir is the absolute runtime-state directory holding the record, lock and pid.
	StateDir string
	// BaseURL prefixes destination URLs returned to callers.
	BaseURL string
	// IncludeSourcesContent embeds source text in generated source maps.
	IncludeSourcesContent bool
	// Watch enables the filesystem watcher on the output root while serving.
	Watch bool
	// Debounce coalesces bursts of filesystem events.
	Debounce time.Duration
	// IdleTimeout stops a serving primary after this long without requests; zero disables it.
	IdleTimeout time.Duration
	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it.
	MetricsAddr string
	// NATSURL is the NATS server used for change events and diagnostics; empty disables it.
	NATSURL string
	// SubjectPrefix prefixes the NATS subjects.
	SubjectPrefix string
	// JSONLogs switches the logger to JSON output.
	JSONLogs bool
}

// RecordPath returns the durable record path of this configuration.
func (c *Config) RecordPath() string {
	return RecordPath(c.StateDir)
}
