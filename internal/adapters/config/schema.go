package config

// File is the structure of stitch.yaml.
type File struct {
	OutputRoot string       `yaml:"output_root"`
	StateDir   string       `yaml:"state_dir"`
	BaseURL    string       `yaml:"base_url"`
	Sourcemap  SourcemapDTO `yaml:"sourcemap"`
	Watch      WatchDTO     `yaml:"watch"`
	Daemon     DaemonDTO    `yaml:"daemon"`
	Metrics    MetricsDTO   `yaml:"metrics"`
	NATS       NATSDTO      `yaml:"nats"`
	Log        LogDTO       `yaml:"log"`
}

// SourcemapDTO configures generated source maps.
type SourcemapDTO struct {
	IncludeContent bool `yaml:"include_content"`
}

// WatchDTO configures the filesystem watcher of the primary.
type WatchDTO struct {
	Enabled  bool   `yaml:"enabled"`
	Debounce string `yaml:"debounce"`
}

// DaemonDTO configures the serving primary.
type DaemonDTO struct {
	IdleTimeout string `yaml:"idle_timeout"`
}

// MetricsDTO configures the Prometheus endpoint.
type MetricsDTO struct {
	Addr string `yaml:"addr"`
}

// NATSDTO configures the NATS connection.
type NATSDTO struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogDTO configures logging.
type LogDTO struct {
	JSON bool `yaml:"json"`
}
