// Package config provides the configuration loader for stitch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL prefixes destination URLs when none is configured.
	DefaultBaseURL = "/"
	// DefaultDebounce is the watcher's event coalescing window.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultIdleTimeout stops a spawned primary after this long without requests.
	DefaultIdleTimeout = 3 * time.Hour
	// DefaultSubjectPrefix prefixes the NATS subjects.
	DefaultSubjectPrefix = "stitch"
)

// Environment variables overriding file values.
const (
	EnvOutputRoot  = "STITCH_OUTPUT_ROOT"
	EnvStateDir    = "STITCH_STATE_DIR"
	EnvBaseURL     = "STITCH_BASE_URL"
	EnvWatch       = "STITCH_WATCH"
	EnvIdleTimeout = "STITCH_IDLE_TIMEOUT"
	EnvMetricsAddr = "STITCH_METRICS_ADDR"
	EnvNATSURL     = "STITCH_NATS_URL"
	EnvLogJSON     = "STITCH_LOG_JSON"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds stitch.yaml in cwd or its parents and resolves it. Without a
// file the defaults apply relative to cwd. Relative paths in the file are
// relative to the file's directory.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	var file File
	base := cwd

	path, found := findConfiguration(cwd)
	if found {
		if err := readAndUnmarshalYAML(path, &file); err != nil {
			return nil, err
		}
		base = filepath.Dir(path)
	}

	applyEnv(&file)

	cfg, err := resolve(base, &file)
	if err != nil {
		return nil, zerr.With(err, "config", path)
	}

	if cfg.Watch && within(cfg.OutputRoot, cfg.StateDir) && l.Logger != nil {
		l.Logger.Warn(fmt.Sprintf("state directory %s is inside the watched output root %s", cfg.StateDir, cfg.OutputRoot))
	}
	return cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func readAndUnmarshalYAML(path string, v any) error {
	//nolint:gosec // Path is discovered by walking up from the working directory
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return nil
}

func applyEnv(f *File) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString(EnvOutputRoot, &f.OutputRoot)
	setString(EnvStateDir, &f.StateDir)
	setString(EnvBaseURL, &f.BaseURL)
	setString(EnvIdleTimeout, &f.Daemon.IdleTimeout)
	setString(EnvMetricsAddr, &f.Metrics.Addr)
	setString(EnvNATSURL, &f.NATS.URL)
	setBool(EnvWatch, &f.Watch.Enabled)
	setBool(EnvLogJSON, &f.Log.JSON)
}

func resolve(base string, f *File) (*domain.Config, error) {
	cfg := &domain.Config{
		OutputRoot:            absolute(base, f.OutputRoot, domain.DefaultOutputDir),
		StateDir:              absolute(base, f.StateDir, domain.StateDirName),
		BaseURL:               f.BaseURL,
		IncludeSourcesContent: f.Sourcemap.IncludeContent,
		Watch:                 f.Watch.Enabled,
		MetricsAddr:           f.Metrics.Addr,
		NATSURL:               f.NATS.URL,
		SubjectPrefix:         f.NATS.SubjectPrefix,
		JSONLogs:              f.Log.JSON,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	var err error
	if cfg.Debounce, err = duration("watch.debounce", f.Watch.Debounce, DefaultDebounce); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = duration("daemon.idle_timeout", f.Daemon.IdleTimeout, DefaultIdleTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absolute(base, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// duration parses a non-negative duration; "0" disables the feature it configures.
func duration(key, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrConfigInvalid.Error()), "key", key)
	}
	if d < 0 {
		return 0, zerr.With(zerr.With(domain.ErrConfigInvalid, "key", key), "value", value)
	}
	return d, nil
}
