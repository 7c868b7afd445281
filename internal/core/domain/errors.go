package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

// Origin tags errors raised by the concat subsystem.
const Origin = "concat"

var (
	// ErrUndefinedSources is returned when a request carries no source files.
	ErrUndefinedSources = zerr.New("undefined source list")

	// ErrUndefinedDestination is returned when a request carries no destination.
	ErrUndefinedDestination = zerr.New("undefined destination")

	// ErrMissingLayout is returned when a directory destination needs a layout name but the document has none.
	ErrMissingLayout = zerr.New("directory destination requires a document layout")

	// ErrSourceReadFailed is returned when a source file cannot be read.
	ErrSourceReadFailed = zerr.New("failed to read source file")

	// ErrArtifactWriteFailed is returned when the concatenated output cannot be written.
	ErrArtifactWriteFailed = zerr.New("failed to write concatenated output")

	// ErrSourceMapWriteFailed is returned when the companion source map cannot be written.
	ErrSourceMapWriteFailed = zerr.New("failed to write source map")

	// ErrSourceMapMarshalFailed is returned when the source map cannot be encoded.
	ErrSourceMapMarshalFailed = zerr.New("failed to marshal source map")

	// ErrRecordReadFailed is returned when the durable cache record cannot be read.
	ErrRecordReadFailed = zerr.New("failed to read cache record")

	// ErrRecordMarshalFailed is returned when the cache cannot be encoded.
	ErrRecordMarshalFailed = zerr.New("failed to marshal cache record")

	// ErrRecordWriteFailed is returned when the durable cache record cannot be written.
	ErrRecordWriteFailed = zerr.New("failed to write cache record")

	// ErrRecordCreateFailed is returned when the state directory cannot be created.
	ErrRecordCreateFailed = zerr.New("failed to create state directory")

	// ErrEntryNotFound is returned when no cache entry exists for a destination.
	ErrEntryNotFound = zerr.New("cache entry not found")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when a config value is out of range.
	ErrConfigInvalid = zerr.New("invalid configuration value")

	// ErrPrimaryRunning is returned when a command needs the primary role but another process holds it.
	ErrPrimaryRunning = zerr.New("another stitch primary is already running")

	// ErrPrimaryUnavailable is returned when a secondary cannot reach the primary.
	ErrPrimaryUnavailable = zerr.New("stitch primary is not reachable")

	// ErrLockFailed is returned when the primary lock cannot be acquired or released.
	ErrLockFailed = zerr.New("failed to acquire primary lock")

	// ErrDaemonSpawnFailed is returned when the background primary cannot be started.
	ErrDaemonSpawnFailed = zerr.New("failed to spawn stitch daemon")

	// ErrInvalidChangeEvent is returned when a published change event cannot be decoded.
	ErrInvalidChangeEvent = zerr.New("invalid change event")

	// ErrBusConnectFailed is returned when the NATS server cannot be reached.
	ErrBusConnectFailed = zerr.New("failed to connect to NATS")

	// ErrBuildsFailed is returned by the CLI when one or more background builds reported diagnostics.
	ErrBuildsFailed = zerr.New("one or more builds failed")
)

// ConfigError reports an invalid concat request. It is raised synchronously to
// the caller and carries the origin of the subsystem that rejected it.
type ConfigError struct {
	Origin string
	Err    error
}

// NewConfigError tags err with the concat origin.
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Origin: Origin, Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Origin, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// BuildError reports a failed read or write while producing a destination.
type BuildError struct {
	BuildID     string
	Destination string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Destination, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failure to write the durable cache record.
// The in-memory cache still holds the update when this is returned.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
