package domain

import "path/filepath"

const (
	// StateDirName is the default name of the runtime-state directory.
	StateDirName = ".stitch"

	// RecordFileName is the fixed name of the durable build-cache record.
	RecordFileName = "concat-cache.json"

	// LockFileName is the name of the primary election lock file.
	LockFileName = "stitch.lock"

	// PIDFileName is the name of the file holding the primary's process id.
	PIDFileName = "stitch.pid"

	// DaemonLogFileName is the name of the log file of a spawned primary.
	DaemonLogFileName = "daemon.log"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "stitch.yaml"

	// DefaultOutputDir is the output root used when none is configured.
	DefaultOutputDir = "out"

	// DefaultSourceExt is the conventional source extension when sources carry none.
	DefaultSourceExt = ".js"

	// MapExt is appended to a destination to name its source map.
	MapExt = ".map"

	// AllInfix joins a layout base name and the source extension for directory destinations.
	AllInfix = ".all"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600

	// SocketPerm is the permission of the primary's Unix socket (rw-------).
	SocketPerm = 0o600
)

// RecordPath returns the path of the durable record inside stateDir.
func RecordPath(stateDir string) string {
	return filepath.Join(stateDir, RecordFileName)
}

// LockPath returns the path of the primary lock inside stateDir.
func LockPath(stateDir string) string {
	return filepath.Join(stateDir, LockFileName)
}

// PIDPath returns the path of the primary pid file inside stateDir.
func PIDPath(stateDir string) string {
	return filepath.Join(stateDir, PIDFileName)
}

// DaemonLogPath returns the path of the spawned primary's log inside stateDir.
func DaemonLogPath(stateDir string) string {
	return filepath.Join(stateDir, DaemonLogFileName)
}

// MapPath returns the source map path for a destination.
func MapPath(destination string) string {
	return destination + MapExt
}
