package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// SocketPath returns the Unix socket of the primary for stateDir. It lives in
// the temp directory, named after a digest of stateDir, to stay under the
// platform's socket path limit.
func SocketPath(stateDir string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("stitch-%016x.sock", xxhash.Sum64String(filepath.Clean(stateDir))))
}

func target(stateDir string) string {
	return "unix://" + SocketPath(stateDir)
}
