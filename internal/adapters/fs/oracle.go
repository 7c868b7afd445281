// Package fs implements the filesystem side of the concat engine: the
// freshness oracle, the source reader and the artifact writer.
package fs

import (
	"os"

	"go.trai.ch/stitch/internal/core/ports"
)

var _ ports.FreshnessOracle = (*Oracle)(nil)

// Oracle decides staleness from modification times.
type Oracle struct{}

// NewOracle creates a new Oracle.
func NewOracle() *Oracle {
	return &Oracle{}
}

// IsStale reports whether destination must be rebuilt: it is missing, or at
// least one source was modified strictly after it. A source that cannot be
// stat'ed counts as newer so the build runs and surfaces the failure.
func (o *Oracle) IsStale(sources []string, destination string) bool {
	dest, err := os.Stat(destination)
	if err != nil {
		return true
	}
	destMod := dest.ModTime()

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return true
		}
		if info.ModTime().After(destMod) {
			return true
		}
	}
	return false
}
