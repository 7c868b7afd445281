package ports

// FreshnessOracle decides from modification times whether a destination must be rebuilt.
type FreshnessOracle interface {
	// IsStale reports whether destination is missing or older than any of sources.
	IsStale(sources []string, destination string) bool
}
