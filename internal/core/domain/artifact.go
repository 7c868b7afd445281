package domain

// Artifact is a concatenated output ready to be written.
type Artifact struct {
	// Destination is the absolute path of the output file.
	Destination string
	// Content is the concatenated text including the trailing sourceMappingURL line.
	Content []byte
	// MapPath is the companion source map path.
	MapPath string
	// Map is the encoded source map, nil when source maps are disabled.
	Map []byte
}
