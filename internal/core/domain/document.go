package domain

import (
	"path/filepath"
	"strings"
)

// Document is the host document issuing concat requests.
type Document struct {
	// Path is the document's own output path, used to label diagnostics.
	Path string
	// Share is the output namespace of the document, empty when it has none.
	Share string
	// Layouts lists the layout ids applied to the document, primary first.
	Layouts []string
}

// LayoutBaseName returns the primary layout's file name without its extension.
// It returns "" when the document has no layout.
func (d Document) LayoutBaseName() string {
	if len(d.Layouts) == 0 || d.Layouts[0] == "" {
		return ""
	}
	base := filepath.Base(d.Layouts[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}
