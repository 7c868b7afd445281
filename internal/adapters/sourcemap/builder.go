// Package sourcemap concatenates sources and generates Source Map v3 files.
package sourcemap

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/zerr"
)

// Separator joins consecutive pieces of a concatenation.
const Separator = "\n"

// Mapping links a generated position to an original position. Lines are
// 1-based, columns 0-based, as Source Map v3 counts them.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	Source          int
	OriginalLine    int
	OriginalColumn  int
}

// document is the JSON form of a version 3 source map.
type document struct {
	Version        int       `json:"version"`
	File           string    `json:"file"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Builder accumulates concatenated content and, when enabled, the mappings
// of every line back to its source. Mappings are recorded as each piece is added.
type Builder struct {
	withMap        bool
	includeContent bool
	file           string

	content    bytes.Buffer
	pieces     int
	lineOffset int

	sources  []string
	index    map[string]int
	contents []*string
	mappings []Mapping
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithSourcesContent embeds every source's text in the generated map.
func WithSourcesContent() BuilderOption {
	return func(b *Builder) {
		b.includeContent = true
	}
}

// NewBuilder creates a Builder for the generated file named file. Mappings are
// only recorded when withMap is true.
func NewBuilder(withMap bool, file string, opts ...BuilderOption) *Builder {
	b := &Builder{
		withMap: withMap,
		file:    file,
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends content. When source is not empty every line of content is
// mapped to the same line of source; an empty source adds unmapped text.
func (b *Builder) Add(source string, content []byte) {
	if b.pieces > 0 {
		b.content.WriteString(Separator)
		b.lineOffset += strings.Count(Separator, "\n")
	}
	b.pieces++

	lines := bytes.Count(content, []byte("\n")) + 1
	if b.withMap && source != "" {
		idx := b.sourceIndex(source, content)
		for i := range lines {
			b.mappings = append(b.mappings, Mapping{
				GeneratedLine:   b.lineOffset + i + 1,
				GeneratedColumn: 0,
				Source:          idx,
				OriginalLine:    i + 1,
				OriginalColumn:  0,
			})
		}
	}

	b.content.Write(content)
	b.lineOffset += lines - 1
}

func (b *Builder) sourceIndex(source string, content []byte) int {
	if idx, ok := b.index[source]; ok {
		return idx
	}
	idx := len(b.sources)
	b.index[source] = idx
	b.sources = append(b.sources, source)
	text := string(content)
	b.contents = append(b.contents, &text)
	return idx
}

// Content returns the concatenated text.
func (b *Builder) Content() []byte {
	return bytes.Clone(b.content.Bytes())
}

// Mappings returns the recorded mappings in generated order.
func (b *Builder) Mappings() []Mapping {
	out := make([]Mapping, len(b.mappings))
	copy(out, b.mappings)
	return out
}

// SourceMap encodes the map as JSON. It returns nil when maps are disabled.
func (b *Builder) SourceMap() ([]byte, error) {
	if !b.withMap {
		return nil, nil
	}

	doc := document{
		Version:  3,
		File:     b.file,
		Sources:  append([]string{}, b.sources...),
		Names:    []string{},
		Mappings: EncodeMappings(b.mappings),
	}
	if b.includeContent {
		doc.SourcesContent = b.contents
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrSourceMapMarshalFailed.Error())
	}
	return data, nil
}

// EncodeMappings serializes mappings, sorted by generated position, into the
// "mappings" field: lines separated by ';', segments by ',', each segment a
// run of VLQ deltas against the previous segment.
func EncodeMappings(mappings []Mapping) string {
	var b strings.Builder
	var prevColumn, prevSource, prevOrigLine, prevOrigColumn int
	prevLine := 1

	for i, m := range mappings {
		switch {
		case m.GeneratedLine != prevLine:
			prevColumn = 0
			for prevLine < m.GeneratedLine {
				b.WriteByte(';')
				prevLine++
			}
		case i > 0:
			if m == mappings[i-1] {
				continue
			}
			b.WriteByte(',')
		}

		appendVLQ(&b, m.GeneratedColumn-prevColumn)
		prevColumn = m.GeneratedColumn

		appendVLQ(&b, m.Source-prevSource)
		prevSource = m.Source

		appendVLQ(&b, m.OriginalLine-1-prevOrigLine)
		prevOrigLine = m.OriginalLine - 1

		appendVLQ(&b, m.OriginalColumn-prevOrigColumn)
		prevOrigColumn = m.OriginalColumn
	}

	return b.String()
}

// DecodeMappings parses a "mappings" field produced with four-field segments.
func DecodeMappings(s string) ([]Mapping, error) {
	var out []Mapping
	var column, source, origLine, origColumn int
	line := 1

	for _, group := range strings.Split(s, ";") {
		column = 0
		for _, segment := range strings.Split(group, ",") {
			if segment == "" {
				continue
			}
			fields := make([]int, 0, 4)
			rest := segment
			for rest != "" {
				value, remainder, err := decodeVLQ(rest)
				if err != nil {
					return nil, err
				}
				fields = append(fields, value)
				rest = remainder
			}
			if len(fields) < 4 {
				return nil, zerr.With(zerr.New("source map segment has no source position"), "segment", segment)
			}
			column += fields[0]
			source += fields[1]
			origLine += fields[2]
			origColumn += fields[3]
			out = append(out, Mapping{
				GeneratedLine:   line,
				GeneratedColumn: column,
				Source:          source,
				OriginalLine:    origLine + 1,
				OriginalColumn:  origColumn,
			})
		}
		line++
	}
	return out, nil
}
