package types

import "strings"

// Field is a single infobox key/value pair. Infobox order is meaningful on
// wiki pages, so the infobox is a slice rather than a map.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Table is a row/cell matrix extracted from markup or HTML.
type Table [][]string

// Section groups content blocks and tables under one heading. The first
// section of any document uses the sentinel heading "intro".
type Section struct {
	Heading string   `json:"heading"`
	Content []string `json:"content"`
	Tables  []Table  `json:"tables,omitempty"`
}

// IsEmpty reports whether the section carries no content at all.
func (s *Section) IsEmpty() bool {
	return len(s.Content) == 0 && len(s.Tables) == 0
}

// StructuredDocument is the normalized representation of a wiki page,
// produced by either the wikitext parser or the HTML extractor.
type StructuredDocument struct {
	Title         string    `json:"title"`
	Infobox       []Field   `json:"infobox"`
	Sections      []Section `json:"sections"`
	Transclusions []string  `json:"transclusions,omitempty"`
	SourceURL     string    `json:"source_url,omitempty"`

	// RawMarkup holds the cleaned wikitext body when the document came from
	// the structured API. Empty for HTML-extracted documents.
	RawMarkup string `json:"-"`
}

// InfoboxValue returns the value for key, or "" when absent.
func (d *StructuredDocument) InfoboxValue(key string) string {
	for _, f := range d.Infobox {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// ContentSize is the total number of characters across section content and
// table cells. Used by the strategy layer to judge whether extracted output
// is substantive enough to skip further fallback.
func (d *StructuredDocument) ContentSize() int {
	total := 0
	for _, sec := range d.Sections {
		for _, entry := range sec.Content {
			total += len(entry)
		}
		for _, table := range sec.Tables {
			for _, row := range table {
				for _, cell := range row {
					total += len(cell)
				}
			}
		}
	}
	return total
}

// IsEmpty reports whether the document holds no usable content.
func (d *StructuredDocument) IsEmpty() bool {
	if len(d.Infobox) > 0 || strings.TrimSpace(d.RawMarkup) != "" {
		return false
	}
	for _, sec := range d.Sections {
		if !sec.IsEmpty() {
			return false
		}
	}
	return true
}

// Summary returns the first non-empty content run of the document, used as a
// short description when serving results.
func (d *StructuredDocument) Summary() string {
	for _, sec := range d.Sections {
		n := len(sec.Content)
		if n > 2 {
			n = 2
		}
		s := strings.TrimSpace(strings.Join(sec.Content[:n], "\n"))
		if s != "" {
			return s
		}
	}
	return ""
}
