// Package assemble renders a structured document into markdown. Two shapes
// are supported: a bullet-heavy LLM-oriented layout and a table-based
// human-readable one.
package assemble

import (
	"strings"

	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/wikitext"
)

// Format selects the output shape.
type Format string

const (
	// FormatLLM renders infobox fields as key/value bullets and the body
	// from lightly cleaned raw markup, preserving as much signal as
	// possible for machine consumption.
	FormatLLM Format = "llm"
	// FormatMarkdown renders the infobox as a table and the body from
	// structured sections, for human reading.
	FormatMarkdown Format = "markdown"
)

// Render produces the markdown form of a document. An unknown format falls
// back to the LLM layout. Title precedence: the explicit argument wins over
// the document's own title.
func Render(doc *types.StructuredDocument, title string, format Format, siteKind string) string {
	if title == "" {
		title = doc.Title
	}
	switch format {
	case FormatMarkdown:
		return renderHuman(doc, title)
	default:
		return renderLLM(doc, title, siteKind)
	}
}

func renderLLM(doc *types.StructuredDocument, title, siteKind string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("# " + title + "\n\n")
	}

	if len(doc.Infobox) > 0 {
		b.WriteString("## 基本信息\n\n")
		for _, f := range doc.Infobox {
			b.WriteString("- **" + f.Key + "**: " + oneLine(f.Value) + "\n")
		}
		b.WriteString("\n")
	}

	if doc.RawMarkup != "" {
		body := strings.TrimSpace(wikitext.CleanForLLM(doc.RawMarkup, siteKind))
		if body != "" {
			b.WriteString(body + "\n")
		}
	} else {
		writeSections(&b, doc.Sections)
	}

	if len(doc.Transclusions) > 0 {
		b.WriteString("\n## 关联页面\n\n")
		for _, t := range doc.Transclusions {
			b.WriteString("- " + t + "\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func renderHuman(doc *types.StructuredDocument, title string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("# " + title + "\n\n")
	}

	if len(doc.Infobox) > 0 {
		b.WriteString("| 项目 | 内容 |\n|---|---|\n")
		for _, f := range doc.Infobox {
			b.WriteString("| " + escapeCell(f.Key) + " | " + escapeCell(f.Value) + " |\n")
		}
		b.WriteString("\n")
	}

	writeSections(&b, doc.Sections)

	if len(doc.Transclusions) > 0 {
		b.WriteString("\n## 关联页面\n\n")
		for _, t := range doc.Transclusions {
			b.WriteString("- " + t + "\n")
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func writeSections(b *strings.Builder, sections []types.Section) {
	for _, sec := range sections {
		if sec.IsEmpty() {
			continue
		}
		if sec.Heading != "" && sec.Heading != "intro" {
			b.WriteString("## " + sec.Heading + "\n\n")
		}
		for _, block := range sec.Content {
			b.WriteString(block + "\n\n")
		}
		for _, table := range sec.Tables {
			writeTable(b, table)
		}
	}
}

func writeTable(b *strings.Builder, table types.Table) {
	if len(table) == 0 {
		return
	}
	cols := len(table[0])
	b.WriteString("| " + joinCells(table[0]) + " |\n")
	b.WriteString("|" + strings.Repeat("---|", cols) + "\n")
	for _, row := range table[1:] {
		b.WriteString("| " + joinCells(row) + " |\n")
	}
	b.WriteString("\n")
}

func joinCells(row []string) string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = escapeCell(c)
	}
	return strings.Join(cells, " | ")
}

func escapeCell(s string) string {
	s = oneLine(s)
	return strings.ReplaceAll(s, "|", "\\|")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
