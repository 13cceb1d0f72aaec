// Package wikitext parses the lightweight wiki markup dialect returned by
// the structured API into a StructuredDocument.
package wikitext

import (
	"regexp"
	"strings"

	"github.com/aokana/wikiharvest/internal/types"
)

var infoboxMarkers = []string{"角色信息", "infobox"}

var (
	sectionRe      = regexp.MustCompile(`^(={2,})\s*(.+?)\s*={2,}\s*$`)
	transclusionRe = regexp.MustCompile(`\{\{:\s*([^}|]+)`)
)

// Parser converts raw wikitext into structured documents. Stateless; safe
// for concurrent use.
type Parser struct {
	siteKind string
}

// NewParser creates a parser tuned for one site family's template habits.
func NewParser(siteKind string) *Parser {
	return &Parser{siteKind: siteKind}
}

// Parse converts raw markup into a StructuredDocument. Empty input yields an
// empty document, not an error.
func (p *Parser) Parse(raw string) *types.StructuredDocument {
	doc := &types.StructuredDocument{}
	if strings.TrimSpace(raw) == "" {
		return doc
	}

	block, start, end := extractInfoboxBlock(raw)
	remaining := raw
	if block != "" {
		doc.Infobox = parseInfoboxFields(block, p.siteKind)
		remaining = strings.TrimSpace(raw[:start] + raw[end:])
	}

	doc.Transclusions = ExtractTransclusions(remaining)
	doc.Sections = p.splitSections(remaining)
	doc.RawMarkup = remaining
	return doc
}

// extractInfoboxBlock locates the first balanced {{...}} block whose opening
// 120-character window contains a recognized infobox marker. Balance is a
// simple depth counter over {{ and }}; the first block back at depth zero
// wins. Nested infoboxes are not handled.
func extractInfoboxBlock(wikitext string) (block string, start, end int) {
	for from := 0; ; {
		idx := strings.Index(wikitext[from:], "{{")
		if idx < 0 {
			return "", -1, -1
		}
		at := from + idx
		windowEnd := at + 120
		if windowEnd > len(wikitext) {
			windowEnd = len(wikitext)
		}
		preview := strings.ToLower(wikitext[at:windowEnd])
		matched := false
		for _, marker := range infoboxMarkers {
			if strings.Contains(preview, marker) {
				matched = true
				break
			}
		}
		if !matched {
			from = at + 2
			continue
		}

		depth := 0
		for i := at; i < len(wikitext); {
			switch {
			case strings.HasPrefix(wikitext[i:], "{{"):
				depth++
				i += 2
			case strings.HasPrefix(wikitext[i:], "}}"):
				depth--
				i += 2
				if depth == 0 {
					return wikitext[at:i], at, i
				}
			default:
				i++
			}
		}
		// Unbalanced from this marker; try the next opener.
		from = at + 2
	}
}

// parseInfoboxFields splits the infobox body into |key=value parameters.
// Multi-line values accumulate until the next |key= line or block end.
// Single-line infoboxes are normalized to one parameter per line first.
func parseInfoboxFields(infoboxRaw, siteKind string) []types.Field {
	body := strings.TrimSpace(infoboxRaw)
	body = strings.TrimPrefix(body, "{{")
	body = strings.TrimSuffix(body, "}}")
	if !strings.Contains(body, "\n") {
		body = strings.ReplaceAll(body, "|", "\n|")
	}

	var fields []types.Field
	currentKey := ""
	var buffer []string

	flush := func() {
		if currentKey == "" {
			return
		}
		value := strings.TrimSpace(strings.Join(buffer, "\n"))
		if cleaned := CleanValue(value, siteKind); cleaned != "" {
			fields = append(fields, types.Field{Key: currentKey, Value: cleaned})
		}
	}

	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimRight(rawLine, " \t")
		if strings.HasPrefix(line, "|") && strings.Contains(line, "=") {
			flush()
			key, value, _ := strings.Cut(line[1:], "=")
			currentKey = strings.TrimSpace(key)
			buffer = []string{strings.TrimSpace(value)}
		} else if currentKey != "" {
			buffer = append(buffer, strings.TrimSpace(line))
		}
	}
	flush()
	return fields
}

// ExtractTransclusions collects {{:Title}} references in document order,
// deduplicated.
func ExtractTransclusions(wikitext string) []string {
	var titles []string
	seen := make(map[string]bool)
	for _, m := range transclusionRe.FindAllStringSubmatch(wikitext, -1) {
		title := strings.TrimSpace(m[1])
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		titles = append(titles, title)
	}
	return titles
}

// splitSections divides the remainder text on ==Heading== lines; everything
// before the first heading becomes the sentinel "intro" section.
func (p *Parser) splitSections(wikitext string) []types.Section {
	var sections []types.Section
	currentHeading := "intro"
	var buffer []string

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		raw := strings.TrimSpace(strings.Join(buffer, "\n"))
		if cleaned := CleanValue(raw, p.siteKind); cleaned != "" {
			sections = append(sections, types.Section{
				Heading: currentHeading,
				Content: []string{cleaned},
			})
		}
	}

	for _, line := range strings.Split(wikitext, "\n") {
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			flush()
			currentHeading = strings.TrimSpace(m[2])
			if currentHeading == "" {
				currentHeading = "section"
			}
			buffer = nil
			continue
		}
		buffer = append(buffer, line)
	}
	flush()
	return sections
}
