// Package extract converts rendered wiki HTML into the same structured
// document that the wikitext parser produces, for pages where raw markup is
// unavailable.
package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/types"
)

// Selectors removed wholesale before any content walking.
const (
	nonContentSelector = "script, style, noscript, textarea"
	chromeSelector     = ".mw-editsection, .toc, .navbox, .navbar, .metadata, #mw-navigation, #footer, .ads, .comments"
)

var headingTags = map[string]bool{"h2": true, "h3": true, "h4": true}

var blockTags = map[string]bool{
	"p": true, "ul": true, "ol": true, "dl": true, "blockquote": true, "table": true,
}

// Extractor walks rendered wiki HTML and produces structured documents.
type Extractor struct {
	cfg    *config.ExtractConfig
	logger *slog.Logger
}

// New creates an HTML extractor with the given tuning thresholds.
func New(cfg *config.ExtractConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		logger: logger.With("component", "html_extractor"),
	}
}

// Extract converts rendered HTML into a StructuredDocument. Unparseable or
// empty input yields an empty document, not an error.
func (e *Extractor) Extract(rawHTML, sourceURL string) *types.StructuredDocument {
	doc := &types.StructuredDocument{SourceURL: sourceURL}
	if strings.TrimSpace(rawHTML) == "" {
		return doc
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.logger.Debug("html parse failed", "url", sourceURL, "error", err)
		return doc
	}

	gq.Find(nonContentSelector).Remove()
	gq.Find(chromeSelector).Remove()
	stripHidden(gq)

	doc.Title = e.resolveTitle(gq, sourceURL)

	root := mainContainer(gq, site.Detect(sourceURL).MainSelector)
	if root == nil {
		return doc
	}

	var blocks []*html.Node
	collectBlocks(root, &blocks)

	current := types.Section{Heading: "intro"}
	flush := func() {
		current.Content = e.filterEntries(current.Content)
		if !current.IsEmpty() {
			doc.Sections = append(doc.Sections, current)
		}
	}
	for _, node := range blocks {
		switch {
		case headingTags[node.Data]:
			flush()
			heading := nodeText(node, " ")
			if heading == "" {
				heading = "section"
			}
			current = types.Section{Heading: heading}
		case node.Data == "table":
			if rows := tableRows(node); len(rows) > 0 {
				current.Tables = append(current.Tables, rows)
			}
		default:
			if text := blockText(node); text != "" {
				current.Content = append(current.Content, text)
			}
		}
	}
	flush()

	if strings.Contains(sourceURL, "wiki.biligame.com/umamusume") {
		e.stripDataIslands(doc)
	}

	return doc
}

// Usable reports whether the extracted document is substantive enough to
// skip further fallback, per the configured size threshold.
func (e *Extractor) Usable(doc *types.StructuredDocument) bool {
	return doc != nil && doc.ContentSize() >= e.cfg.MinStructuredSize
}

// MainText returns the plain text of the page's main content container,
// used when structured extraction is not worth the trouble.
func (e *Extractor) MainText(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	root := mainContainer(gq, "")
	if root == nil {
		return ""
	}
	return nodeText(root, "\n")
}

// resolveTitle prefers the page heading, then the document title, then the
// locator's title segment.
func (e *Extractor) resolveTitle(gq *goquery.Document, sourceURL string) string {
	if t := strings.TrimSpace(gq.Find("#firstHeading").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(gq.Find("title").First().Text()); t != "" {
		return t
	}
	return site.Title(sourceURL)
}

// stripDataIslands removes embedded JSON arrays that biligame pages
// interleave with prose.
func (e *Extractor) stripDataIslands(doc *types.StructuredDocument) {
	for i := range doc.Sections {
		var cleaned []string
		for _, entry := range doc.Sections[i].Content {
			if s := strings.TrimSpace(StripJSONBlocks(entry, e.cfg.JSONMarkers)); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		doc.Sections[i].Content = cleaned
	}
}

// filterEntries drops empty, single-character and known-chrome entries, and
// deduplicates case-insensitively while preserving order.
func (e *Extractor) filterEntries(entries []string) []string {
	var cleaned []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		compact := strings.Join(strings.Fields(entry), " ")
		if len([]rune(compact)) <= 1 {
			continue
		}
		noisy := false
		for _, phrase := range e.cfg.NoisePhrases {
			if strings.Contains(compact, phrase) {
				noisy = true
				break
			}
		}
		if noisy {
			continue
		}
		key := strings.ToLower(compact)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, entry)
	}
	return cleaned
}

// StripJSONBlocks removes contiguous line ranges that open a bracketed array
// containing any marker, tracking [ / ] balance per line. Mirrors the
// infobox brace matcher: a depth counter, no regex recursion.
func StripJSONBlocks(text string, markers []string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	skipping := false
	depth := 0
	for _, line := range lines {
		if skipping {
			depth += strings.Count(line, "[") - strings.Count(line, "]")
			if depth <= 0 {
				skipping = false
			}
			continue
		}
		marked := false
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				marked = true
				break
			}
		}
		if marked {
			depth = strings.Count(line, "[") - strings.Count(line, "]")
			if depth > 0 {
				skipping = true
			}
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// mainContainer finds the wiki content root, trying the site profile's
// preferred selector first and falling back to the generic wiki containers,
// then body.
func mainContainer(gq *goquery.Document, preferred string) *html.Node {
	selectors := []string{".mw-parser-output", "#mw-content-text", "body"}
	if preferred != "" {
		selectors = append([]string{preferred}, selectors...)
	}
	for _, sel := range selectors {
		if s := gq.Find(sel).First(); s.Length() > 0 {
			return s.Nodes[0]
		}
	}
	return nil
}

// stripHidden removes nodes hidden via attributes or inline style.
func stripHidden(gq *goquery.Document) {
	gq.Find("*").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("hidden"); ok {
			s.Remove()
			return
		}
		if v, ok := s.Attr("aria-hidden"); ok && v == "true" {
			s.Remove()
			return
		}
		style, ok := s.Attr("style")
		if !ok || style == "" {
			return
		}
		normalized := strings.ToLower(strings.ReplaceAll(style, " ", ""))
		if strings.Contains(normalized, "display:none") ||
			strings.Contains(normalized, "visibility:hidden") ||
			strings.Contains(normalized, "opacity:0") {
			s.Remove()
		}
	})
}

// collectBlocks walks the container depth-first gathering heading and block
// nodes. A div with no nested heading/block descendant is a leaf container
// and is taken as one opaque text block instead of being descended into.
func collectBlocks(node *html.Node, out *[]*html.Node) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode {
			continue
		}
		if headingTags[child.Data] || blockTags[child.Data] {
			*out = append(*out, child)
			continue
		}
		if child.Data == "div" && !hasBlockDescendant(child) {
			*out = append(*out, child)
			continue
		}
		collectBlocks(child, out)
	}
}

func hasBlockDescendant(node *html.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			if headingTags[child.Data] || blockTags[child.Data] {
				return true
			}
			if hasBlockDescendant(child) {
				return true
			}
		}
	}
	return false
}

// blockText renders a block node to plain text: lists become bullet lines,
// definition lists become "term: description" lines, everything else is the
// node's text content.
func blockText(node *html.Node) string {
	switch node.Data {
	case "ul", "ol":
		var items []string
		for li := node.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != html.ElementNode || li.Data != "li" {
				continue
			}
			if text := nodeText(li, " "); text != "" {
				items = append(items, "- "+text)
			}
		}
		return strings.Join(items, "\n")
	case "dl":
		var lines []string
		for dt := node.FirstChild; dt != nil; dt = dt.NextSibling {
			if dt.Type != html.ElementNode || dt.Data != "dt" {
				continue
			}
			term := nodeText(dt, " ")
			desc := ""
			for sib := dt.NextSibling; sib != nil; sib = sib.NextSibling {
				if sib.Type == html.ElementNode {
					if sib.Data == "dd" {
						desc = nodeText(sib, " ")
					}
					break
				}
			}
			line := strings.Trim(term+": "+desc, ": ")
			if line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return nodeText(node, "\n")
	}
}

// tableRows converts a table node into a row/cell matrix, reading both
// header and data cells.
func tableRows(table *html.Node) types.Table {
	var rows types.Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			if child.Data == "tr" {
				var cells []string
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "th" || cell.Data == "td") {
						cells = append(cells, nodeText(cell, " "))
					}
				}
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
				continue
			}
			walk(child)
		}
	}
	walk(table)
	return rows
}

// nodeText joins the stripped text descendants of a node with sep.
func nodeText(node *html.Node, sep string) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				if t := strings.TrimSpace(child.Data); t != "" {
					parts = append(parts, t)
				}
				continue
			}
			walk(child)
		}
	}
	walk(node)
	return strings.Join(parts, sep)
}
