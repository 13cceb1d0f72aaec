package wikitext

import (
	"regexp"
	"strings"
)

var (
	linkRe     = regexp.MustCompile(`\[\[(?:[^|\]]*\|)?([^\]]+)\]\]`)
	boldRe     = regexp.MustCompile(`'{2,5}(.*?)'{2,5}`)
	brRe       = regexp.MustCompile(`<(?:br|BR|Br)\s*/?>`)
	templateRe = regexp.MustCompile(`\{\{(.*?)\}\}`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	refRe      = regexp.MustCompile(`(?s)<ref[^>]*>(.*?)</ref>`)
	refSelfRe  = regexp.MustCompile(`<ref[^>]*/>`)
	layoutRe   = regexp.MustCompile(`</?(?:div|span|center|font|big|small|table|tr|td|th)[^>]*>`)
	headingRe  = regexp.MustCompile(`(?m)^(=+)\s*(.*?)\s*=+\s*$`)
)

// cleanTemplate resolves one {{...}} body to its surviving text. Notice-style
// templates keep the first positional parameter, lang/ruby-style keep the
// last; everything else defaults to the last positional parameter.
func cleanTemplate(content, siteKind string) string {
	parts := strings.Split(content, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 0 {
		return ""
	}
	name := parts[0]
	var params []string
	for _, p := range parts[1:] {
		if p != "" {
			params = append(params, p)
		}
	}

	switch name {
	case "提示", "notice", "tip":
		for _, p := range params {
			if !strings.Contains(p, "=") {
				return p
			}
		}
		return ""
	case "lang", "lj", "ruby":
		return lastPositional(params)
	}

	// biligame and the default strategy both keep the last positional
	return lastPositional(params)
}

func lastPositional(params []string) string {
	for i := len(params) - 1; i >= 0; i-- {
		if params[i] != "" && !strings.Contains(params[i], "=") {
			return params[i]
		}
	}
	return ""
}

// CleanValue gently normalizes a wikitext fragment: links reduce to their
// display text, bold/italic markers drop, <br> becomes a newline, nested
// sub-templates resolve through the rule table, leftover tags are stripped.
func CleanValue(text, siteKind string) string {
	if text == "" {
		return ""
	}
	text = linkRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = brRe.ReplaceAllString(text, "\n")
	text = templateRe.ReplaceAllStringFunc(text, func(m string) string {
		return cleanTemplate(m[2:len(m)-2], siteKind)
	})
	text = tagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// CleanForLLM is the lighter cleanup used for whole-body rendering: it keeps
// document structure (headings, key/value lines) and only removes markup
// noise. Transclusion references become labeled callout lines.
func CleanForLLM(text, siteKind string) string {
	if text == "" {
		return ""
	}

	text = linkRe.ReplaceAllString(text, "[$1]")
	text = refRe.ReplaceAllString(text, " ($1) ")
	text = refSelfRe.ReplaceAllString(text, "")
	text = brRe.ReplaceAllString(text, "\n")
	text = layoutRe.ReplaceAllString(text, " ")

	replace := func(m string) string {
		content := strings.TrimSpace(m[2 : len(m)-2])
		if strings.HasPrefix(content, ":") {
			return "\n> 🔗 **关联页面**: " + strings.TrimSpace(content[1:]) + "\n"
		}
		return cleanTemplate(content, siteKind)
	}
	// Three passes unwrap templates nested up to three levels deep.
	for i := 0; i < 3; i++ {
		text = templateRe.ReplaceAllStringFunc(text, replace)
	}

	text = headingRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := headingRe.FindStringSubmatch(m)
		return strings.Repeat("#", len(sub[1])) + " " + strings.TrimSpace(sub[2])
	})

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(stripped, "|") && strings.Contains(stripped, "=") {
			key, val, _ := strings.Cut(stripped[1:], "=")
			key = strings.TrimSpace(key)
			val = strings.TrimSpace(val)
			if key != "" && val != "" {
				lines = append(lines, "- **"+key+"**: "+val)
				continue
			}
		}
		lines = append(lines, stripped)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
