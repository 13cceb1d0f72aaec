package render

import "strings"

// Rendered-but-empty shells some sites serve to automation. Compared after
// whitespace removal and lowercasing.
var emptyShells = map[string]bool{
	"<html></html>":                           true,
	"<html><head></head><body></body></html>": true,
	`<divclass='mw-parser-output'></div>`:     true,
	`<divclass="mw-parser-output"></div>`:     true,
}

var gatewaySignatures = []string{
	"gateway time-out",
	"gateway timeout",
	"504 gateway",
	">504<",
}

// LooksLikeEmptyShell reports whether rendered HTML carries no content at
// all: blank, a known shell pattern, or missing both body and div markup.
func LooksLikeEmptyShell(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(html), ""))
	if emptyShells[normalized] {
		return true
	}
	return !strings.Contains(normalized, "<body") && !strings.Contains(normalized, "<div")
}

// LooksLikeGatewayTimeout detects upstream 504 pages that arrive with a
// successful transport status. These must trigger a retry.
func LooksLikeGatewayTimeout(html string) bool {
	if html == "" {
		return false
	}
	lowered := strings.ToLower(html)
	for _, sig := range gatewaySignatures {
		if strings.Contains(lowered, sig) {
			return true
		}
	}
	return false
}
