// Package site maps target locators onto the constrained set of supported
// wiki families and their per-site quirks (selectors, API endpoints,
// anti-bot posture).
package site

import (
	"net/url"
	"strings"
)

// Kind identifies a supported wiki family.
type Kind string

const (
	Biligame Kind = "biligame"
	Moegirl  Kind = "moegirl"
	Generic  Kind = "generic"
)

// Profile bundles everything the pipeline needs to know about one site
// family. Unrecognized hosts get the Generic profile: plain HTML mode only,
// no structured extraction and no API mode.
type Profile struct {
	Kind         Kind
	APIEndpoint  string
	MainSelector string
	WaitSelector string
	// AntiBot marks sites that gate on automation signatures and need the
	// stealth/extended-wait treatment.
	AntiBot bool
	// WarmupURL, when set, is visited first in the same browser session to
	// establish cookies before the real target.
	WarmupURL string
}

var (
	biligameProfile = Profile{
		Kind:         Biligame,
		APIEndpoint:  "https://wiki.biligame.com/umamusume/api.php",
		MainSelector: "#mw-content-text > .mw-parser-output",
		WaitSelector: "#mw-content-text > .mw-parser-output",
	}
	moegirlProfile = Profile{
		Kind:         Moegirl,
		APIEndpoint:  "https://zh.moegirl.org.cn/api.php",
		MainSelector: ".mw-parser-output",
		WaitSelector: ".mw-parser-output",
		AntiBot:      true,
		WarmupURL:    "https://mzh.moegirl.org.cn/Mainpage#/flow",
	}
	genericProfile = Profile{Kind: Generic}
)

// Detect resolves a locator's host to a site profile. Bare titles (no URL
// scheme) cannot be detected and come back Generic; callers with a site hint
// should use Lookup instead.
func Detect(locator string) Profile {
	u, err := url.Parse(locator)
	if err != nil {
		return genericProfile
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "wiki.biligame.com"):
		return biligameProfile
	case strings.Contains(host, "moegirl.org.cn"):
		return moegirlProfile
	default:
		return genericProfile
	}
}

// Lookup returns the profile for an explicit site hint; "auto" defers to
// host detection.
func Lookup(hint, locator string) Profile {
	switch strings.ToLower(hint) {
	case string(Biligame):
		return biligameProfile
	case string(Moegirl):
		return moegirlProfile
	case string(Generic):
		return genericProfile
	default:
		return Detect(locator)
	}
}

// Title normalizes a locator into a bare page title. URLs of the
// `index.php?title=X` form yield the title parameter; otherwise the last
// path segment, percent-decoded. Bare strings pass through trimmed.
func Title(locator string) string {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return strings.TrimSpace(locator)
	}
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Path, "/index.php") {
		if title := u.Query().Get("title"); title != "" {
			return strings.TrimSpace(title)
		}
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	title, err := url.PathUnescape(segs[len(segs)-1])
	if err != nil {
		title = segs[len(segs)-1]
	}
	return strings.TrimSpace(title)
}

// RenderURL builds the server-side rendered view of a moegirl page
// (`index.php?title=X&action=render`). Returns "" for anything else.
func RenderURL(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Host == "" || u.Path == "" {
		return ""
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), "mzh.moegirl.org.cn") {
		return ""
	}
	title := Title(locator)
	if title == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/index.php?title=" + url.QueryEscape(title) + "&action=render"
}

// Slug derives a filesystem-safe name from a locator, combining the
// sanitized domain and page title. Used for artifact file names.
func Slug(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return sanitize(locator)
	}
	domain := sanitize(u.Hostname())
	title := sanitize(Title(locator))
	if title == "" {
		title = "page"
	}
	if domain == "" {
		return title
	}
	return domain + "_" + title
}

func sanitize(value string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "._")
}
