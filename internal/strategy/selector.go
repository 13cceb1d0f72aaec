// Package strategy picks how a target's content gets acquired: structured
// API first, parsed HTML next, a full browser render last. Each mode's
// output is judged for substance before the chain advances.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/extract"
	"github.com/aokana/wikiharvest/internal/mediawiki"
	"github.com/aokana/wikiharvest/internal/render"
	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/types"
)

// Options tune one retrieval request.
type Options struct {
	// SiteHint pins the site family; "auto" (or empty) detects by host.
	SiteHint string
	// Mode is the requested acquisition mode: "auto", "structured" or
	// "html". Structured mode on a generic host is an unsupported target;
	// html mode on a wiki host skips the structured API.
	Mode string
	// ProxyURL routes both plain HTTP and browser traffic when set.
	ProxyURL string
	// MaxDepth/MaxPages override the configured transclusion budget when
	// positive.
	MaxDepth int
	MaxPages int
}

// textExtractor pulls readable text out of rendered HTML. Extractors are
// tried in order; the first non-empty answer wins.
type textExtractor func(rawHTML, sourceURL string) string

// Selector walks the acquisition chain for one target.
type Selector struct {
	cfg        *config.Config
	logger     *slog.Logger
	extractor  *extract.Extractor
	renderer   *render.Orchestrator
	extractors []textExtractor
}

// New creates a strategy selector.
func New(cfg *config.Config, logger *slog.Logger) *Selector {
	s := &Selector{
		cfg:       cfg,
		logger:    logger.With("component", "strategy"),
		extractor: extract.New(&cfg.Extract, logger),
		renderer:  render.NewOrchestrator(&cfg.Render, logger),
	}
	s.extractors = []textExtractor{
		s.structuredText,
		s.mainContainerText,
		s.readabilityText,
	}
	return s
}

// Fetch resolves a target through the mode chain and returns the first
// usable result. The chain is API, then parsed HTML, then a browser
// render; an empty answer at one stage falls through to the next, and
// exhausting the chain fails with an empty-content error.
func (s *Selector) Fetch(ctx context.Context, locator string, opts Options) (*types.RetrievalResult, error) {
	profile := site.Lookup(opts.SiteHint, locator)

	if profile.Kind == site.Generic {
		if strings.EqualFold(opts.Mode, "structured") {
			return nil, fmt.Errorf("%w: structured mode needs a known wiki host, got %q",
				types.ErrUnsupportedTarget, locator)
		}
		return s.fetchGeneric(ctx, locator, opts)
	}

	client, err := mediawiki.NewClient(profile.APIEndpoint, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return s.fetchWiki(ctx, client, profile, locator, opts)
}

func (s *Selector) fetchWiki(ctx context.Context, client *mediawiki.Client, profile site.Profile, locator string, opts Options) (*types.RetrievalResult, error) {
	if !strings.EqualFold(opts.Mode, "html") {
		if result, err := s.tryAPI(ctx, client, locator, opts); err == nil {
			return result, nil
		} else if !errors.Is(err, types.ErrEmptyContent) {
			s.logger.Warn("api attempt failed, falling back", "target", locator, "error", err)
		}
	}

	if result, err := s.tryHTML(ctx, client, locator); err == nil {
		return result, nil
	} else if !errors.Is(err, types.ErrEmptyContent) {
		s.logger.Warn("html attempt failed, falling back", "target", locator, "error", err)
	}

	return s.tryRender(ctx, profile, locator, opts)
}

func (s *Selector) tryAPI(ctx context.Context, client *mediawiki.Client, locator string, opts Options) (*types.RetrievalResult, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.cfg.Expand.MaxDepth
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = s.cfg.Expand.MaxPages
	}

	expander := mediawiki.NewExpander(client, s.logger)
	text, err := expander.FetchExpanded(ctx, locator, maxDepth, maxPages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: api returned no markup for %s", types.ErrEmptyContent, locator)
	}
	s.logger.Info("api mode succeeded", "target", locator, "bytes", len(text))
	return &types.RetrievalResult{Text: text, Mode: types.ModeAPI, SourceURL: locator}, nil
}

func (s *Selector) tryHTML(ctx context.Context, client *mediawiki.Client, locator string) (*types.RetrievalResult, error) {
	rawHTML, err := client.FetchParsedHTML(ctx, locator)
	if err != nil {
		return nil, err
	}
	doc := s.extractor.Extract(rawHTML, locator)
	if !s.extractor.Usable(doc) {
		return nil, fmt.Errorf("%w: parsed html below usable threshold for %s",
			types.ErrEmptyContent, locator)
	}
	s.logger.Info("html mode succeeded", "target", locator, "content_size", doc.ContentSize())
	return &types.RetrievalResult{Text: rawHTML, Mode: types.ModeHTML, SourceURL: locator}, nil
}

func (s *Selector) tryRender(ctx context.Context, profile site.Profile, locator string, opts Options) (*types.RetrievalResult, error) {
	target := render.Target{
		URL:          locator,
		SourceURL:    locator,
		WaitSelector: profile.WaitSelector,
		AntiBot:      profile.AntiBot,
		WarmupURL:    profile.WarmupURL,
	}
	// Moegirl serves a stripped server-side view that skips most of the
	// client-side gating.
	if rendered := site.RenderURL(locator); rendered != "" {
		target.URL = rendered
	}

	rawHTML, err := s.renderer.FetchHTML(ctx, target, opts.ProxyURL)
	if err != nil {
		return nil, err
	}
	if !s.UsableDOM(rawHTML, locator) {
		return nil, fmt.Errorf("%w: no usable content in any mode for %s",
			types.ErrEmptyContent, locator)
	}
	s.logger.Info("render fallback succeeded", "target", locator, "bytes", len(rawHTML))
	return &types.RetrievalResult{Text: rawHTML, Mode: types.ModeVisual, SourceURL: locator}, nil
}

// UsableDOM reports whether rendered HTML is substantive: not a known
// empty-shell body, and holding either a content table inside the main
// container or more extracted text than the configured floor. Tables in
// navigation or site chrome do not count.
func (s *Selector) UsableDOM(rawHTML, sourceURL string) bool {
	if strings.TrimSpace(rawHTML) == "" || render.LooksLikeEmptyShell(rawHTML) {
		return false
	}
	doc, err := htmlquery.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}
	main := htmlquery.FindOne(doc, "//div[contains(@class, 'mw-parser-output')]")
	if main == nil {
		main = htmlquery.FindOne(doc, "//*[@id='mw-content-text']")
	}
	if main != nil && htmlquery.FindOne(main, ".//table") != nil {
		return true
	}
	text := s.extractText(rawHTML, sourceURL)
	return len([]rune(strings.TrimSpace(text))) > s.cfg.Extract.MinDOMText
}

// extractText runs the ordered extractor chain over rendered HTML.
func (s *Selector) extractText(rawHTML, sourceURL string) string {
	for _, fn := range s.extractors {
		if text := strings.TrimSpace(fn(rawHTML, sourceURL)); text != "" {
			return text
		}
	}
	return ""
}

func (s *Selector) structuredText(rawHTML, sourceURL string) string {
	doc := s.extractor.Extract(rawHTML, sourceURL)
	if doc.IsEmpty() {
		return ""
	}
	return doc.Summary()
}

func (s *Selector) mainContainerText(rawHTML, _ string) string {
	return s.extractor.MainText(rawHTML)
}

func (s *Selector) readabilityText(rawHTML, sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return ""
	}
	return article.TextContent
}

// fetchGeneric handles unknown hosts: a plain HTTP fetch with article
// extraction, no structured parsing and no API mode.
func (s *Selector) fetchGeneric(ctx context.Context, locator string, opts Options) (*types.RetrievalResult, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: generic mode needs a full URL, got %q",
			types.ErrUnsupportedTarget, locator)
	}

	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	client := &http.Client{Transport: transport, Timeout: s.cfg.Fetch.RequestTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.Fetch.UserAgent)
	req.Header.Set("Accept-Language", s.cfg.Fetch.AcceptLanguage)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: locator, Err: err, Retryable: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &types.FetchError{
			URL:        locator,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.Fetch.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("%w: no readable article at %s", types.ErrEmptyContent, locator)
	}
	if article.Title != "" {
		text = "# " + article.Title + "\n\n" + text
	}
	s.logger.Info("generic html mode succeeded", "target", locator, "chars", len([]rune(text)))
	return &types.RetrievalResult{Text: text, Mode: types.ModeHTML, SourceURL: locator}, nil
}
