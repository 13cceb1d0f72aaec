// Package harvest is the request-level facade over the acquisition
// pipeline: it runs the strategy chain, assembles markdown, drives visual
// capture, and enforces the overall per-request timeout.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aokana/wikiharvest/internal/assemble"
	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/convert"
	"github.com/aokana/wikiharvest/internal/extract"
	"github.com/aokana/wikiharvest/internal/mediawiki"
	"github.com/aokana/wikiharvest/internal/render"
	"github.com/aokana/wikiharvest/internal/search"
	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/strategy"
	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/wikitext"
	"github.com/aokana/wikiharvest/internal/workspace"
)

// FetchOptions tune one text-acquisition request.
type FetchOptions struct {
	SiteHint string
	Mode     string
	Format   assemble.Format
	UseProxy bool
	MaxDepth int
	MaxPages int
	// Timeout overrides the configured overall budget when positive.
	Timeout time.Duration
}

// CaptureOptions tune one visual-capture request.
type CaptureOptions struct {
	SiteHint   string
	WantPDF    bool
	PrintScale float64
	UseProxy   bool
	// OutputDir keeps artifacts in a caller directory instead of a
	// removed-on-completion temporary one.
	OutputDir string
	Timeout   time.Duration
}

// FetchResult is a completed text acquisition.
type FetchResult struct {
	Markdown  string
	Title     string
	Mode      types.Mode
	SourceURL string
}

// Harvester runs complete requests. Safe for concurrent use: per-request
// state (browser sessions, workspaces) is created inside each call.
type Harvester struct {
	cfg       *config.Config
	logger    *slog.Logger
	selector  *strategy.Selector
	extractor *extract.Extractor
	renderer  *render.Orchestrator
	converter *convert.Converter
}

// New creates a harvester from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *Harvester {
	return &Harvester{
		cfg:       cfg,
		logger:    logger.With("component", "harvest"),
		selector:  strategy.New(cfg, logger),
		extractor: extract.New(&cfg.Extract, logger),
		renderer:  render.NewOrchestrator(&cfg.Render, logger),
		converter: convert.New(logger),
	}
}

func (h *Harvester) proxyURL(useProxy bool) string {
	if useProxy || h.cfg.Proxy.Enabled {
		return h.cfg.Proxy.URL
	}
	return ""
}

func (h *Harvester) budget(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return h.cfg.Fetch.OverallTimeout
}

// wrapTimeout maps a blown overall budget onto the timeout sentinel so
// callers see one error kind regardless of which sub-operation was
// in flight.
func wrapTimeout(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrTimeout, err)
	}
	return err
}

// Fetch acquires a target as markdown. The acquisition mode is chosen by
// the strategy chain; the returned result records which mode produced the
// text.
func (h *Harvester) Fetch(ctx context.Context, locator string, opts FetchOptions) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.budget(opts.Timeout))
	defer cancel()

	result, err := h.selector.Fetch(ctx, locator, strategy.Options{
		SiteHint: opts.SiteHint,
		Mode:     opts.Mode,
		ProxyURL: h.proxyURL(opts.UseProxy),
		MaxDepth: opts.MaxDepth,
		MaxPages: opts.MaxPages,
	})
	if err != nil {
		return nil, wrapTimeout(ctx, err)
	}
	return h.assemble(result, site.Lookup(opts.SiteHint, locator), opts.Format), nil
}

// assemble turns a retrieval result into markdown according to the mode
// that produced it: raw markup goes through the wikitext parser, HTML
// through the structural extractor, and already-plain text passes through.
func (h *Harvester) assemble(result *types.RetrievalResult, profile site.Profile, format assemble.Format) *FetchResult {
	title := site.Title(result.SourceURL)

	var doc *types.StructuredDocument
	switch result.Mode {
	case types.ModeAPI:
		parser := wikitext.NewParser(string(profile.Kind))
		doc = parser.Parse(result.Text)
	case types.ModeHTML, types.ModeVisual:
		if profile.Kind == site.Generic {
			// Generic hosts carry finished text, not HTML to re-extract.
			return &FetchResult{
				Markdown:  result.Text,
				Title:     title,
				Mode:      result.Mode,
				SourceURL: result.SourceURL,
			}
		}
		doc = h.extractor.Extract(result.Text, result.SourceURL)
	default:
		doc = &types.StructuredDocument{}
	}

	if doc.Title != "" {
		title = doc.Title
	}
	markdown := assemble.Render(doc, title, format, string(profile.Kind))
	return &FetchResult{
		Markdown:  markdown,
		Title:     title,
		Mode:      result.Mode,
		SourceURL: result.SourceURL,
	}
}

// Capture renders a target visually and returns the artifact descriptor.
// Artifacts land in opts.OutputDir when given (retained), otherwise in a
// temporary workspace the caller must Cleanup.
func (h *Harvester) Capture(ctx context.Context, locator string, opts CaptureOptions) (*types.CaptureArtifact, *workspace.Workspace, error) {
	ctx, cancel := context.WithTimeout(ctx, h.budget(opts.Timeout))
	defer cancel()

	ws, err := workspace.New(opts.OutputDir, opts.OutputDir != "")
	if err != nil {
		return nil, nil, err
	}

	profile := site.Lookup(opts.SiteHint, locator)
	target := render.Target{
		URL:          locator,
		SourceURL:    locator,
		WaitSelector: profile.WaitSelector,
		AntiBot:      profile.AntiBot,
		WarmupURL:    profile.WarmupURL,
	}
	if rendered := site.RenderURL(locator); rendered != "" {
		target.URL = rendered
	}

	art, err := h.renderer.Capture(ctx, target, ws, render.CaptureOptions{
		WantPDF:    opts.WantPDF,
		PrintScale: opts.PrintScale,
		ProxyURL:   h.proxyURL(opts.UseProxy),
		BaseName:   site.Slug(locator),
	})
	if err != nil {
		ws.Cleanup()
		return nil, nil, wrapTimeout(ctx, err)
	}
	return &art, ws, nil
}

// CaptureText captures a target with a document and converts it to text.
// Without an OutputDir the workspace is discarded before returning, so the
// returned artifact carries no file paths.
func (h *Harvester) CaptureText(ctx context.Context, locator string, opts CaptureOptions) (string, *types.CaptureArtifact, error) {
	opts.WantPDF = true
	art, ws, err := h.Capture(ctx, locator, opts)
	if err != nil {
		return "", nil, err
	}
	text, convErr := h.converter.ArtifactText(art)
	if opts.OutputDir == "" {
		discardArtifacts(ws, art)
	}
	if convErr != nil {
		return "", art, convErr
	}
	return text, art, nil
}

// discardArtifacts removes a temporary workspace and clears the artifact
// paths that pointed into it, so callers never see dangling files.
func discardArtifacts(ws *workspace.Workspace, art *types.CaptureArtifact) {
	ws.Cleanup()
	art.ScreenshotPath = ""
	art.DocumentPath = ""
}

// SearchTitles queries a wiki's own title search.
func (h *Harvester) SearchTitles(ctx context.Context, siteHint, keyword string, limit int) ([]string, error) {
	profile := site.Lookup(siteHint, keyword)
	if profile.Kind == site.Generic {
		return nil, fmt.Errorf("%w: title search needs a known wiki site, got %q",
			types.ErrUnsupportedTarget, siteHint)
	}
	client, err := mediawiki.NewClient(profile.APIEndpoint, h.cfg, h.logger)
	if err != nil {
		return nil, err
	}
	return client.SearchTitles(ctx, keyword, limit)
}

// SearchWeb runs the keyed web search; fails fast when credentials are
// absent.
func (h *Harvester) SearchWeb(ctx context.Context, keyword string, limit int) ([]search.Result, error) {
	client, err := search.NewClient(&h.cfg.Search, h.proxyURL(false), h.logger)
	if err != nil {
		return nil, err
	}
	return client.Search(ctx, keyword, limit)
}

// Describe returns a short summary line for logs and server responses.
func (r *FetchResult) Describe() string {
	head := r.Markdown
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	return fmt.Sprintf("%s (%s, %d chars)", head, r.Mode, len([]rune(r.Markdown)))
}
