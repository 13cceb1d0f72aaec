package mediawiki

import (
	"context"
	"log/slog"

	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/types"
	"github.com/aokana/wikiharvest/internal/wikitext"
)

// Expander recursively inlines {{:Title}} transclusions, bounded by depth
// and a total page budget.
type Expander struct {
	client *Client
	logger *slog.Logger
}

// NewExpander wraps a client with transclusion expansion.
func NewExpander(client *Client, logger *slog.Logger) *Expander {
	return &Expander{
		client: client,
		logger: logger.With("component", "transclusion_expander"),
	}
}

// FetchExpanded retrieves a page's wikitext with transclusions appended as
// labeled sub-sections, up to maxDepth levels and maxPages distinct titles.
// The root title counts against the page budget: the visited set is seeded
// with it before any child fetch. Cycles are bounded silently by the visited
// set, never treated as errors.
func (e *Expander) FetchExpanded(ctx context.Context, titleOrURL string, maxDepth, maxPages int) (string, error) {
	root := site.Title(titleOrURL)
	if root == "" {
		return "", types.ErrMissingTitle
	}
	visited := make(map[string]bool)
	text, err := e.fetch(ctx, root, maxDepth, maxPages, visited)
	if err != nil {
		return "", err
	}
	e.logger.Debug("expansion complete",
		"root", titleOrURL,
		"pages", len(visited),
		"max_pages", maxPages,
	)
	return text, nil
}

func (e *Expander) fetch(ctx context.Context, title string, depth, maxPages int, visited map[string]bool) (string, error) {
	if title == "" || visited[title] || len(visited) >= maxPages {
		return "", nil
	}
	visited[title] = true

	text, err := e.client.FetchWikitext(ctx, title)
	if err != nil {
		return "", err
	}
	if depth <= 0 {
		return text, nil
	}

	for _, child := range wikitext.ExtractTransclusions(text) {
		if len(visited) >= maxPages {
			break
		}
		childText, err := e.fetch(ctx, child, depth-1, maxPages, visited)
		if err != nil {
			// A missing transclusion target must not sink the whole page.
			e.logger.Warn("transclusion fetch failed", "title", child, "error", err)
			continue
		}
		if childText != "" {
			text += "\n\n== " + child + " ==\n" + childText
		}
	}
	return text, nil
}
