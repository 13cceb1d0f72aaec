// Package search wraps the Google Custom Search JSON API for locating wiki
// pages by keyword.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/types"
)

// Result is one ranked hit. Rank starts at 1 in result order.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
}

// Client queries the keyed search API. Credentials are validated at
// construction so a misconfigured client fails before any network call.
type Client struct {
	cfg    *config.SearchConfig
	logger *slog.Logger
	// options configure the API service: a proxy-aware HTTP client, plus an
	// endpoint override in tests. The key rides on each call because a
	// supplied HTTP client excludes WithAPIKey.
	options []option.ClientOption
}

// NewClient builds a search client, failing fast on missing credentials.
func NewClient(cfg *config.SearchConfig, proxyURL string, logger *slog.Logger) (*Client, error) {
	if err := config.ValidateSearch(cfg); err != nil {
		return nil, err
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "search"),
		options: []option.ClientOption{
			option.WithHTTPClient(&http.Client{Transport: transport}),
		},
	}, nil
}

// Search returns up to limit ranked results for a keyword; limit <= 0 uses
// the configured maximum. The API caps a page at 10 results.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = c.cfg.MaxResults
	}
	if limit > 10 {
		limit = 10
	}

	svc, err := customsearch.NewService(ctx, c.options...)
	if err != nil {
		return nil, fmt.Errorf("create search service: %w", err)
	}

	resp, err := svc.Cse.List().
		Cx(c.cfg.CSEID).
		Q(keyword).
		Num(int64(limit)).
		Context(ctx).
		Do(googleapi.QueryParameter("key", c.cfg.APIKey))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, &types.FetchError{
				URL:        "customsearch",
				StatusCode: apiErr.Code,
				Err:        fmt.Errorf("search api: %s", apiErr.Message),
				Retryable:  apiErr.Code >= 500,
			}
		}
		return nil, &types.FetchError{URL: "customsearch", Err: err, Retryable: true}
	}

	results := make([]Result, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
			Rank:    i + 1,
		})
	}
	c.logger.Info("search completed", "keyword", keyword, "results", len(results))
	return results, nil
}
