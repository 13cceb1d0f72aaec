// Package mediawiki talks to a wiki's structured API: raw wikitext by title,
// server-parsed HTML, and title search.
package mediawiki

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/types"
)

// Client is a minimal wiki API client scoped to one endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	cfg      *config.FetchConfig
	logger   *slog.Logger
}

// NewClient creates a client for the given API endpoint. The proxy config is
// honored when enabled.
func NewClient(endpoint string, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}
	if cfg.Proxy.Enabled && cfg.Proxy.URL != "" {
		proxyURL, err := url.Parse(cfg.Proxy.URL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Fetch.RequestTimeout,
		},
		cfg:    &cfg.Fetch,
		logger: logger.With("component", "mediawiki_client"),
	}, nil
}

// Endpoint returns the API endpoint this client is bound to.
func (c *Client) Endpoint() string { return c.endpoint }

// FetchWikitext retrieves the raw markup of a page by title or URL.
func (c *Client) FetchWikitext(ctx context.Context, titleOrURL string) (string, error) {
	title := site.Title(titleOrURL)
	if title == "" {
		return "", types.ErrMissingTitle
	}
	params := url.Values{
		"action":        {"query"},
		"prop":          {"revisions"},
		"rvprop":        {"content"},
		"rvslots":       {"main"},
		"format":        {"json"},
		"formatversion": {"2"},
		"titles":        {title},
	}

	var payload struct {
		Query struct {
			Pages []struct {
				Title     string `json:"title"`
				Revisions []struct {
					Slots struct {
						Main struct {
							Content string `json:"content"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return "", err
	}

	for _, page := range payload.Query.Pages {
		for _, rev := range page.Revisions {
			if rev.Slots.Main.Content != "" {
				return rev.Slots.Main.Content, nil
			}
		}
	}
	return "", fmt.Errorf("%w: wikitext for %q", types.ErrEmptyContent, title)
}

// FetchParsedHTML retrieves the server-rendered HTML of a page.
func (c *Client) FetchParsedHTML(ctx context.Context, titleOrURL string) (string, error) {
	title := site.Title(titleOrURL)
	if title == "" {
		return "", types.ErrMissingTitle
	}
	params := url.Values{
		"action":        {"parse"},
		"prop":          {"text"},
		"format":        {"json"},
		"formatversion": {"2"},
		"page":          {title},
	}

	var payload struct {
		Parse struct {
			Text string `json:"text"`
		} `json:"parse"`
	}
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return "", err
	}
	if payload.Parse.Text == "" {
		return "", fmt.Errorf("%w: parsed HTML for %q", types.ErrEmptyContent, title)
	}
	return payload.Parse.Text, nil
}

// SearchTitles runs an opensearch query and returns ranked title strings.
func (c *Client) SearchTitles(ctx context.Context, keyword string, limit int) ([]string, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty search keyword", types.ErrMissingTitle)
	}
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{
		"action": {"opensearch"},
		"search": {keyword},
		"limit":  {fmt.Sprint(limit)},
		"format": {"json"},
	}

	// opensearch responds with a positional array: [query, titles, descs, urls]
	var payload []json.RawMessage
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, err
	}
	if len(payload) < 2 {
		return nil, nil
	}
	var titles []string
	if err := json.Unmarshal(payload[1], &titles); err != nil {
		return nil, fmt.Errorf("decode opensearch titles: %w", err)
	}
	var out []string
	for _, t := range titles {
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// getJSON executes one API GET and decodes the JSON body into v.
func (c *Client) getJSON(ctx context.Context, params url.Values, v any) error {
	reqURL := c.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &types.FetchError{URL: reqURL, Err: err, Retryable: false}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &types.FetchError{URL: reqURL, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &types.FetchError{
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, body),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	var reader io.Reader = resp.Body
	if c.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, c.cfg.MaxBodySize)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return &types.FetchError{URL: reqURL, Err: err, Retryable: false}
	}

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return &types.FetchError{URL: reqURL, Err: fmt.Errorf("decode response: %w", err), Retryable: false}
	}

	c.logger.Debug("api fetch complete",
		"url", reqURL,
		"duration", time.Since(start),
	)
	return nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
