package config

import (
	"fmt"
	"net/url"

	"github.com/aokana/wikiharvest/internal/types"
)

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	if cfg.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be positive")
	}
	if cfg.Fetch.OverallTimeout > 0 && cfg.Fetch.OverallTimeout < cfg.Fetch.RequestTimeout {
		return fmt.Errorf("fetch.overall_timeout (%s) must not be below fetch.request_timeout (%s)",
			cfg.Fetch.OverallTimeout, cfg.Fetch.RequestTimeout)
	}
	if cfg.Render.PrintScale <= 0 || cfg.Render.PrintScale > 2 {
		return fmt.Errorf("render.print_scale must be in (0, 2], got %v", cfg.Render.PrintScale)
	}
	if cfg.Render.PageAspectRatio <= 0 {
		return fmt.Errorf("render.page_aspect_ratio must be positive")
	}
	if cfg.Expand.MaxDepth < 0 || cfg.Expand.MaxPages < 0 {
		return fmt.Errorf("expand limits must not be negative")
	}
	if cfg.Proxy.Enabled {
		if cfg.Proxy.URL == "" {
			return fmt.Errorf("proxy.enabled is set but proxy.url is empty")
		}
		if _, err := url.Parse(cfg.Proxy.URL); err != nil {
			return fmt.Errorf("invalid proxy.url: %w", err)
		}
	}
	return nil
}

// ValidateSearch fails fast when the keyed search capability lacks
// credentials. Called before any search network activity.
func ValidateSearch(cfg *SearchConfig) error {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if cfg.CSEID == "" {
		missing = append(missing, "GOOGLE_CSE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", types.ErrMissingCredentials, missing)
	}
	return nil
}
