package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("WIKIHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("wikiharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".wikiharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Credentials come from the standard env names when not overridden.
	if cfg.Search.APIKey == "" {
		cfg.Search.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.Search.CSEID == "" {
		cfg.Search.CSEID = os.Getenv("GOOGLE_CSE_ID")
	}
	if !cfg.Proxy.Enabled && cfg.Proxy.URL == "" {
		if p := firstEnv("HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"); p != "" {
			cfg.Proxy.URL = p
		}
	}

	return cfg, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.accept_language", cfg.Fetch.AcceptLanguage)
	v.SetDefault("fetch.request_timeout", cfg.Fetch.RequestTimeout)
	v.SetDefault("fetch.overall_timeout", cfg.Fetch.OverallTimeout)
	v.SetDefault("fetch.max_body_size", cfg.Fetch.MaxBodySize)

	v.SetDefault("render.headless", cfg.Render.Headless)
	v.SetDefault("render.viewport_width", cfg.Render.ViewportWidth)
	v.SetDefault("render.viewport_height", cfg.Render.ViewportHeight)
	v.SetDefault("render.settle_delay", cfg.Render.SettleDelay)
	v.SetDefault("render.anti_bot_settle", cfg.Render.AntiBotSettle)
	v.SetDefault("render.retry_backoff", cfg.Render.RetryBackoff)
	v.SetDefault("render.attempt_timeout", cfg.Render.AttemptTimeout)
	v.SetDefault("render.anti_bot_timeout", cfg.Render.AntiBotTimeout)
	v.SetDefault("render.print_scale", cfg.Render.PrintScale)
	v.SetDefault("render.page_aspect_ratio", cfg.Render.PageAspectRatio)

	v.SetDefault("extract.min_structured_size", cfg.Extract.MinStructuredSize)
	v.SetDefault("extract.min_dom_text", cfg.Extract.MinDOMText)
	v.SetDefault("extract.noise_phrases", cfg.Extract.NoisePhrases)
	v.SetDefault("extract.json_markers", cfg.Extract.JSONMarkers)

	v.SetDefault("expand.max_depth", cfg.Expand.MaxDepth)
	v.SetDefault("expand.max_pages", cfg.Expand.MaxPages)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.url", cfg.Proxy.URL)

	v.SetDefault("search.max_results", cfg.Search.MaxResults)

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
