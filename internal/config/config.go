package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for wikiharvest.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"   yaml:"fetch"`
	Render  RenderConfig  `mapstructure:"render"  yaml:"render"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Expand  ExpandConfig  `mapstructure:"expand"  yaml:"expand"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Search  SearchConfig  `mapstructure:"search"  yaml:"search"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FetchConfig controls the structured-API and plain HTTP layers.
type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout" yaml:"overall_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
}

// RenderConfig controls the headless rendering orchestrator.
type RenderConfig struct {
	Headless        bool          `mapstructure:"headless"          yaml:"headless"`
	ViewportWidth   int           `mapstructure:"viewport_width"    yaml:"viewport_width"`
	ViewportHeight  int           `mapstructure:"viewport_height"   yaml:"viewport_height"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"      yaml:"settle_delay"`
	AntiBotSettle   time.Duration `mapstructure:"anti_bot_settle"   yaml:"anti_bot_settle"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"     yaml:"retry_backoff"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"   yaml:"attempt_timeout"`
	AntiBotTimeout  time.Duration `mapstructure:"anti_bot_timeout"  yaml:"anti_bot_timeout"`
	PrintScale      float64       `mapstructure:"print_scale"       yaml:"print_scale"`
	PageAspectRatio float64       `mapstructure:"page_aspect_ratio" yaml:"page_aspect_ratio"`
	UserDataDir     string        `mapstructure:"user_data_dir"     yaml:"user_data_dir"`
}

// ExtractConfig carries the empirically tuned extraction thresholds.
type ExtractConfig struct {
	// MinStructuredSize is the content size under which structured HTML
	// extraction is judged unusable and the caller should fall back.
	MinStructuredSize int `mapstructure:"min_structured_size" yaml:"min_structured_size"`
	// MinDOMText is the minimum main-container text length for a rendered
	// DOM to count as usable when it has no content table.
	MinDOMText int `mapstructure:"min_dom_text" yaml:"min_dom_text"`
	// NoisePhrases are UI-chrome snippets dropped from content blocks.
	NoisePhrases []string `mapstructure:"noise_phrases" yaml:"noise_phrases"`
	// JSONMarkers flag embedded data islands stripped from biligame pages.
	JSONMarkers []string `mapstructure:"json_markers" yaml:"json_markers"`
}

// ExpandConfig bounds recursive transclusion expansion.
type ExpandConfig struct {
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`
}

// ProxyConfig controls the optional forward proxy.
type ProxyConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url"     yaml:"url"`
}

// SearchConfig holds Google Custom Search credentials.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	CSEID      string `mapstructure:"cse_id"      yaml:"cse_id"`
	MaxResults int    `mapstructure:"max_results" yaml:"max_results"`
}

// ServerConfig controls the HTTP tool server.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
			RequestTimeout: 30 * time.Second,
			OverallTimeout: 300 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
		},
		Render: RenderConfig{
			Headless:        true,
			ViewportWidth:   1920,
			ViewportHeight:  1080,
			SettleDelay:     2 * time.Second,
			AntiBotSettle:   3 * time.Second,
			RetryBackoff:    2 * time.Second,
			AttemptTimeout:  25 * time.Second,
			AntiBotTimeout:  60 * time.Second,
			PrintScale:      0.65,
			PageAspectRatio: 1.5,
		},
		Extract: ExtractConfig{
			MinStructuredSize: 300,
			MinDOMText:        80,
			NoisePhrases: []string{
				"展开/折叠",
				"啊咧？！视频不见了！",
				"服务器切换",
				"衣装切换",
				"翻译进行中",
				"按\"Ctrl+D\"",
				"WIKI功能→编辑",
				"WIKI功能->编辑",
				"首页",
			},
			JSONMarkers: []string{
				`"relation_type"`,
				`"member_id"`,
				`"日文名"`,
				`"头像"`,
				`"中文名"`,
			},
		},
		Expand: ExpandConfig{
			MaxDepth: 1,
			MaxPages: 5,
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7777,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
