package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aokana/wikiharvest/internal/types"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero request timeout", func(c *Config) { c.Fetch.RequestTimeout = 0 }},
		{"overall below request", func(c *Config) {
			c.Fetch.RequestTimeout = 30 * time.Second
			c.Fetch.OverallTimeout = 10 * time.Second
		}},
		{"zero print scale", func(c *Config) { c.Render.PrintScale = 0 }},
		{"huge print scale", func(c *Config) { c.Render.PrintScale = 3 }},
		{"negative aspect ratio", func(c *Config) { c.Render.PageAspectRatio = -1 }},
		{"negative expand budget", func(c *Config) { c.Expand.MaxPages = -1 }},
		{"proxy enabled without url", func(c *Config) {
			c.Proxy.Enabled = true
			c.Proxy.URL = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateSearchMissingCredentials(t *testing.T) {
	err := ValidateSearch(&SearchConfig{})
	if !errors.Is(err, types.ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
	if err := ValidateSearch(&SearchConfig{APIKey: "k", CSEID: "c"}); err != nil {
		t.Errorf("complete credentials rejected: %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Extract.MinStructuredSize != 300 {
		t.Errorf("min_structured_size = %d, want 300", cfg.Extract.MinStructuredSize)
	}
	if cfg.Expand.MaxPages != 5 {
		t.Errorf("max_pages = %d, want 5", cfg.Expand.MaxPages)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikiharvest.yaml")
	yaml := "extract:\n  min_structured_size: 120\nexpand:\n  max_pages: 9\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Extract.MinStructuredSize != 120 {
		t.Errorf("min_structured_size = %d, want 120", cfg.Extract.MinStructuredSize)
	}
	if cfg.Expand.MaxPages != 9 {
		t.Errorf("max_pages = %d, want 9", cfg.Expand.MaxPages)
	}
	if cfg.Render.ViewportWidth != 1920 {
		t.Errorf("untouched default changed: viewport_width = %d", cfg.Render.ViewportWidth)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
