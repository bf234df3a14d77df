package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Crawl.MaxPages != 5 {
		t.Fatalf("expected max_pages 5, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.PageDelay.Duration != 2*time.Second {
		t.Fatalf("expected 2s page delay, got %s", cfg.Crawl.PageDelay)
	}
	if cfg.Crawl.RequestTimeout.Duration != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.Crawl.RequestTimeout)
	}
	if cfg.Crawl.RetryBackoff.Duration != 10*time.Second {
		t.Fatalf("expected 10s retry backoff, got %s", cfg.Crawl.RetryBackoff)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	raw := `
crawl:
  max_pages: 2
  links_per_page: 1
  page_delay: 500ms
  request_timeout: 3
robots:
  respect: true
  overrides: [" Example.COM ", "example.com"]
logging:
  level: debug
  structured: false
`
	cfg, err := LoadFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.MaxPages != 2 || cfg.Crawl.LinksPerPage != 1 {
		t.Fatalf("crawl overrides not applied: %+v", cfg.Crawl)
	}
	if cfg.Crawl.PageDelay.Duration != 500*time.Millisecond {
		t.Fatalf("expected 500ms delay, got %s", cfg.Crawl.PageDelay)
	}
	// Numeric durations are interpreted as seconds.
	if cfg.Crawl.RequestTimeout.Duration != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.Crawl.RequestTimeout)
	}
	if got := cfg.Robots.Overrides; len(got) != 1 || got[0] != "example.com" {
		t.Fatalf("expected deduped lowercase overrides, got %v", got)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	raw := "crawl:\n  max_depth: 3\n"
	if _, err := LoadFromReader(strings.NewReader(raw)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"zero max pages":   func(c *Config) { c.Crawl.MaxPages = 0 },
		"empty user agent": func(c *Config) { c.Crawl.UserAgent = " " },
		"zero concurrency": func(c *Config) { c.Analysis.Concurrency = 0 },
		"zero runs":        func(c *Config) { c.Server.MaxConcurrentRuns = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
