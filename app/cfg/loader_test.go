package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadCrawlDefaults(t *testing.T) {
	cfg, err := Load([]string{"crawl"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil {
		t.Fatal("Expected configuration, got nil")
	}

	if cfg.Command != "crawl" {
		t.Errorf("Expected command 'crawl', got '%s'", cfg.Command)
	}
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Expected concurrency 5, got %d", cfg.Concurrency)
	}
	if cfg.EmptyStreakLimit != 3 {
		t.Errorf("Expected empty streak limit 3, got %d", cfg.EmptyStreakLimit)
	}
	if cfg.MinDelay != 50*time.Millisecond || cfg.MaxDelay != 150*time.Millisecond {
		t.Errorf("Expected delay range [50ms, 150ms], got [%s, %s]", cfg.MinDelay, cfg.MaxDelay)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %s", cfg.Timeout)
	}
	if cfg.StateBackend != StateBackendFile {
		t.Errorf("Expected state backend 'file', got '%s'", cfg.StateBackend)
	}
	if cfg.RefreshInterval != 3600 {
		t.Errorf("Expected refresh interval 3600, got %d", cfg.RefreshInterval)
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("Expected no sources, got %v", cfg.Sources)
	}
}

func TestLoadCrawlSources(t *testing.T) {
	cfg, err := Load([]string{"--concurrency", "8", "--min-delay", "10ms", "--max-delay", "20ms", "crawl", "news", "blog"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Concurrency != 8 {
		t.Errorf("Expected concurrency 8, got %d", cfg.Concurrency)
	}
	if cfg.MinDelay != 10*time.Millisecond || cfg.MaxDelay != 20*time.Millisecond {
		t.Errorf("Expected delay range [10ms, 20ms], got [%s, %s]", cfg.MinDelay, cfg.MaxDelay)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "news" || cfg.Sources[1] != "blog" {
		t.Errorf("Expected sources [news blog], got %v", cfg.Sources)
	}
}

func TestLoadListAndToggle(t *testing.T) {
	cfg, err := Load([]string{"list", "--read", "--page", "2", "news"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Command != "list" || cfg.Source != "news" || !cfg.ListRead || cfg.Page != 2 || cfg.PerPage != 10 {
		t.Errorf("Unexpected list configuration: %+v", cfg)
	}

	cfg, err = Load([]string{"toggle", "news", "https://mp.weixin.qq.com/s/abc"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Command != "toggle" || cfg.Source != "news" || cfg.Link != "https://mp.weixin.qq.com/s/abc" {
		t.Errorf("Unexpected toggle configuration: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero concurrency", []string{"--concurrency", "0", "crawl"}},
		{"zero page size", []string{"--page-size", "0", "crawl"}},
		{"inverted delays", []string{"--min-delay", "200ms", "--max-delay", "100ms", "crawl"}},
		{"unknown backend", []string{"--state-backend", "redis", "crawl"}},
		{"missing command", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}
