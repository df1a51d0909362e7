package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/mp-comb/app/dataset"
	"github.com/lysyi3m/mp-comb/app/state"
)

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator("", "8080", "1.2.3")

	created := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC).Unix()
	items := []state.ReadableItem{
		{Item: dataset.Item{Title: "Go & Rust <weekly>", Link: "https://mp.weixin.qq.com/s/a", CreateTime: created}},
		{Item: dataset.Item{Title: "Second", Link: "https://mp.weixin.qq.com/s/b", CreateTime: created - 3600}},
	}

	rss, err := generator.Run(Channel{SourceName: "tech", Keyword: "go"}, items)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}

	if !strings.Contains(rss, `<rss version="2.0"`) {
		t.Error("RSS should contain RSS 2.0 declaration")
	}

	if !strings.Contains(rss, "<title>tech: unread</title>") {
		t.Error("RSS should contain channel title")
	}

	if !strings.Contains(rss, `<atom:link href="http://localhost:8080/feeds/tech" rel="self" type="application/rss+xml" />`) {
		t.Error("RSS should contain atom:link self reference")
	}

	if !strings.Contains(rss, "<generator>MP-Comb/1.2.3</generator>") {
		t.Error("RSS should contain generator with version")
	}

	if !strings.Contains(rss, "<title>Go &amp; Rust &lt;weekly&gt;</title>") {
		t.Error("RSS should escape item titles")
	}

	if !strings.Contains(rss, `<guid isPermaLink="true">https://mp.weixin.qq.com/s/a</guid>`) {
		t.Error("RSS should use the link as permalink GUID")
	}

	if !strings.Contains(rss, "</channel>") || !strings.Contains(rss, "</rss>") {
		t.Error("RSS should be closed")
	}

	parsed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS should parse: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 parsed items, got %d", len(parsed.Items))
	}
	if parsed.Items[0].Title != "Go & Rust <weekly>" {
		t.Errorf("Expected unescaped title after parsing, got %q", parsed.Items[0].Title)
	}
	if parsed.Items[0].PublishedParsed == nil || parsed.Items[0].PublishedParsed.Unix() != created {
		t.Errorf("Expected pubDate from create_time, got %v", parsed.Items[0].PublishedParsed)
	}
}

func TestGenerateWithBaseURL(t *testing.T) {
	generator := NewGenerator("https://mp.example.com", "8080", "dev")

	rss, err := generator.Run(Channel{SourceName: "tech"}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<atom:link href="https://mp.example.com/feeds/tech"`) {
		t.Error("RSS should use base URL for self link")
	}

	if strings.Contains(rss, "<item>") {
		t.Error("RSS without items should contain no item elements")
	}

	if !strings.Contains(rss, "<lastBuildDate>") {
		t.Error("RSS should always contain lastBuildDate")
	}
}
