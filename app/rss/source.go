// Package rss exposes an RSS/Atom mirror of an account's article list as a
// paginated source. The feed is downloaded once and paged locally.
package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/mp-comb/app/source"
)

var _ source.Source = (*Source)(nil)

type Source struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	url        string
	userAgent  string
	pageSize   int
	timeout    time.Duration

	mu    sync.Mutex
	items []source.RawItem
}

func NewSource(httpClient *http.Client, feedURL, userAgent string, pageSize int, timeout time.Duration) *Source {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		url:        feedURL,
		userAgent:  userAgent,
		pageSize:   pageSize,
		timeout:    timeout,
	}
}

func (s *Source) TotalCount(ctx context.Context) (int, error) {
	items, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Source) FetchPage(ctx context.Context, offset int) source.Page {
	items, err := s.load(ctx)
	if err != nil {
		return source.Page{Offset: offset, Err: err}
	}

	if offset < 0 || offset >= len(items) {
		return source.Page{Offset: offset}
	}
	end := min(offset+s.pageSize, len(items))

	page := make([]source.RawItem, end-offset)
	copy(page, items[offset:end])
	return source.Page{Offset: offset, Items: page}
}

// load downloads and parses the feed on first use. A failed download is not
// cached so a later page request may still succeed.
func (s *Source) load(ctx context.Context) ([]source.RawItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items != nil {
		return s.items, nil
	}

	data, err := s.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	feed, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]source.RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		raw := source.RawItem{
			Title: item.Title,
			Link:  item.Link,
		}
		if item.PublishedParsed != nil {
			raw.CreateTime = item.PublishedParsed.Unix()
		} else if item.UpdatedParsed != nil {
			raw.CreateTime = item.UpdatedParsed.Unix()
		}
		items = append(items, raw)
	}

	s.items = items
	return s.items, nil
}

func (s *Source) fetchFeed(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
