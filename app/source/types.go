package source

import (
	"context"
	"time"
)

const (
	TypeMP  = "mp"
	TypeRSS = "rss"
)

// RawItem is one entry of a remote article list, before filtering.
type RawItem struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	CreateTime int64  `json:"create_time"`
}

// Page is the outcome of one page request. A failed request carries Err and
// no items; callers that only care about data treat both cases as empty.
type Page struct {
	Offset int
	Items  []RawItem
	Err    error
}

func (p Page) Empty() bool {
	return len(p.Items) == 0
}

func (p Page) Failed() bool {
	return p.Err != nil
}

// Source is a paginated remote article list.
type Source interface {
	// TotalCount asks the remote side how many items it claims to have.
	TotalCount(ctx context.Context) (int, error)
	// FetchPage never returns an error outward; failures are reported in Page.Err.
	FetchPage(ctx context.Context, offset int) Page
}

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Type     string         `yaml:"type"`
	FakeID   string         `yaml:"fakeid"`
	URL      string         `yaml:"url"`
	Keyword  string         `yaml:"keyword"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled          bool `yaml:"enabled"`
	PageSize         int  `yaml:"page_size"`
	Concurrency      int  `yaml:"concurrency"`
	EmptyStreakLimit int  `yaml:"empty_streak_limit"`
	Timeout          int  `yaml:"timeout"`          // seconds
	RefreshInterval  int  `yaml:"refresh_interval"` // seconds
	FoldWidth        bool `yaml:"fold_width"`
}

func (s ConfigSettings) GetTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s ConfigSettings) GetRefreshInterval() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Second
}
