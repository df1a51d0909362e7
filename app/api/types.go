package api

import (
	"time"

	"github.com/lysyi3m/mp-comb/app/feed"
	"github.com/lysyi3m/mp-comb/app/state"
	"github.com/lysyi3m/mp-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []state.ReadableItem) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// CrawlStatus reports crawl activity per source.
type CrawlStatus interface {
	LastRun(name string) (time.Time, bool)
	IsRunning(name string) bool
}

var _ CrawlStatus = (*tasks.Crawler)(nil)

type toggleRequest struct {
	Link string `json:"link" binding:"required"`
}

type articlesResponse struct {
	Source     string               `json:"source"`
	Status     string               `json:"status"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
	Total      int                  `json:"total"`
	Unread     int                  `json:"unread"`
	Read       int                  `json:"read"`
	Articles   []state.ReadableItem `json:"articles"`
}
