package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/mp-comb/app/source"
)

type CrawlSourceTask struct {
	Task
	SourceConfig *source.Config
	crawler      *Crawler
}

func NewCrawlSourceTask(sourceConfig *source.Config, crawler *Crawler) *CrawlSourceTask {
	return &CrawlSourceTask{
		Task:         NewTask(TaskTypeCrawlSource, sourceConfig.Name),
		SourceConfig: sourceConfig,
		crawler:      crawler,
	}
}

func (t *CrawlSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	outcome, err := t.crawler.Crawl(ctx, t.SourceConfig)
	if err != nil {
		return fmt.Errorf("failed to crawl source: %w", err)
	}

	slog.Debug("Crawl task finished", "source", t.SourceName, "status", outcome.Status, "duration", t.GetDuration().String())
	return nil
}
