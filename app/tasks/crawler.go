package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/mp-comb/app/crawl"
	"github.com/lysyi3m/mp-comb/app/dataset"
	"github.com/lysyi3m/mp-comb/app/match"
	"github.com/lysyi3m/mp-comb/app/metrics"
	"github.com/lysyi3m/mp-comb/app/source"
)

var ErrCrawlInProgress = errors.New("crawl already in progress")

type CrawlerOptions struct {
	DataDir   string
	MinDelay  time.Duration
	MaxDelay  time.Duration
	MaxRPS    float64
	Metrics   *metrics.Metrics
	NewSource SourceFactory
}

// Crawler runs the full pipeline for one source: plan, crawl, filter and
// write the dataset.
type Crawler struct {
	opts CrawlerOptions

	mu      sync.Mutex
	running map[string]bool
	lastRun map[string]time.Time
}

// Outcome summarizes one crawl. Result is nil when planning failed.
type Outcome struct {
	Source string
	Status string
	Path   string
	Result *crawl.Result
}

func NewCrawler(opts CrawlerOptions) *Crawler {
	return &Crawler{
		opts:    opts,
		running: make(map[string]bool),
		lastRun: make(map[string]time.Time),
	}
}

// LastRun reports when the last crawl of name finished, whatever its status.
func (c *Crawler) LastRun(name string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.lastRun[name]
	return t, ok
}

func (c *Crawler) IsRunning(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[name]
}

// Crawl runs one source. A crawl that matches nothing leaves the previous
// dataset in place and reports CrawlNoResults without an error.
func (c *Crawler) Crawl(ctx context.Context, sourceConfig *source.Config) (*Outcome, error) {
	name := sourceConfig.Name

	c.mu.Lock()
	if c.running[name] {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", name, ErrCrawlInProgress)
	}
	c.running[name] = true
	c.mu.Unlock()

	start := time.Now()
	outcome := &Outcome{Source: name, Path: dataset.Path(c.opts.DataDir, name)}

	defer func() {
		c.mu.Lock()
		delete(c.running, name)
		c.lastRun[name] = time.Now()
		c.mu.Unlock()

		if outcome.Status != "" {
			c.opts.Metrics.ObserveCrawl(name, outcome.Status, time.Since(start))
		}
	}()

	src, err := c.opts.NewSource(sourceConfig)
	if err != nil {
		outcome.Status = metrics.CrawlPlanningFailed
		return outcome, fmt.Errorf("failed to create source: %w", err)
	}

	var matchOpts []match.Option
	if sourceConfig.Settings.FoldWidth {
		matchOpts = append(matchOpts, match.WithWidthFolding())
	}
	matcher := match.Compile(sourceConfig.Keyword, matchOpts...)

	orchestrator := crawl.NewOrchestrator(src, crawl.Options{
		Name:             name,
		PageSize:         sourceConfig.Settings.PageSize,
		Concurrency:      sourceConfig.Settings.Concurrency,
		EmptyStreakLimit: sourceConfig.Settings.EmptyStreakLimit,
		Pacer:            crawl.NewRandomPacer(c.opts.MinDelay, c.opts.MaxDelay, c.opts.MaxRPS),
		Metrics:          c.opts.Metrics,
	})

	slog.Info("Crawl started", "source", name, "type", sourceConfig.Type, "keyword", matcher.Keyword())

	result, err := orchestrator.Run(ctx, matcher)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Partial results never replace the stored dataset.
		outcome.Status = metrics.CrawlCanceled
		outcome.Result = result
		slog.Warn("Crawl interrupted, dataset left unchanged", "source", name, "error", ctxErr)
		return outcome, fmt.Errorf("crawl interrupted: %w", ctxErr)
	}
	if err != nil {
		outcome.Status = metrics.CrawlPlanningFailed
		return outcome, err
	}
	outcome.Result = result

	if result.NoResults() {
		outcome.Status = metrics.CrawlNoResults
		slog.Info("No matching articles, dataset left unchanged", "source", name, "pages", result.Completed)
		return outcome, nil
	}

	if err := dataset.Write(outcome.Path, result.Items); err != nil {
		outcome.Status = metrics.CrawlPersistFailed
		return outcome, err
	}

	outcome.Status = metrics.CrawlSuccess
	slog.Info("Dataset written", "source", name, "path", outcome.Path, "items", len(result.Items), "duration", time.Since(start).String())

	return outcome, nil
}
