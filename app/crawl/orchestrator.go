package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lysyi3m/mp-comb/app/dataset"
	"github.com/lysyi3m/mp-comb/app/metrics"
	"github.com/lysyi3m/mp-comb/app/source"
)

const (
	DefaultConcurrency      = 5
	DefaultEmptyStreakLimit = 3
)

// Matcher decides whether an item title belongs in the result.
type Matcher interface {
	Test(title string) bool
}

type Options struct {
	Name             string
	PageSize         int
	Concurrency      int
	EmptyStreakLimit int
	Pacer            Pacer
	Metrics          *metrics.Metrics
}

type Orchestrator struct {
	source source.Source
	opts   Options
	logger *slog.Logger
}

type Result struct {
	Items         []dataset.Item
	TotalDeclared int
	Planned       int
	Submitted     int
	Completed     int
	EmptyPages    int
	FailedPages   int
	EarlyStopped  bool
}

func (r *Result) NoResults() bool {
	return len(r.Items) == 0
}

func NewOrchestrator(src source.Source, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.EmptyStreakLimit <= 0 {
		opts.EmptyStreakLimit = DefaultEmptyStreakLimit
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Pacer == nil {
		opts.Pacer = noPacer{}
	}

	return &Orchestrator{
		source: src,
		opts:   opts,
		logger: slog.With("source", opts.Name),
	}
}

// Run plans the page offsets and crawls them. Only a planning failure is
// returned as an error; failed pages are folded into the result as empty.
func (o *Orchestrator) Run(ctx context.Context, m Matcher) (*Result, error) {
	plan, err := PlanOffsets(ctx, o.source, o.opts.PageSize)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Crawl planned", "total_declared", plan.TotalDeclared, "pages", len(plan.Offsets), "page_size", plan.PageSize)

	result := o.Crawl(ctx, plan.Offsets, m)
	result.TotalDeclared = plan.TotalDeclared
	return result, nil
}

// crawlRun is the state shared by the workers of one crawl.
type crawlRun struct {
	mu        sync.Mutex
	streak    int
	limit     int
	stopped   bool
	stopCh    chan struct{}
	completed int
	empty     int
	failed    int
	agg       *dataset.Aggregator
}

func (r *crawlRun) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// Crawl fetches offsets in submission order with at most Concurrency requests
// in flight. Once EmptyStreakLimit consecutive completions are empty, no more
// offsets are submitted; requests already in flight still finish and their
// items are kept.
func (o *Orchestrator) Crawl(ctx context.Context, offsets []int, m Matcher) *Result {
	run := &crawlRun{
		limit:  o.opts.EmptyStreakLimit,
		stopCh: make(chan struct{}),
		agg:    dataset.NewAggregator(),
	}

	sem := make(chan struct{}, o.opts.Concurrency)
	var wg sync.WaitGroup
	submitted := 0

submit:
	for _, offset := range offsets {
		select {
		case sem <- struct{}{}:
		case <-run.stopCh:
			break submit
		case <-ctx.Done():
			break submit
		}

		// Both cases may have been ready at once.
		if run.isStopped() || ctx.Err() != nil {
			<-sem
			break
		}

		submitted++
		wg.Add(1)

		go func(offset int) {
			defer func() {
				<-sem
				wg.Done()
			}()

			page := o.fetch(ctx, offset)
			o.fold(run, page, m)
			o.opts.Pacer.Pace(ctx)
		}(offset)
	}

	wg.Wait()

	result := &Result{
		Items:        run.agg.Items(),
		Planned:      len(offsets),
		Submitted:    submitted,
		Completed:    run.completed,
		EmptyPages:   run.empty,
		FailedPages:  run.failed,
		EarlyStopped: run.stopped,
	}

	if result.EarlyStopped {
		o.opts.Metrics.IncEarlyStop(o.opts.Name)
	}

	o.logger.Info("Crawl finished",
		"submitted", result.Submitted,
		"planned", len(offsets),
		"empty", result.EmptyPages,
		"failed", result.FailedPages,
		"matched", len(result.Items),
		"early_stopped", result.EarlyStopped)

	return result
}

func (o *Orchestrator) fetch(ctx context.Context, offset int) source.Page {
	if err := o.opts.Pacer.Wait(ctx); err != nil {
		return source.Page{Offset: offset, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	return o.source.FetchPage(ctx, offset)
}

func (o *Orchestrator) fold(run *crawlRun, page source.Page, m Matcher) {
	var matched []dataset.Item
	for _, raw := range page.Items {
		if m.Test(raw.Title) {
			matched = append(matched, dataset.FromRaw(raw))
		}
	}

	switch {
	case page.Failed():
		o.logger.Warn("Page fetch failed", "offset", page.Offset, "error", page.Err)
		o.opts.Metrics.ObservePage(o.opts.Name, metrics.PageFailed)
	case page.Empty():
		o.logger.Debug("Page empty", "offset", page.Offset)
		o.opts.Metrics.ObservePage(o.opts.Name, metrics.PageEmpty)
	default:
		o.logger.Debug("Page fetched", "offset", page.Offset, "items", len(page.Items), "matched", len(matched))
		o.opts.Metrics.ObservePage(o.opts.Name, metrics.PageOK)
		o.opts.Metrics.AddMatched(o.opts.Name, len(matched))
	}

	run.mu.Lock()
	defer run.mu.Unlock()

	run.completed++

	if page.Empty() {
		if page.Failed() {
			run.failed++
		} else {
			run.empty++
		}

		run.streak++
		if run.streak >= run.limit && !run.stopped {
			run.stopped = true
			close(run.stopCh)
			o.logger.Info("Empty streak reached, no further pages will be requested", "streak", run.streak, "offset", page.Offset)
		}
		return
	}

	run.streak = 0
	run.agg.Add(matched...)
}
