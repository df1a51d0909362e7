package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/mp-comb/app/api"
	"github.com/lysyi3m/mp-comb/app/feed"
	"github.com/lysyi3m/mp-comb/app/metrics"
	"github.com/lysyi3m/mp-comb/app/source"
	"github.com/lysyi3m/mp-comb/app/state"
	"github.com/lysyi3m/mp-comb/app/tasks"
)

// runCrawl crawls the named sources, or every enabled one when names is
// empty. Every source is attempted; the first failure is returned.
func (a *app) runCrawl(ctx context.Context, out io.Writer, names []string) error {
	var sourceConfigs []*source.Config
	if len(names) == 0 {
		sourceConfigs = a.configCache.GetEnabledConfigs()
	} else {
		for _, name := range names {
			sourceConfig, err := a.configCache.GetConfig(name)
			if err != nil {
				return err
			}
			sourceConfigs = append(sourceConfigs, sourceConfig)
		}
	}

	if len(sourceConfigs) == 0 {
		return fmt.Errorf("no sources to crawl: add <name>.yml files to %s or pass --fakeid", a.cfg.SourcesDir)
	}

	var errs []error
	for _, sourceConfig := range sourceConfigs {
		outcome, err := a.crawler.Crawl(ctx, sourceConfig)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sourceConfig.Name, err))
			fmt.Fprintf(out, "%s: failed: %v\n", sourceConfig.Name, err)
			continue
		}
		printOutcome(out, outcome)
	}

	return errors.Join(errs...)
}

func printOutcome(out io.Writer, outcome *tasks.Outcome) {
	r := outcome.Result
	switch outcome.Status {
	case metrics.CrawlNoResults:
		fmt.Fprintf(out, "%s: no results (%d of %d pages fetched, dataset unchanged)\n",
			outcome.Source, r.Completed, r.Planned)
	default:
		fmt.Fprintf(out, "%s: %d matched, %d declared, %d of %d pages fetched, %d empty, %d failed, early stop %t -> %s\n",
			outcome.Source, len(r.Items), r.TotalDeclared, r.Completed, r.Planned,
			r.EmptyPages, r.FailedPages, r.EarlyStopped, outcome.Path)
	}
}

func (a *app) runList(ctx context.Context, out io.Writer, name string, read bool, page, perPage int) error {
	store, err := a.states.Open(ctx, name)
	if err != nil {
		return err
	}

	view := store.View()
	list, label := view.Unread, "unread"
	if read {
		list, label = view.Read, "read"
	}

	items, current, totalPages := state.Paginate(list, page, perPage)

	fmt.Fprintf(out, "%s: %d unread, %d read\n", name, len(view.Unread), len(view.Read))
	fmt.Fprintf(out, "%s page %d/%d\n", label, current, totalPages)
	if len(items) == 0 {
		fmt.Fprintln(out, "  (none)")
		return nil
	}

	for _, item := range items {
		published := ""
		if item.CreateTime > 0 {
			published = time.Unix(item.CreateTime, 0).In(time.Local).Format("2006-01-02")
		}
		fmt.Fprintf(out, "  %s  %s\n      %s\n", published, item.Title, item.Link)
	}
	return nil
}

func (a *app) runToggle(ctx context.Context, out io.Writer, name, link string) error {
	view, err := a.states.Toggle(ctx, name, link)
	if err != nil {
		return err
	}

	status := "unread"
	for _, item := range view.Read {
		if item.Link == link {
			status = "read"
			break
		}
	}

	fmt.Fprintf(out, "%s: marked %s (%d unread, %d read)\n", link, status, len(view.Unread), len(view.Read))
	return nil
}

func (a *app) runServe(ctx context.Context) error {
	c := a.cfg

	slog.Info("Starting MP Comb server", "version", c.Version, "sources", a.configCache.GetConfigCount())

	scheduler := tasks.NewScheduler(a.configCache, a.crawler,
		time.Duration(c.SchedulerInterval)*time.Second, c.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", c.WorkerCount, "interval", c.SchedulerInterval)

	gin.SetMode(gin.ReleaseMode)

	handler := api.NewHandler(a.configCache, a.states, feed.NewGenerator(c.BaseUrl, c.Port, c.Version),
		scheduler, a.crawler, a.metrics.Handler())

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey, c.Version),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
