package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/mp-comb/app/cfg"
	"github.com/lysyi3m/mp-comb/app/database"
	"github.com/lysyi3m/mp-comb/app/metrics"
	"github.com/lysyi3m/mp-comb/app/source"
	"github.com/lysyi3m/mp-comb/app/state"
	"github.com/lysyi3m/mp-comb/app/tasks"
)

// defaultSourceName is the ad-hoc source built from --fakeid and --keyword.
const defaultSourceName = "default"

// app holds the components shared by all commands.
type app struct {
	cfg         *cfg.Cfg
	configCache *source.ConfigCache
	metrics     *metrics.Metrics
	crawler     *tasks.Crawler
	states      *state.Manager
	db          *database.DB
}

func newApp(c *cfg.Cfg) (*app, error) {
	a := &app{
		cfg:     c,
		metrics: metrics.New(),
	}

	a.configCache = source.NewConfigCache(c.SourcesDir, source.ConfigSettings{
		PageSize:         c.PageSize,
		Concurrency:      c.Concurrency,
		EmptyStreakLimit: c.EmptyStreakLimit,
		Timeout:          max(int(c.Timeout.Seconds()), 1),
		RefreshInterval:  c.RefreshInterval,
	})
	if err := a.configCache.Run(); err != nil {
		return nil, fmt.Errorf("failed to load source configurations: %w", err)
	}

	if err := a.addDefaultSource(); err != nil {
		return nil, err
	}
	slog.Debug("Source configurations loaded", "count", a.configCache.GetConfigCount(), "dir", c.SourcesDir)

	a.crawler = tasks.NewCrawler(tasks.CrawlerOptions{
		DataDir:  c.DataDir,
		MinDelay: c.MinDelay,
		MaxDelay: c.MaxDelay,
		MaxRPS:   c.MaxRPS,
		Metrics:  a.metrics,
		NewSource: tasks.NewSourceFactory(tasks.SourceOptions{
			Endpoint:   c.Endpoint,
			Token:      c.Token,
			Cookie:     c.Cookie,
			UserAgent:  c.UserAgent,
			HTTPClient: &http.Client{},
		}),
	})

	newBackend, err := a.openStateBackend()
	if err != nil {
		return nil, err
	}
	a.states = state.NewManager(c.DataDir, newBackend, a.metrics)

	return a, nil
}

// addDefaultSource registers the ad-hoc source unless a file already defines it.
func (a *app) addDefaultSource() error {
	if a.cfg.FakeID == "" {
		return nil
	}
	if _, err := a.configCache.GetConfig(defaultSourceName); err == nil {
		slog.Warn("Ignoring --fakeid, a source file named default exists")
		return nil
	} else if !errors.Is(err, source.ErrSourceNotFound) {
		return err
	}

	err := a.configCache.Put(&source.Config{
		Name:     defaultSourceName,
		Type:     source.TypeMP,
		FakeID:   a.cfg.FakeID,
		Keyword:  a.cfg.Keyword,
		Settings: source.ConfigSettings{Enabled: true},
	})
	if err != nil {
		return fmt.Errorf("invalid default source: %w", err)
	}
	return nil
}

func (a *app) openStateBackend() (state.BackendFactory, error) {
	switch a.cfg.StateBackend {
	case cfg.StateBackendSQLite:
		db, err := database.NewConnection(a.cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		slog.Debug("Database migrations applied", "version", version, "dirty", dirty, "path", a.cfg.DBPath)

		a.db = db
		repo := database.NewReadStateRepository(db)
		return func(name string) state.Backend {
			return state.NewSQLiteBackend(repo, name)
		}, nil

	default:
		dataDir := a.cfg.DataDir
		return func(name string) state.Backend {
			return state.NewFileBackend(dataDir, name)
		}, nil
	}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
