package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/mp-comb/app/feed"
	"github.com/lysyi3m/mp-comb/app/source"
	"github.com/lysyi3m/mp-comb/app/state"
	"github.com/lysyi3m/mp-comb/app/tasks"
)

const (
	statusUnread = "unread"
	statusRead   = "read"
)

type Handler struct {
	configCache    *source.ConfigCache
	states         *state.Manager
	generator      GeneratorInterface
	scheduler      tasks.TaskSchedulerInterface
	crawls         CrawlStatus
	metricsHandler http.Handler
}

func NewHandler(configCache *source.ConfigCache, states *state.Manager, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface, crawls CrawlStatus, metricsHandler http.Handler) *Handler {
	return &Handler{
		configCache:    configCache,
		states:         states,
		generator:      generator,
		scheduler:      scheduler,
		crawls:         crawls,
		metricsHandler: metricsHandler,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Debug("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	store, err := h.states.Open(c.Request.Context(), name)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Error("Failed to open read state", "source", name, "error", err)
		}
		c.Status(status)
		return
	}

	unread := store.ListUnread()

	rss, err := h.generator.Run(feed.Channel{
		SourceName: name,
		Keyword:    sourceConfig.Keyword,
		Link:       sourceConfig.URL,
	}, unread)
	if err != nil {
		slog.Error("RSS generation error", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(unread)))
	c.Header("X-Feed-Name", name)
	if lastRun, ok := h.crawls.LastRun(name); ok {
		c.Header("X-Last-Updated", lastRun.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":                "ok",
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
	})
}

func (h *Handler) GetMetrics(c *gin.Context) {
	h.metricsHandler.ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]gin.H, 0, len(configs))
	for _, sourceConfig := range configs {
		info := gin.H{
			"name":               sourceConfig.Name,
			"type":               sourceConfig.Type,
			"keyword":            sourceConfig.Keyword,
			"enabled":            sourceConfig.Settings.Enabled,
			"page_size":          sourceConfig.Settings.PageSize,
			"concurrency":        sourceConfig.Settings.Concurrency,
			"empty_streak_limit": sourceConfig.Settings.EmptyStreakLimit,
			"refresh_interval":   sourceConfig.Settings.GetRefreshInterval().String(),
			"crawling":           h.crawls.IsRunning(sourceConfig.Name),
		}

		if lastRun, ok := h.crawls.LastRun(sourceConfig.Name); ok {
			info["last_crawled_at"] = lastRun.Format(time.RFC3339)
		}

		if store, err := h.states.Open(c.Request.Context(), sourceConfig.Name); err == nil {
			view := store.View()
			info["unread"] = len(view.Unread)
			info["read"] = len(view.Read)
		}

		sources = append(sources, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIListArticles(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	status := c.DefaultQuery("status", statusUnread)
	if status != statusUnread && status != statusRead {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'unread' or 'read'"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(state.DefaultPerPage)))
	if err != nil || perPage <= 0 || perPage > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "per_page must be between 1 and 100"})
		return
	}

	store, err := h.states.Open(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, name, "open read state", err)
		return
	}

	view := store.View()
	list := view.Unread
	if status == statusRead {
		list = view.Read
	}

	articles, current, totalPages := state.Paginate(list, page, perPage)

	c.JSON(http.StatusOK, articlesResponse{
		Source:     name,
		Status:     status,
		Page:       current,
		PerPage:    perPage,
		TotalPages: totalPages,
		Total:      len(list),
		Unread:     len(view.Unread),
		Read:       len(view.Read),
		Articles:   articles,
	})
}

func (h *Handler) APIToggleArticle(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be {\"link\": \"...\"}"})
		return
	}

	view, err := h.states.Toggle(c.Request.Context(), name, req.Link)
	if err != nil {
		h.respondError(c, name, "toggle read state", err)
		return
	}

	read := false
	for _, item := range view.Read {
		if item.Link == req.Link {
			read = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"link":         req.Link,
		"read":         read,
		"unread_count": len(view.Unread),
		"read_count":   len(view.Read),
	})
}

func (h *Handler) APICrawlSource(c *gin.Context) {
	name := c.Param("name")

	if err := h.scheduler.EnqueueCrawl(name); err != nil {
		h.respondError(c, name, "enqueue crawl", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Crawl enqueued",
		"source":  name,
	})
}

func (h *Handler) respondError(c *gin.Context, name, operation string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		slog.Error("Request failed", "operation", operation, "source", name, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func errorStatus(err error) int {
	var perr *state.PersistenceError
	switch {
	case errors.Is(err, source.ErrSourceNotFound),
		errors.Is(err, state.ErrNoDataset),
		errors.Is(err, state.ErrUnknownLink):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrCrawlInProgress):
		return http.StatusConflict
	case errors.As(err, &perr):
		return http.StatusInternalServerError
	case errors.Is(err, tasks.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
