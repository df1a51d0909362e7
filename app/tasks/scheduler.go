package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/mp-comb/app/source"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const taskTimeout = 5 * time.Minute

var ErrQueueFull = errors.New("task queue is full")

// Scheduler re-crawls enabled sources every refresh interval with a fixed
// pool of workers. A source with refresh_interval 0 is only crawled at
// startup and on demand.
type Scheduler struct {
	configCache *source.ConfigCache
	crawler     *Crawler
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	pending map[string]bool
}

func NewScheduler(configCache *source.ConfigCache, crawler *Crawler, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount <= 0 {
		workerCount = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		configCache: configCache,
		crawler:     crawler,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
		pending:     make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks(time.Now())
			}
		}
	}()
}

// Stop cancels running crawls and waits for the workers to exit. Queued tasks
// are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	name := task.GetSourceName()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[name] {
		return fmt.Errorf("source %s: %w", name, ErrCrawlInProgress)
	}

	select {
	case s.taskQueue <- task:
		s.pending[name] = true
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueCrawl queues an on-demand crawl of a configured source.
func (s *Scheduler) EnqueueCrawl(sourceName string) error {
	sourceConfig, err := s.configCache.GetConfig(sourceName)
	if err != nil {
		return err
	}
	return s.EnqueueTask(NewCrawlSourceTask(sourceConfig, s.crawler))
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Enqueueing startup crawls", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if err := s.EnqueueTask(NewCrawlSourceTask(sourceConfig, s.crawler)); err != nil {
			slog.Warn("Failed to enqueue CrawlSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks(now time.Time) {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	for _, sourceConfig := range sourceConfigs {
		if !s.isDue(sourceConfig, now) {
			continue
		}

		if err := s.EnqueueTask(NewCrawlSourceTask(sourceConfig, s.crawler)); err != nil {
			slog.Warn("Failed to enqueue CrawlSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) isDue(sourceConfig *source.Config, now time.Time) bool {
	refresh := sourceConfig.Settings.GetRefreshInterval()
	if refresh <= 0 {
		return false
	}

	s.mu.Lock()
	pending := s.pending[sourceConfig.Name]
	s.mu.Unlock()
	if pending || s.crawler.IsRunning(sourceConfig.Name) {
		return false
	}

	lastRun, ok := s.crawler.LastRun(sourceConfig.Name)
	if !ok {
		return true
	}

	if next := lastRun.Add(refresh); next.After(now) {
		slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_crawl_at", next)
		return false
	}
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	defer func() {
		s.mu.Lock()
		delete(s.pending, task.GetSourceName())
		s.mu.Unlock()
	}()

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "source", task.GetSourceName(), "duration", task.GetDuration().String(), "error", err)
	}
}
