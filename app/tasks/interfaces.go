package tasks

// TaskSchedulerInterface is what the HTTP API needs from the scheduler.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueCrawl(sourceName string) error
}
