package cfg

import "time"

type Cfg struct {
	Command string

	// Remote API
	Endpoint  string
	Token     string
	Cookie    string
	FakeID    string
	Keyword   string
	UserAgent string

	// Crawl tuning
	PageSize         int
	Concurrency      int
	EmptyStreakLimit int
	MinDelay         time.Duration
	MaxDelay         time.Duration
	MaxRPS           float64
	Timeout          time.Duration

	// Storage
	SourcesDir   string
	DataDir      string
	StateBackend string
	DBPath       string

	// Server
	Port              string
	BaseUrl           string
	APIAccessKey      string
	WorkerCount       int
	SchedulerInterval int
	RefreshInterval   int

	// Command arguments
	Sources  []string
	Source   string
	Link     string
	ListRead bool
	Page     int
	PerPage  int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"
)
