package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type crawlCmd struct {
	Args struct {
		Sources []string `positional-arg-name:"source" description:"Source names to crawl (all enabled sources when omitted)"`
	} `positional-args:"yes"`
}

type listCmd struct {
	Read    bool `long:"read" description:"List read articles instead of unread ones"`
	Page    int  `long:"page" default:"1" description:"Page number, starting at 1"`
	PerPage int  `long:"per-page" default:"10" description:"Articles per page"`
	Args    struct {
		Source string `positional-arg-name:"source" description:"Source name"`
	} `positional-args:"yes" required:"yes"`
}

type toggleCmd struct {
	Args struct {
		Source string `positional-arg-name:"source" description:"Source name"`
		Link   string `positional-arg-name:"link" description:"Article link to flip between read and unread"`
	} `positional-args:"yes" required:"yes"`
}

type serveCmd struct{}

type rawCfg struct {
	// Remote API configuration
	Endpoint  string `long:"endpoint" env:"MP_ENDPOINT" default:"https://mp.weixin.qq.com/cgi-bin/appmsg" description:"Article list endpoint of the official account platform"`
	Token     string `long:"token" env:"MP_TOKEN" description:"Session token copied from the platform backend"`
	Cookie    string `long:"cookie" env:"MP_COOKIE" description:"Session cookie copied from the platform backend"`
	FakeID    string `long:"fakeid" env:"MP_FAKEID" description:"Account fakeid for the ad-hoc 'default' source"`
	Keyword   string `long:"keyword" env:"MP_KEYWORD" description:"Title keyword for the ad-hoc 'default' source"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36" description:"User agent string for HTTP requests"`

	// Crawl configuration
	PageSize         int           `long:"page-size" env:"PAGE_SIZE" default:"10" description:"Items requested per page"`
	Concurrency      int           `long:"concurrency" env:"CONCURRENCY" default:"5" description:"Page requests in flight at once"`
	EmptyStreakLimit int           `long:"empty-streak-limit" env:"EMPTY_STREAK_LIMIT" default:"3" description:"Consecutive empty pages that stop the crawl"`
	MinDelay         time.Duration `long:"min-delay" env:"MIN_DELAY" default:"50ms" description:"Lower bound of the per-worker pause"`
	MaxDelay         time.Duration `long:"max-delay" env:"MAX_DELAY" default:"150ms" description:"Upper bound of the per-worker pause"`
	MaxRPS           float64       `long:"max-rps" env:"MAX_RPS" default:"0" description:"Aggregate request rate cap, 0 disables it"`
	Timeout          time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"Timeout of a single page request"`

	// Storage configuration
	SourcesDir   string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	DataDir      string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory for datasets and read-state files"`
	StateBackend string `long:"state-backend" env:"STATE_BACKEND" default:"file" choice:"file" choice:"sqlite" description:"Read-state persistence backend"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./data/state.db" description:"SQLite database path for the sqlite state backend"`

	// Server configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://mp.example.com)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for scheduled crawls"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	RefreshInterval   int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"3600" description:"Default re-crawl interval of a source in seconds"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Crawl  crawlCmd  `command:"crawl" description:"Crawl sources and write the filtered datasets"`
	List   listCmd   `command:"list" description:"List unread (or read) articles of a source"`
	Toggle toggleCmd `command:"toggle" description:"Flip the read flag of one article"`
	Serve  serveCmd  `command:"serve" description:"Run the HTTP API and the crawl scheduler"`
}

func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Endpoint:          raw.Endpoint,
		Token:             raw.Token,
		Cookie:            raw.Cookie,
		FakeID:            raw.FakeID,
		Keyword:           raw.Keyword,
		UserAgent:         raw.UserAgent,
		PageSize:          raw.PageSize,
		Concurrency:       raw.Concurrency,
		EmptyStreakLimit:  raw.EmptyStreakLimit,
		MinDelay:          raw.MinDelay,
		MaxDelay:          raw.MaxDelay,
		MaxRPS:            raw.MaxRPS,
		Timeout:           raw.Timeout,
		SourcesDir:        raw.SourcesDir,
		DataDir:           raw.DataDir,
		StateBackend:      raw.StateBackend,
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RefreshInterval:   raw.RefreshInterval,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if parser.Active != nil {
		cfg.Command = parser.Active.Name
	}

	switch cfg.Command {
	case "crawl":
		cfg.Sources = raw.Crawl.Args.Sources
	case "list":
		cfg.Source = raw.List.Args.Source
		cfg.ListRead = raw.List.Read
		cfg.Page = raw.List.Page
		cfg.PerPage = raw.List.PerPage
	case "toggle":
		cfg.Source = raw.Toggle.Args.Source
		cfg.Link = raw.Toggle.Args.Link
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.EmptyStreakLimit <= 0 {
		return fmt.Errorf("empty streak limit must be positive, got %d", c.EmptyStreakLimit)
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("invalid delay range [%s, %s]", c.MinDelay, c.MaxDelay)
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max rps must be non-negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}
	if c.StateBackend != StateBackendFile && c.StateBackend != StateBackendSQLite {
		return fmt.Errorf("unknown state backend %q", c.StateBackend)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
