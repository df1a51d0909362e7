package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrSourceNotFound = errors.New("source not found")

type ConfigCache struct {
	sourcesDir string
	defaults   ConfigSettings
	cache      map[string]*Config
	mu         sync.RWMutex
}

// NewConfigCache creates a cache reading <sourcesDir>/<name>.yml files. Zero
// settings in a file are filled from defaults.
func NewConfigCache(sourcesDir string, defaults ConfigSettings) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		defaults:   defaults,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		sourceName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceName, "type", config.Type, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := filepath.Join(cc.sourcesDir, sourceName+".yml")

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	sourceConfig.Name = sourceName

	if err := cc.Put(&sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return &sourceConfig, nil
}

// Put validates a configuration, applies defaults and stores it under its name.
func (cc *ConfigCache) Put(sourceConfig *Config) error {
	cc.applyDefaults(sourceConfig)

	if err := validateConfig(sourceConfig); err != nil {
		return err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourceName)
	}
	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, v)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	all := cc.GetConfigs()
	enabled := all[:0]
	for _, c := range all {
		if c.Settings.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) applyDefaults(c *Config) {
	if c.Type == "" {
		c.Type = TypeMP
	}
	if c.Settings.PageSize == 0 {
		c.Settings.PageSize = cc.defaults.PageSize
	}
	if c.Settings.Concurrency == 0 {
		c.Settings.Concurrency = cc.defaults.Concurrency
	}
	if c.Settings.EmptyStreakLimit == 0 {
		c.Settings.EmptyStreakLimit = cc.defaults.EmptyStreakLimit
	}
	if c.Settings.Timeout == 0 {
		c.Settings.Timeout = cc.defaults.Timeout
	}
	if c.Settings.RefreshInterval == 0 {
		c.Settings.RefreshInterval = cc.defaults.RefreshInterval
	}
}

func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("source config is nil")
	}
	if c.Name == "" {
		return fmt.Errorf("source name is required")
	}

	switch c.Type {
	case TypeMP:
		if c.FakeID == "" {
			return fmt.Errorf("fakeid is required for %s sources", TypeMP)
		}
	case TypeRSS:
		if c.URL == "" {
			return fmt.Errorf("url is required for %s sources", TypeRSS)
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Type)
	}

	positiveFields := map[string]int{
		"page size":          c.Settings.PageSize,
		"concurrency":        c.Settings.Concurrency,
		"empty streak limit": c.Settings.EmptyStreakLimit,
		"timeout":            c.Settings.Timeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if c.Settings.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}

	return nil
}
