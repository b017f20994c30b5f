package feed

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTimezone    = "America/New_York"
	DefaultWindowHours = 24
	DefaultFeedTimeout = 30
)

var (
	DefaultDateFormats = []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 02 Jan 2006 15:04:05 GMT",
		"Mon, 2 Jan 2006 15:04 -0700",
	}

	DefaultContentPrefixes = []string{
		"Chapel Hill, NC",
		"A subreddit for the city (and county) of Durham, North Carolina.",
		`Raleigh is the capital of the state of North Carolina as well as the seat of Wake County. Raleigh is known as the "City of Oaks" for its many oak trees. Join us on Discord! https://discord.gg/PPCARNjJAg`,
	}

	DefaultForumMarkers         = []string{"reddit"}
	DefaultTruncatedFeedMarkers = []string{"abc11"}
)

// ConfigCache holds the pipeline rules and feed list loaded from one YAML
// file. Reload swaps the whole set atomically.
type ConfigCache struct {
	configFile string
	pipeline   *PipelineConfig
	mu         sync.RWMutex
}

func NewConfigCache(configFile string) *ConfigCache {
	return &ConfigCache{
		configFile: configFile,
	}
}

func (cc *ConfigCache) Run() error {
	pipeline, err := cc.LoadConfig()
	if err != nil {
		return err
	}

	cc.mu.Lock()
	cc.pipeline = pipeline
	cc.mu.Unlock()

	for _, config := range pipeline.Feeds {
		slog.Debug("Configuration loaded", "feed", config.Name, "url", config.URL, "enabled", config.Settings.IsEnabled())
	}

	return nil
}

// Reload re-reads the file. On error the previous configuration stays active.
func (cc *ConfigCache) Reload() error {
	if err := cc.Run(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	slog.Info("Configuration reloaded", "file", cc.configFile, "feeds", cc.GetConfigCount())
	return nil
}

func (cc *ConfigCache) LoadConfig() (*PipelineConfig, error) {
	pipeline, err := cc.parseConfig(cc.configFile)
	if err != nil {
		return nil, err
	}

	if err := cc.validateConfig(pipeline); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cc.configFile, err)
	}

	return pipeline, nil
}

// Rules returns the pipeline settings without the feed list.
func (cc *ConfigCache) Rules() *PipelineConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.pipeline == nil {
		rules := &PipelineConfig{}
		applyDefaults(rules)
		return rules
	}

	rules := *cc.pipeline
	rules.Feeds = nil
	rules.DateFormats = slices.Clone(cc.pipeline.DateFormats)
	rules.ContentPrefixes = slices.Clone(cc.pipeline.ContentPrefixes)
	return &rules
}

func (cc *ConfigCache) GetConfig(feedName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.pipeline != nil {
		for _, config := range cc.pipeline.Feeds {
			if config.Name == feedName {
				return config, nil
			}
		}
	}
	return nil, fmt.Errorf("feed config with name '%s' not found", feedName)
}

func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.pipeline == nil {
		return nil
	}
	return slices.Clone(cc.pipeline.Feeds)
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.pipeline == nil {
		return nil
	}

	enabledConfigs := make([]*Config, 0, len(cc.pipeline.Feeds))
	for _, config := range cc.pipeline.Feeds {
		if config.Settings.IsEnabled() {
			enabledConfigs = append(enabledConfigs, config)
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.pipeline == nil {
		return 0
	}
	return len(cc.pipeline.Feeds)
}

func (cc *ConfigCache) parseConfig(configFile string) (*PipelineConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var pipeline PipelineConfig
	if err := yaml.Unmarshal(data, &pipeline); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&pipeline)
	return &pipeline, nil
}

func applyDefaults(pipeline *PipelineConfig) {
	if pipeline.Timezone == "" {
		pipeline.Timezone = DefaultTimezone
	}
	if pipeline.WindowHours == 0 {
		pipeline.WindowHours = DefaultWindowHours
	}
	if len(pipeline.DateFormats) == 0 {
		pipeline.DateFormats = slices.Clone(DefaultDateFormats)
	}
	if len(pipeline.ContentPrefixes) == 0 {
		pipeline.ContentPrefixes = slices.Clone(DefaultContentPrefixes)
	}
	if len(pipeline.Sources.Forum) == 0 {
		pipeline.Sources.Forum = slices.Clone(DefaultForumMarkers)
	}
	if len(pipeline.Sources.TruncatedFeed) == 0 {
		pipeline.Sources.TruncatedFeed = slices.Clone(DefaultTruncatedFeedMarkers)
	}

	for i, config := range pipeline.Feeds {
		if config == nil {
			continue
		}
		if config.Name == "" {
			config.Name = fmt.Sprintf("feed-%d", i+1)
		}
		if config.Settings.Timeout == 0 {
			config.Settings.Timeout = DefaultFeedTimeout
		}
		if config.Settings.ContentMode == "" {
			config.Settings.ContentMode = ContentModeParagraphs
		}
	}
}

func (cc *ConfigCache) validateConfig(pipeline *PipelineConfig) error {
	if _, err := time.LoadLocation(pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", pipeline.Timezone, err)
	}

	if pipeline.WindowHours < 0 {
		return fmt.Errorf("window hours must be non-negative")
	}

	names := make(map[string]bool, len(pipeline.Feeds))
	for i, config := range pipeline.Feeds {
		if config == nil {
			return fmt.Errorf("feed at index %d is empty", i)
		}
		if config.URL == "" {
			return fmt.Errorf("feed URL is required at index %d", i)
		}
		if !IsValidURL(config.URL) {
			return fmt.Errorf("invalid feed URL at index %d: %s", i, config.URL)
		}
		if names[config.Name] {
			return fmt.Errorf("duplicate feed name: %s", config.Name)
		}
		names[config.Name] = true

		if config.Settings.Timeout < 0 {
			return fmt.Errorf("timeout must be non-negative for feed %s", config.Name)
		}

		switch config.Settings.ContentMode {
		case ContentModeParagraphs, ContentModeReadability:
		default:
			return fmt.Errorf("invalid content mode for feed %s: %s", config.Name, config.Settings.ContentMode)
		}
	}

	return nil
}
