// Package config provides configuration loading and management for
// mathgraph.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/supersonic-electronic/AI-sub001/dedup"
	"github.com/supersonic-electronic/AI-sub001/processor/batch"
	"github.com/supersonic-electronic/AI-sub001/processor/incremental"
	"github.com/supersonic-electronic/AI-sub001/watcher"
)

// Config represents the complete mathgraph configuration
type Config struct {
	Logging     LoggingConfig         `yaml:"logging"`
	NATS        NATSConfig            `yaml:"nats"`
	Tracker     TrackerConfig         `yaml:"tracker"`
	Detector    DetectorConfig        `yaml:"detector"`
	Watcher     watcher.Config        `yaml:"watcher"`
	BatchWatch  watcher.BatchConfig   `yaml:"batch_watch"`
	Incremental incremental.Config    `yaml:"incremental"`
	Batch       batch.Config          `yaml:"batch"`
	Dedup       dedup.TypeAwareConfig `yaml:"dedup"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
}

// NATSConfig configures the NATS connection for graph publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty = graph publishing disabled)
	URL string `yaml:"url"`
	// Source identifies this pipeline in published triples
	Source string `yaml:"source"`
}

// TrackerConfig configures document change tracking
type TrackerConfig struct {
	// CachePath is where the tracker persists its state
	CachePath string `yaml:"cache_path"`
	// FlushEvery is how many updates pass between cache flushes
	FlushEvery int `yaml:"flush_every"`
}

// DetectorConfig configures mathematical content detection
type DetectorConfig struct {
	// Threshold is the raw-score threshold for classifying text as
	// mathematical (clamped to a floor of 3)
	Threshold float64 `yaml:"threshold"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		NATS: NATSConfig{
			URL:    "", // Publishing disabled until configured
			Source: "mathgraph.ingest",
		},
		Tracker: TrackerConfig{
			CachePath:  defaultCachePath(),
			FlushEvery: 10,
		},
		Detector: DetectorConfig{
			Threshold: 5,
		},
		Watcher:     watcher.DefaultConfig(),
		BatchWatch:  watcher.DefaultBatchConfig(),
		Incremental: incremental.DefaultConfig(),
		Batch:       batch.DefaultConfig(),
		Dedup:       dedup.DefaultTypeAwareConfig(),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if c.Tracker.CachePath == "" {
		return fmt.Errorf("tracker.cache_path is required")
	}
	if c.Detector.Threshold < 0 {
		return fmt.Errorf("detector.threshold must be non-negative")
	}
	if c.Incremental.MaxConcurrent < 1 {
		return fmt.Errorf("incremental.max_concurrent must be at least 1")
	}
	if c.Batch.BatchSize < 1 {
		return fmt.Errorf("batch.batch_size must be at least 1")
	}
	if c.Batch.MaxWorkers < 1 {
		return fmt.Errorf("batch.max_workers must be at least 1")
	}
	if t := c.Dedup.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be in (0, 1]")
	}
	return nil
}

// LogLevel returns the configured level as a slog.Level
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Source != "" {
		c.NATS.Source = other.NATS.Source
	}

	// Tracker
	if other.Tracker.CachePath != "" {
		c.Tracker.CachePath = other.Tracker.CachePath
	}
	if other.Tracker.FlushEvery != 0 {
		c.Tracker.FlushEvery = other.Tracker.FlushEvery
	}

	// Detector
	if other.Detector.Threshold != 0 {
		c.Detector.Threshold = other.Detector.Threshold
	}

	// Watcher
	if other.Watcher.DebounceDelay != "" {
		c.Watcher.DebounceDelay = other.Watcher.DebounceDelay
	}
	if other.Watcher.MinDispatchInterval != "" {
		c.Watcher.MinDispatchInterval = other.Watcher.MinDispatchInterval
	}
	if other.Watcher.MaxSizeRechecks != 0 {
		c.Watcher.MaxSizeRechecks = other.Watcher.MaxSizeRechecks
	}
	if len(other.Watcher.FileExtensions) > 0 {
		c.Watcher.FileExtensions = other.Watcher.FileExtensions
	}
	if len(other.Watcher.ExcludeDirs) > 0 {
		c.Watcher.ExcludeDirs = other.Watcher.ExcludeDirs
	}
	if len(other.Watcher.IgnorePatterns) > 0 {
		c.Watcher.IgnorePatterns = other.Watcher.IgnorePatterns
	}

	// Batch watch
	if other.BatchWatch.MaxBatchSize != 0 {
		c.BatchWatch.MaxBatchSize = other.BatchWatch.MaxBatchSize
	}
	if other.BatchWatch.FlushTimeout != "" {
		c.BatchWatch.FlushTimeout = other.BatchWatch.FlushTimeout
	}

	// Incremental
	if other.Incremental.MaxConcurrent != 0 {
		c.Incremental.MaxConcurrent = other.Incremental.MaxConcurrent
	}
	if other.Incremental.QueueSize != 0 {
		c.Incremental.QueueSize = other.Incremental.QueueSize
	}

	// Batch
	if other.Batch.BatchSize != 0 {
		c.Batch.BatchSize = other.Batch.BatchSize
	}
	if other.Batch.MaxWorkers != 0 {
		c.Batch.MaxWorkers = other.Batch.MaxWorkers
	}
	if other.Batch.FileTimeout != "" {
		c.Batch.FileTimeout = other.Batch.FileTimeout
	}
	if other.Batch.MaxFileSize != 0 {
		c.Batch.MaxFileSize = other.Batch.MaxFileSize
	}
	if len(other.Batch.IgnorePatterns) > 0 {
		c.Batch.IgnorePatterns = other.Batch.IgnorePatterns
	}

	// Dedup
	if other.Dedup.SimilarityThreshold != 0 {
		c.Dedup.SimilarityThreshold = other.Dedup.SimilarityThreshold
	}
	if len(other.Dedup.ExactMatchFields) > 0 {
		c.Dedup.ExactMatchFields = other.Dedup.ExactMatchFields
	}
	if len(other.Dedup.TypePriority) > 0 {
		c.Dedup.TypePriority = other.Dedup.TypePriority
	}
	if len(other.Dedup.ThresholdOverrides) > 0 {
		c.Dedup.ThresholdOverrides = other.Dedup.ThresholdOverrides
	}
}

// defaultCachePath places the tracker cache under the user cache directory
func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".mathgraph/tracker.json"
	}
	return filepath.Join(dir, "mathgraph", "tracker.json")
}
