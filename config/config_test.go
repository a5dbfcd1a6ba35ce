package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected graph publishing disabled by default, got URL %s", cfg.NATS.URL)
	}
	if cfg.Detector.Threshold != 5 {
		t.Errorf("expected default detector threshold 5, got %f", cfg.Detector.Threshold)
	}
	if cfg.Incremental.MaxConcurrent != 3 {
		t.Errorf("expected default max concurrent 3, got %d", cfg.Incremental.MaxConcurrent)
	}
	if cfg.Dedup.SimilarityThreshold != 0.85 {
		t.Errorf("expected default similarity threshold 0.85, got %f", cfg.Dedup.SimilarityThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "missing cache path",
			modify:  func(c *Config) { c.Tracker.CachePath = "" },
			wantErr: true,
		},
		{
			name:    "negative detector threshold",
			modify:  func(c *Config) { c.Detector.Threshold = -1 },
			wantErr: true,
		},
		{
			name:    "zero batch workers",
			modify:  func(c *Config) { c.Batch.MaxWorkers = 0 },
			wantErr: true,
		},
		{
			name:    "similarity threshold above one",
			modify:  func(c *Config) { c.Dedup.SimilarityThreshold = 1.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.Batch.MaxWorkers = 8

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", loaded.Logging.Level)
	}
	if loaded.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected NATS URL round trip, got %s", loaded.NATS.URL)
	}
	if loaded.Batch.MaxWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", loaded.Batch.MaxWorkers)
	}
	if loaded.LogLevel() != slog.LevelDebug {
		t.Errorf("expected slog debug level, got %v", loaded.LogLevel())
	}
}

func TestLoadFromFile_PartialOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	partial := "detector:\n  threshold: 7\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Detector.Threshold != 7 {
		t.Errorf("expected threshold 7, got %f", cfg.Detector.Threshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Incremental.MaxConcurrent != 3 {
		t.Errorf("expected default max concurrent, got %d", cfg.Incremental.MaxConcurrent)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.Logging.Level = "warn"
	other.Batch.BatchSize = 50
	other.Watcher.FileExtensions = []string{".pdf"}

	base.Merge(other)

	if base.Logging.Level != "warn" {
		t.Errorf("expected merged log level warn, got %s", base.Logging.Level)
	}
	if base.Batch.BatchSize != 50 {
		t.Errorf("expected merged batch size 50, got %d", base.Batch.BatchSize)
	}
	if len(base.Watcher.FileExtensions) != 1 {
		t.Errorf("expected merged extensions, got %v", base.Watcher.FileExtensions)
	}
	// Zero values in other leave base untouched.
	if base.Tracker.CachePath == "" {
		t.Error("merge should not clear the cache path")
	}
}
