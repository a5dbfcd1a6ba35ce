// Package tracker persists per-document content hashes and answers whether
// a file has changed since it was last processed. Content hashing is
// authoritative: mtime-only checks are unreliable across network volumes,
// so the tracker never consults timestamps to decide change status.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ChangeType describes how a tracked file differs from its recorded state.
type ChangeType string

// Change types returned by HasChanged.
const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeNone     ChangeType = "none"
)

// defaultFlushEvery is how many updates pass between cache flushes.
const defaultFlushEvery = 10

// DocumentInfo is the persisted state for one tracked document.
//
// The schema may gain fields over time; missing keys default gracefully on
// load.
type DocumentInfo struct {
	ContentHash   string         `json:"content_hash"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	LastProcessed time.Time      `json:"last_processed"`
}

// Tracker tracks processed document state, persisted to a JSON cache file.
// A single component owns the cache file; concurrent processes sharing one
// cache are not supported.
type Tracker struct {
	cachePath  string
	flushEvery int
	logger     *slog.Logger

	mu          sync.Mutex
	documents   map[string]DocumentInfo
	updateCount int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithFlushEvery sets how many updates pass between cache flushes.
func WithFlushEvery(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.flushEvery = n
		}
	}
}

// New creates a tracker backed by the given cache file, loading any
// existing state. An unreadable or corrupt cache is logged and discarded:
// starting empty means every file reads as "created", and reprocessing is
// idempotent, so that beats crashing.
func New(cachePath string, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		cachePath:  cachePath,
		flushEvery: defaultFlushEvery,
		logger:     logger,
		documents:  make(map[string]DocumentInfo),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.cachePath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		t.logger.Warn("Failed to read tracker cache, starting empty",
			"path", t.cachePath,
			"error", err)
		return
	}

	var documents map[string]DocumentInfo
	if err := json.Unmarshal(data, &documents); err != nil {
		t.logger.Warn("Corrupt tracker cache, starting empty",
			"path", t.cachePath,
			"error", err)
		return
	}

	t.documents = documents
	t.logger.Debug("Loaded tracker cache",
		"path", t.cachePath,
		"documents", len(documents))
}

// HasChanged reports whether the file at path differs from its recorded
// state and how. The hash is computed with chunked reads; the file is never
// loaded into memory whole.
func (t *Tracker) HasChanged(path string) (bool, ChangeType, error) {
	abs := canonical(path)

	t.mu.Lock()
	info, tracked := t.documents[abs]
	t.mu.Unlock()

	hash, err := hashFile(abs)
	if os.IsNotExist(err) {
		if tracked {
			return true, ChangeDeleted, nil
		}
		return false, ChangeNone, nil
	}
	if err != nil {
		return false, ChangeNone, fmt.Errorf("hash %s: %w", abs, err)
	}

	if !tracked {
		return true, ChangeCreated, nil
	}
	if info.ContentHash != hash {
		return true, ChangeModified, nil
	}
	return false, ChangeNone, nil
}

// UpdateDocumentInfo records the current content hash and metadata for a
// path. If the file no longer exists, its tracking entry is purged. The
// cache is flushed to disk every flushEvery updates.
func (t *Tracker) UpdateDocumentInfo(path string, metadata map[string]any) error {
	abs := canonical(path)

	stat, err := os.Stat(abs)
	if os.IsNotExist(err) {
		t.mu.Lock()
		delete(t.documents, abs)
		t.mu.Unlock()
		return t.maybeFlush()
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	hash, err := hashFile(abs)
	if err != nil {
		return fmt.Errorf("hash %s: %w", abs, err)
	}

	if metadata == nil {
		metadata = make(map[string]any)
	}
	metadata["size"] = stat.Size()
	metadata["mtime"] = stat.ModTime().Format(time.RFC3339Nano)

	t.mu.Lock()
	t.documents[abs] = DocumentInfo{
		ContentHash:   hash,
		Metadata:      metadata,
		LastProcessed: time.Now(),
	}
	t.mu.Unlock()

	return t.maybeFlush()
}

// GetDocumentInfo returns the recorded state for a path.
func (t *Tracker) GetDocumentInfo(path string) (DocumentInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.documents[canonical(path)]
	return info, ok
}

// Remove purges the tracking entry for a path.
func (t *Tracker) Remove(path string) {
	t.mu.Lock()
	delete(t.documents, canonical(path))
	t.mu.Unlock()
}

// CleanupDeletedFiles removes tracking entries whose path is absent from
// existingPaths and returns the removed paths. Used to reconcile state
// after a directory rescan.
func (t *Tracker) CleanupDeletedFiles(existingPaths map[string]bool) []string {
	canon := make(map[string]bool, len(existingPaths))
	for p := range existingPaths {
		canon[canonical(p)] = true
	}

	t.mu.Lock()
	var removed []string
	for path := range t.documents {
		if !canon[path] {
			delete(t.documents, path)
			removed = append(removed, path)
		}
	}
	t.mu.Unlock()

	if len(removed) > 0 {
		if err := t.Flush(); err != nil {
			t.logger.Warn("Failed to flush tracker cache after cleanup", "error", err)
		}
	}
	return removed
}

// Count returns the number of tracked documents.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.documents)
}

// Flush writes the cache file unconditionally.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	data, err := json.MarshalIndent(t.documents, "", "  ")
	t.updateCount = 0
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("marshal tracker cache: %w", err)
	}

	if dir := filepath.Dir(t.cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	if err := os.WriteFile(t.cachePath, data, 0644); err != nil {
		return fmt.Errorf("write tracker cache: %w", err)
	}
	return nil
}

func (t *Tracker) maybeFlush() error {
	t.mu.Lock()
	t.updateCount++
	due := t.updateCount >= t.flushEvery
	t.mu.Unlock()

	if due {
		return t.Flush()
	}
	return nil
}

// hashFile computes the SHA-256 of a file with chunked reads.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonical returns the canonical absolute form of a path, used as the
// document key everywhere.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
