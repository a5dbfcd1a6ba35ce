// Package incremental consumes file change events and keeps the knowledge
// graph in sync with the documents on disk.
package incremental

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/extractor"
	"github.com/supersonic-electronic/AI-sub001/metrics"
	"github.com/supersonic-electronic/AI-sub001/ontology"
	"github.com/supersonic-electronic/AI-sub001/tracker"
	"github.com/supersonic-electronic/AI-sub001/watcher"
)

// Config configures incremental processing.
type Config struct {
	// MaxConcurrent caps simultaneously in-flight extractions.
	MaxConcurrent int `yaml:"max_concurrent"`

	// QueueSize bounds the internal event queue. Events arriving while
	// the queue is full are dropped with a warning.
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns incremental processing defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		QueueSize:     200,
	}
}

// Deduplicator merges duplicate concepts before they reach the ontology.
// Both the plain and the document-type-aware deduplicator satisfy it.
type Deduplicator interface {
	Deduplicate(concepts []*concept.Concept) []*concept.Concept
}

// Stats are cumulative processing counters, updated atomically from the
// worker goroutines.
type Stats struct {
	Processed int64
	Skipped   int64
	Deleted   int64
	Errors    int64
}

// SyncResult reports the outcome of a directory synchronization pass.
type SyncResult struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Files     []string `json:"files"`
}

// Processor consumes watcher events, checks them against the change
// tracker, and applies concept adds and removals to the ontology.
//
// A single consumer goroutine drains the queue; the semaphore bounds how
// many extractions run at once. Ontology writes from this path are
// serialized per document by the consumer handing each event to exactly
// one worker.
type Processor struct {
	config   Config
	logger   *slog.Logger
	registry *extractor.Registry
	concepts ontology.ConceptExtractor
	onto     ontology.Ontology
	tracker  *tracker.Tracker
	dedup    Deduplicator
	metrics  *metrics.Metrics

	sem    *semaphore.Weighted
	queue  chan watcher.Event
	wg     sync.WaitGroup
	cancel context.CancelFunc

	processed atomic.Int64
	skipped   atomic.Int64
	deleted   atomic.Int64
	errors    atomic.Int64

	removalWarned atomic.Bool
}

// New creates an incremental processor. dedup and m may be nil; removal
// support is probed from onto at event time.
func New(
	config Config,
	registry *extractor.Registry,
	concepts ontology.ConceptExtractor,
	onto ontology.Ontology,
	track *tracker.Tracker,
	dedup Deduplicator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}

	return &Processor{
		config:   config,
		logger:   logger,
		registry: registry,
		concepts: concepts,
		onto:     onto,
		tracker:  track,
		dedup:    dedup,
		metrics:  m,
		sem:      semaphore.NewWeighted(int64(config.MaxConcurrent)),
		queue:    make(chan watcher.Event, config.QueueSize),
	}
}

// Start launches the queue consumer. It returns immediately; call Stop to
// shut down.
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.consume(ctx)

	p.logger.Info("Incremental processor started",
		"max_concurrent", p.config.MaxConcurrent,
		"queue_size", p.config.QueueSize)
}

// Stop cancels the consumer and waits for in-flight work to finish, then
// flushes the tracker cache.
func (p *Processor) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return p.tracker.Flush()
}

// HandleEvent enqueues a watcher event. A full queue drops the event with
// a warning; the next directory sync reconciles anything missed.
func (p *Processor) HandleEvent(event watcher.Event) {
	select {
	case p.queue <- event:
		p.metrics.SetQueueDepth(len(p.queue))
	default:
		p.logger.Warn("Event queue full, dropping event",
			"path", event.Path,
			"type", event.Type)
	}
}

// Stats returns a snapshot of the cumulative counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Skipped:   p.skipped.Load(),
		Deleted:   p.deleted.Load(),
		Errors:    p.errors.Load(),
	}
}

func (p *Processor) consume(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-p.queue:
			p.metrics.SetQueueDepth(len(p.queue))
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return // Shutdown while waiting for a slot.
			}
			p.wg.Add(1)
			go func(event watcher.Event) {
				defer p.wg.Done()
				defer p.sem.Release(1)
				p.handle(ctx, event)
			}(event)
		}
	}
}

// handle processes one event. Per-file failures are counted and logged,
// never propagated; the consumer keeps running.
func (p *Processor) handle(ctx context.Context, event watcher.Event) {
	switch event.Type {
	case watcher.EventDeleted:
		p.handleDelete(ctx, event.Path)
	case watcher.EventCreated, watcher.EventModified:
		if _, err := p.ProcessFile(ctx, event.Path); err != nil {
			p.errors.Add(1)
			p.metrics.ObserveDocument("failed", "", 0)
			p.logger.Error("Failed to process file",
				"path", event.Path,
				"type", event.Type,
				"error", err)
		}
	default:
		p.logger.Warn("Unknown event type", "type", event.Type)
	}
	p.metrics.ObserveWatcherEvent(string(event.Type))
}

// ProcessFile runs the full pipeline for one document: change check,
// extraction, concept extraction, stale-concept removal, ontology update,
// tracker update. It reports false when the file was unchanged and
// skipped.
func (p *Processor) ProcessFile(ctx context.Context, path string) (bool, error) {
	changed, changeType, err := p.tracker.HasChanged(path)
	if err != nil {
		return false, fmt.Errorf("change check: %w", err)
	}
	if !changed {
		p.skipped.Add(1)
		p.logger.Debug("File unchanged, skipping", "path", path)
		return false, nil
	}

	start := time.Now()
	docID := DocumentID(path)

	text, meta, err := p.registry.Extract(path)
	if err != nil {
		return false, fmt.Errorf("extract %s: %w", path, err)
	}

	result, err := p.concepts.ExtractConcepts(ctx, text)
	if err != nil {
		return false, fmt.Errorf("extract concepts from %s: %w", path, err)
	}

	if p.dedup != nil && len(result.Concepts) > 1 {
		before := len(result.Concepts)
		result.Concepts = p.dedup.Deduplicate(result.Concepts)
		p.metrics.AddMerged(before - len(result.Concepts))
	}

	// An edit replaces the document's concept set. Old concepts are removed
	// just before the new ones land, and only once extraction has succeeded,
	// so a transient extraction failure never leaves the document empty.
	if changeType == tracker.ChangeModified {
		p.removeConcepts(ctx, docID, path)
	}

	if err := p.onto.UpdateFromExtraction(ctx, result, docID); err != nil {
		return false, fmt.Errorf("update ontology for %s: %w", path, err)
	}

	trackMeta := map[string]any{
		"document_id": docID,
		"concepts":    len(result.Concepts),
	}
	if name, ok := meta["extractor"].(string); ok {
		trackMeta["extractor"] = name
	}
	if err := p.tracker.UpdateDocumentInfo(path, trackMeta); err != nil {
		p.logger.Warn("Failed to update tracker", "path", path, "error", err)
	}

	p.processed.Add(1)
	extractorName, _ := meta["extractor"].(string)
	p.metrics.ObserveDocument("success", extractorName, time.Since(start).Seconds())
	p.metrics.AddConcepts(len(result.Concepts))

	p.logger.Info("Processed document",
		"path", path,
		"change", changeType,
		"concepts", len(result.Concepts),
		"duration", time.Since(start))
	return true, nil
}

// handleDelete removes a deleted document's concepts from the ontology
// and purges its tracker entry.
func (p *Processor) handleDelete(ctx context.Context, path string) {
	info, tracked := p.tracker.GetDocumentInfo(path)
	if !tracked {
		p.logger.Debug("Deleted file was not tracked", "path", path)
		return
	}

	docID := DocumentID(path)
	if id, ok := info.Metadata["document_id"].(string); ok && id != "" {
		docID = id
	}
	p.removeConcepts(ctx, docID, path)

	p.tracker.Remove(path)
	p.deleted.Add(1)
	p.logger.Info("Removed deleted document", "path", path)
}

// removeConcepts asks the ontology to drop a document's concepts.
// Ontologies without removal support get a one-time warning and the step
// is skipped.
func (p *Processor) removeConcepts(ctx context.Context, docID, path string) {
	remover, ok := p.onto.(ontology.ConceptRemover)
	if !ok {
		if p.removalWarned.CompareAndSwap(false, true) {
			p.logger.Warn("Ontology does not support concept removal, stale concepts may accumulate")
		}
		return
	}
	if err := remover.RemoveDocumentConcepts(ctx, docID); err != nil {
		p.logger.Warn("Failed to remove document concepts",
			"path", path,
			"document_id", docID,
			"error", err)
	}
}

// SyncDirectory walks dir, processes every new or changed supported file,
// and reconciles deletions against the tracker. This is the catch-up path
// used after the watcher was offline.
func (p *Processor) SyncDirectory(ctx context.Context, dir string, recursive bool) (*SyncResult, error) {
	supported := make(map[string]bool)
	for _, ext := range p.registry.SupportedExtensions() {
		supported[ext] = true
	}

	result := &SyncResult{}
	existing := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !supported[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		existing[path] = true

		processed, err := p.ProcessFile(ctx, path)
		switch {
		case err != nil:
			result.Errors++
			p.errors.Add(1)
			p.logger.Warn("Failed to process file during sync", "path", path, "error", err)
		case processed:
			result.Processed++
			result.Files = append(result.Files, path)
		default:
			result.Skipped++
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", dir, err)
	}

	for _, removed := range p.tracker.CleanupDeletedFiles(existing) {
		p.removeConcepts(ctx, DocumentID(removed), removed)
		p.deleted.Add(1)
	}

	if err := p.tracker.Flush(); err != nil {
		p.logger.Warn("Failed to flush tracker cache after sync", "error", err)
	}

	p.logger.Info("Directory sync complete",
		"dir", dir,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errors", result.Errors)
	return result, nil
}

// DocumentID returns the canonical document ID for a path. Concepts are
// associated with and removed by this ID.
func DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
