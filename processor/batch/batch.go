// Package batch processes directory trees of documents in parallel
// batches and aggregates throughput statistics.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/extractor"
	"github.com/supersonic-electronic/AI-sub001/metrics"
	"github.com/supersonic-electronic/AI-sub001/ontology"
)

// Config configures batch processing.
type Config struct {
	// BatchSize is how many files make up one batch. A garbage collection
	// pass runs between batches to keep extraction memory bounded.
	BatchSize int `yaml:"batch_size"`

	// MaxWorkers caps parallel file processing within a batch.
	MaxWorkers int `yaml:"max_workers"`

	// FileTimeout is the per-file processing deadline (e.g. "2m"). The
	// timeout is cooperative: the worker goroutine is abandoned, not
	// killed, when it fires.
	FileTimeout string `yaml:"file_timeout"`

	// MaxFileSize is the per-file size ceiling in bytes. Larger files are
	// skipped during collection. Zero disables the ceiling.
	MaxFileSize int64 `yaml:"max_file_size"`

	// IgnorePatterns are doublestar globs matched against base names.
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// DefaultConfig returns batch processing defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:      10,
		MaxWorkers:     4,
		FileTimeout:    "2m",
		MaxFileSize:    100 << 20,
		IgnorePatterns: []string{".*", "*~", "*.tmp"},
	}
}

// GetFileTimeout returns the per-file timeout as a duration.
func (c *Config) GetFileTimeout() time.Duration {
	d, err := time.ParseDuration(c.FileTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	FilePath          string        `json:"file_path"`
	Success           bool          `json:"success"`
	Extractor         string        `json:"extractor,omitempty"`
	ConceptsExtracted int           `json:"concepts_extracted"`
	ProcessingTime    time.Duration `json:"processing_time"`
	FileSize          int64         `json:"file_size"`
	Error             string        `json:"error,omitempty"`
}

// Summary aggregates a batch run. TotalFiles always equals
// Successful + Failed.
type Summary struct {
	TotalFiles          int           `json:"total_files"`
	Successful          int           `json:"successful"`
	Failed              int           `json:"failed"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	AverageTime         time.Duration `json:"average_time"`
	WallClock           time.Duration `json:"wall_clock"`

	// Throughput is successful files per wall-clock second.
	Throughput float64 `json:"throughput"`

	TotalConcepts  int   `json:"total_concepts"`
	TotalBytes     int64 `json:"total_bytes"`
	MemoryRSSBytes int64 `json:"memory_rss_bytes,omitempty"`

	FailedFiles []FileResult `json:"failed_files,omitempty"`
}

// Processor runs the bulk document pipeline. The ontology collaborator
// must be safe for concurrent calls; workers update it in parallel.
// Deduplicator merges duplicate concepts within one extraction result.
type Deduplicator interface {
	Deduplicate([]*concept.Concept) []*concept.Concept
}

type Processor struct {
	config   Config
	logger   *slog.Logger
	registry *extractor.Registry
	concepts ontology.ConceptExtractor
	onto     ontology.Ontology
	enricher ontology.Enricher
	dedup    Deduplicator
	metrics  *metrics.Metrics
}

// New creates a batch processor. enricher, dedup and m may be nil.
func New(
	config Config,
	registry *extractor.Registry,
	concepts ontology.ConceptExtractor,
	onto ontology.Ontology,
	enricher ontology.Enricher,
	dedup Deduplicator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultConfig().MaxWorkers
	}

	return &Processor{
		config:   config,
		logger:   logger,
		registry: registry,
		concepts: concepts,
		onto:     onto,
		enricher: enricher,
		dedup:    dedup,
		metrics:  m,
	}
}

// ProcessDirectory collects candidate files under dir and processes them.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string, recursive bool, progress *ProgressTracker) (*Summary, error) {
	files, err := p.CollectFiles(dir, recursive)
	if err != nil {
		return nil, err
	}
	return p.ProcessFiles(ctx, files, progress)
}

// ProcessFiles processes the given paths in fixed-size batches with a
// bounded worker pool. Per-file failures are recorded in the summary and
// never abort the run.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string, progress *ProgressTracker) (*Summary, error) {
	start := time.Now()
	results := make([]FileResult, 0, len(paths))

	for batchStart := 0; batchStart < len(paths); batchStart += p.config.BatchSize {
		if progress.Cancelled() || ctx.Err() != nil {
			p.logger.Warn("Batch run cancelled",
				"completed", len(results),
				"remaining", len(paths)-len(results))
			break
		}

		end := min(batchStart+p.config.BatchSize, len(paths))
		batch := paths[batchStart:end]

		batchResults := make([]FileResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.config.MaxWorkers)

		for i, path := range batch {
			i, path := i, path
			g.Go(func() error {
				batchResults[i] = p.processWithTimeout(gctx, path)
				progress.Increment()
				return nil
			})
		}
		_ = g.Wait() // Workers never return errors.

		results = append(results, batchResults...)

		// Extraction holds whole documents in memory; reclaim between
		// batches so peak RSS tracks batch size rather than corpus size.
		runtime.GC()
	}

	summary := p.summarize(results, time.Since(start))
	p.logger.Info("Batch processing complete",
		"total", summary.TotalFiles,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"throughput", fmt.Sprintf("%.2f files/s", summary.Throughput))
	return summary, nil
}

// CollectFiles walks dir and returns the supported files that pass the
// size ceiling and ignore globs, sorted for deterministic batch order.
func (p *Processor) CollectFiles(dir string, recursive bool) ([]string, error) {
	supported := make(map[string]bool)
	for _, ext := range p.registry.SupportedExtensions() {
		supported[ext] = true
	}

	var files []string
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
		if p.ignored(filepath.Base(path)) {
			return nil
		}
		if p.config.MaxFileSize > 0 {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > p.config.MaxFileSize {
				p.logger.Debug("Skipping oversized file",
					"path", path,
					"size", info.Size())
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect files in %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func (p *Processor) ignored(base string) bool {
	for _, pattern := range p.config.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// processWithTimeout runs one file's unit of work under the per-file
// deadline. A worker that outlives the deadline is abandoned and its
// eventual result discarded.
func (p *Processor) processWithTimeout(ctx context.Context, path string) FileResult {
	timeout := p.config.GetFileTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan FileResult, 1)
	go func() {
		done <- p.processFile(ctx, path)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		p.logger.Warn("File processing timed out", "path", path, "timeout", timeout)
		return FileResult{
			FilePath:       path,
			Success:        false,
			Error:          "Processing timeout",
			ProcessingTime: timeout,
			FileSize:       fileSize(path),
		}
	}
}

// processFile is the per-file unit of work run inside a worker.
func (p *Processor) processFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	result := FileResult{
		FilePath: path,
		FileSize: fileSize(path),
	}

	fail := func(err error) FileResult {
		result.Success = false
		result.Error = err.Error()
		result.ProcessingTime = time.Since(start)
		p.metrics.ObserveDocument("failed", result.Extractor, result.ProcessingTime.Seconds())
		p.logger.Warn("Failed to process file", "path", path, "error", err)
		return result
	}

	ext := p.registry.ForPath(path)
	if ext == nil {
		return fail(&extractor.ErrNoExtractor{Path: path})
	}
	result.Extractor = ext.Name()

	text, err := ext.ExtractText(path)
	if err != nil {
		return fail(fmt.Errorf("extract text: %w", err))
	}

	extraction, err := p.concepts.ExtractConcepts(ctx, text)
	if err != nil {
		return fail(fmt.Errorf("extract concepts: %w", err))
	}

	if p.enricher != nil {
		for i, c := range extraction.Concepts {
			enriched, err := p.enricher.EnrichConcept(ctx, c)
			if err != nil {
				p.logger.Debug("Enrichment failed, keeping original",
					"concept", c.Name,
					"error", err)
				continue
			}
			extraction.Concepts[i] = enriched
		}
	}

	if p.dedup != nil && len(extraction.Concepts) > 1 {
		before := len(extraction.Concepts)
		extraction.Concepts = p.dedup.Deduplicate(extraction.Concepts)
		p.metrics.AddMerged(before - len(extraction.Concepts))
	}

	docID, err := documentID(path)
	if err != nil {
		return fail(err)
	}
	if err := p.onto.UpdateFromExtraction(ctx, extraction, docID); err != nil {
		return fail(fmt.Errorf("update ontology: %w", err))
	}

	result.Success = true
	result.ConceptsExtracted = len(extraction.Concepts)
	result.ProcessingTime = time.Since(start)

	p.metrics.ObserveDocument("success", result.Extractor, result.ProcessingTime.Seconds())
	p.metrics.AddConcepts(result.ConceptsExtracted)
	return result
}

// summarize aggregates per-file results into a run summary.
func (p *Processor) summarize(results []FileResult, wallClock time.Duration) *Summary {
	summary := &Summary{
		TotalFiles: len(results),
		WallClock:  wallClock,
	}

	for _, r := range results {
		summary.TotalProcessingTime += r.ProcessingTime
		if r.Success {
			summary.Successful++
			summary.TotalConcepts += r.ConceptsExtracted
			summary.TotalBytes += r.FileSize
		} else {
			summary.Failed++
			summary.FailedFiles = append(summary.FailedFiles, r)
		}
	}

	if summary.TotalFiles > 0 {
		summary.AverageTime = summary.TotalProcessingTime / time.Duration(summary.TotalFiles)
	}
	if secs := wallClock.Seconds(); secs > 0 {
		summary.Throughput = float64(summary.Successful) / secs
	}
	summary.MemoryRSSBytes = currentRSS()

	return summary
}

// currentRSS reports the process resident set size, best effort. Zero
// means the measurement was unavailable.
func currentRSS() int64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return int64(info.RSS)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func documentID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
