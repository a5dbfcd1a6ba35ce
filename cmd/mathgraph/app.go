package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/supersonic-electronic/AI-sub001/config"
	"github.com/supersonic-electronic/AI-sub001/dedup"
	"github.com/supersonic-electronic/AI-sub001/extractor"
	"github.com/supersonic-electronic/AI-sub001/graph"
	"github.com/supersonic-electronic/AI-sub001/mathdetect"
	"github.com/supersonic-electronic/AI-sub001/metrics"
	"github.com/supersonic-electronic/AI-sub001/ontology"
	"github.com/supersonic-electronic/AI-sub001/processor/batch"
	"github.com/supersonic-electronic/AI-sub001/processor/incremental"
	"github.com/supersonic-electronic/AI-sub001/tracker"
	"github.com/supersonic-electronic/AI-sub001/watcher"
)

// App wires the pipeline components from configuration. Extractors are
// registered explicitly here; there is no plugin discovery.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *extractor.Registry
	detector *mathdetect.Detector
	tracker  *tracker.Tracker
	dedup    *dedup.TypeAwareDeduplicator
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry

	nc        *nats.Conn
	publisher *graph.Publisher

	concepts    ontology.ConceptExtractor
	incremental *incremental.Processor
	batch       *batch.Processor
}

func newApp(cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	detector := mathdetect.New(mathdetect.WithThreshold(cfg.Detector.Threshold))

	registry := extractor.NewRegistry()
	registry.Register(extractor.NewTextExtractor(detector))
	registry.Register(extractor.NewLaTeXExtractor(detector))
	registry.Register(extractor.NewHTMLExtractor(detector))
	registry.Register(extractor.NewPDFExtractor(detector))
	registry.Register(extractor.NewXMLExtractor(detector))
	registry.Register(extractor.NewDOCXExtractor(detector))
	registry.Register(extractor.NewEPUBExtractor(detector))

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name(appName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		nc = conn
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	publisher, err := graph.NewPublisher(nc, cfg.NATS.Source, logger)
	if err != nil {
		if nc != nil {
			nc.Close()
		}
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	track := tracker.New(cfg.Tracker.CachePath, logger,
		tracker.WithFlushEvery(cfg.Tracker.FlushEvery))
	deduper := dedup.NewTypeAware(cfg.Dedup, logger)
	concepts := ontology.NewHeuristicExtractor(detector)

	app := &App{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		detector:  detector,
		tracker:   track,
		dedup:     deduper,
		metrics:   m,
		promReg:   promReg,
		nc:        nc,
		publisher: publisher,
		concepts:  concepts,
	}

	app.incremental = incremental.New(cfg.Incremental, registry, concepts,
		publisher, track, deduper, m, logger)
	app.batch = batch.New(cfg.Batch, registry, concepts, publisher, nil, deduper, m, logger)

	return app, nil
}

// Close flushes persistent state and drains the NATS connection.
func (a *App) Close() {
	if err := a.tracker.Flush(); err != nil {
		a.logger.Warn("Failed to flush tracker cache", "error", err)
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Warn("Failed to drain NATS connection", "error", err)
		}
	}
}

// Watch runs the incremental pipeline over dir until ctx is cancelled.
func (a *App) Watch(ctx context.Context, dir string, syncFirst bool) error {
	if syncFirst {
		if _, err := a.Sync(ctx, dir, true); err != nil {
			return fmt.Errorf("initial sync: %w", err)
		}
	}

	w, err := watcher.New(a.cfg.Watcher, dir, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	bw := watcher.NewBatch(a.cfg.BatchWatch, w, a.logger)
	bw.OnBatch(func(events []watcher.Event) {
		a.metrics.IncBatchFlushed()
		for _, event := range events {
			a.incremental.HandleEvent(event)
		}
	})

	a.incremental.Start(ctx)
	if err := bw.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	a.logger.Info("Watching for document changes", "dir", dir)
	<-ctx.Done()

	if err := bw.Stop(); err != nil {
		a.logger.Warn("Failed to stop watcher", "error", err)
	}
	if err := a.incremental.Stop(); err != nil {
		a.logger.Warn("Failed to stop incremental processor", "error", err)
	}

	stats := a.incremental.Stats()
	a.logger.Info("Watch session complete",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"deleted", stats.Deleted,
		"errors", stats.Errors)
	return nil
}

// Batch runs the bulk pipeline over dir and returns the summary.
func (a *App) Batch(ctx context.Context, dir string, recursive bool) (*batch.Summary, error) {
	files, err := a.batch.CollectFiles(dir, recursive)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Collected files for batch processing", "count", len(files))

	progress := batch.NewProgressTracker(len(files), func(u batch.ProgressUpdate) {
		a.logger.Info("Batch progress",
			"processed", u.Processed,
			"total", u.Total,
			"eta", u.ETA.Round(time.Second))
	}, 5*time.Second)

	// Cancel cooperatively on shutdown signal so the summary still comes
	// back for the completed portion.
	go func() {
		<-ctx.Done()
		progress.Cancel()
	}()

	return a.batch.ProcessFiles(ctx, files, progress)
}

// Sync reconciles tracker and graph state with the directory contents.
func (a *App) Sync(ctx context.Context, dir string, recursive bool) (*incremental.SyncResult, error) {
	return a.incremental.SyncDirectory(ctx, dir, recursive)
}

// Detect scores a text snippet and prints the result.
func (a *App) Detect(w io.Writer, text string) {
	result := a.detector.Detect(text, nil)

	fmt.Fprintf(w, "mathematical: %v  confidence: %.2f\n", result.IsMathematical, result.Confidence)
	if result.IsMathematical {
		fmt.Fprintf(w, "semantic group: %s\n", mathdetect.Classify(text, result))
		fmt.Fprintf(w, "latex: %s\n", mathdetect.ToLaTeX(text))
	}

	features := make([]string, 0, len(result.Breakdown))
	for feature := range result.Breakdown {
		features = append(features, feature)
	}
	sort.Strings(features)
	for _, feature := range features {
		fmt.Fprintf(w, "  %-24s %d\n", feature, result.Breakdown[feature])
	}
}

func printSummary(s *batch.Summary) {
	fmt.Printf("Files:      %d total, %d successful, %d failed\n",
		s.TotalFiles, s.Successful, s.Failed)
	fmt.Printf("Concepts:   %d extracted\n", s.TotalConcepts)
	fmt.Printf("Throughput: %.2f files/s over %s\n",
		s.Throughput, s.WallClock.Round(time.Millisecond))
	fmt.Printf("Data:       %d bytes processed\n", s.TotalBytes)
	if s.MemoryRSSBytes > 0 {
		fmt.Printf("Memory:     %d MiB RSS\n", s.MemoryRSSBytes>>20)
	}
	for _, f := range s.FailedFiles {
		fmt.Printf("  FAILED %s: %s\n", f.FilePath, f.Error)
	}
}
