package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchConfig configures event batching.
type BatchConfig struct {
	// MaxBatchSize flushes the buffer when it reaches this many events.
	MaxBatchSize int `yaml:"max_batch_size"`

	// FlushTimeout flushes the buffer this long after the first buffered
	// event, whichever of size and timeout comes first.
	FlushTimeout string `yaml:"flush_timeout"`
}

// DefaultBatchConfig returns default batching configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize: 25,
		FlushTimeout: "5s",
	}
}

// GetFlushTimeout returns the flush timeout as a duration.
func (c *BatchConfig) GetFlushTimeout() time.Duration {
	return parseDurationOr(c.FlushTimeout, 5*time.Second)
}

// BatchCallback receives a full batch of events.
type BatchCallback func(events []Event)

// BatchFileWatcher wraps a FileWatcher, buffering individual events and
// delivering them in batches to registered callbacks.
type BatchFileWatcher struct {
	config  BatchConfig
	watcher *FileWatcher
	logger  *slog.Logger

	mu        sync.Mutex
	buffer    []Event
	callbacks []BatchCallback
	timer     *time.Timer

	wg sync.WaitGroup
}

// NewBatch creates a batching wrapper around a FileWatcher.
func NewBatch(config BatchConfig, w *FileWatcher, logger *slog.Logger) *BatchFileWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultBatchConfig().MaxBatchSize
	}
	return &BatchFileWatcher{
		config:  config,
		watcher: w,
		logger:  logger,
	}
}

// OnBatch registers a callback invoked with each flushed batch. Callbacks
// must be registered before Start.
func (b *BatchFileWatcher) OnBatch(cb BatchCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, cb)
}

// Start starts the underlying watcher and the batching loop.
func (b *BatchFileWatcher) Start(ctx context.Context) error {
	if err := b.watcher.Start(ctx); err != nil {
		return err
	}

	b.wg.Add(1)
	go b.run(ctx)
	return nil
}

// Stop stops the underlying watcher and flushes any buffered events.
func (b *BatchFileWatcher) Stop() error {
	err := b.watcher.Stop()
	b.wg.Wait()
	b.flush()
	return err
}

func (b *BatchFileWatcher) run(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-b.watcher.Events():
			if !ok {
				return
			}
			b.add(event)
		}
	}
}

// add buffers one event, arming the flush timer on the first event and
// flushing immediately when the buffer is full.
func (b *BatchFileWatcher) add(event Event) {
	b.mu.Lock()

	b.buffer = append(b.buffer, event)

	if len(b.buffer) >= b.config.MaxBatchSize {
		b.mu.Unlock()
		b.flush()
		return
	}

	if len(b.buffer) == 1 {
		b.timer = time.AfterFunc(b.config.GetFlushTimeout(), b.flush)
	}
	b.mu.Unlock()
}

// flush delivers the buffered events to every callback and clears the
// buffer.
func (b *BatchFileWatcher) flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buffer
	b.buffer = nil
	callbacks := b.callbacks
	b.mu.Unlock()

	b.logger.Debug("Flushing event batch", "events", len(batch))

	for _, cb := range callbacks {
		cb(batch)
	}
}
