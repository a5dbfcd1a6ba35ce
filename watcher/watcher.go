// Package watcher turns OS file-system notifications into debounced,
// completion-checked document events.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer is the size of the watch event channel.
const eventChannelBuffer = 500

// EventType indicates the type of file operation.
type EventType string

// Event types dispatched to subscribers. A move is modeled as a deletion of
// the old path followed by a creation of the new one; there is no
// rename-aware merge.
const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
)

// Event is a document file change, dispatched after debouncing and
// completion detection.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Config configures document file watching.
type Config struct {
	// DebounceDelay is how long to wait for more changes before processing.
	// It is also the spacing between completion-detection size checks.
	DebounceDelay string `yaml:"debounce_delay"`

	// MinDispatchInterval is the minimum interval between dispatches for
	// the same path; faster events are silently dropped. Editors fire
	// several write events per save, so liveness beats completeness here.
	MinDispatchInterval string `yaml:"min_dispatch_interval"`

	// MaxSizeRechecks bounds completion detection. A file whose size is
	// still changing after this many rechecks is dispatched anyway with a
	// warning rather than held forever.
	MaxSizeRechecks int `yaml:"max_size_rechecks"`

	// FileExtensions lists extensions to watch (e.g. [".pdf", ".tex"]).
	FileExtensions []string `yaml:"file_extensions"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// IgnorePatterns are doublestar globs matched against base names
	// (temp files, swap files, and the like).
	IgnorePatterns []string `yaml:"ignore_patterns"`
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:       "500ms",
		MinDispatchInterval: "2s",
		MaxSizeRechecks:     5,
		FileExtensions:      []string{".pdf", ".html", ".htm", ".docx", ".xml", ".tex", ".epub", ".md", ".txt"},
		ExcludeDirs:         []string{".git", "node_modules", "vendor", "__pycache__"},
		IgnorePatterns:      []string{".*", "*~", "*.swp", "*.tmp", "#*#"},
	}
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *Config) GetDebounceDelay() time.Duration {
	return parseDurationOr(c.DebounceDelay, 500*time.Millisecond)
}

// GetMinDispatchInterval returns the per-path rate limit as a duration.
func (c *Config) GetMinDispatchInterval() time.Duration {
	return parseDurationOr(c.MinDispatchInterval, 2*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// pendingChange tracks a path between the raw fsnotify event and dispatch.
type pendingChange struct {
	op       fsnotify.Op
	lastSize int64
	sized    bool
	rechecks int
}

// FileWatcher watches a directory tree for document changes and emits
// events after debouncing, completion detection, and rate limiting.
type FileWatcher struct {
	config     Config
	rootDir    string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before processing.
	pendingMu sync.Mutex
	pending   map[string]*pendingChange

	// Per-path rate limiting.
	lastDispatch map[string]time.Time

	events chan Event

	droppedEvents atomic.Int64
}

// New creates a file watcher for the given root directory.
func New(config Config, rootDir string, logger *slog.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	extensions := make(map[string]bool)
	for _, ext := range config.FileExtensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}
	if len(extensions) == 0 {
		for _, ext := range DefaultConfig().FileExtensions {
			extensions[ext] = true
		}
	}

	excludes := make(map[string]bool)
	dirs := config.ExcludeDirs
	if len(dirs) == 0 {
		dirs = DefaultConfig().ExcludeDirs
	}
	for _, dir := range dirs {
		excludes[dir] = true
	}

	if config.MaxSizeRechecks <= 0 {
		config.MaxSizeRechecks = DefaultConfig().MaxSizeRechecks
	}
	if len(config.IgnorePatterns) == 0 {
		config.IgnorePatterns = DefaultConfig().IgnorePatterns
	}

	return &FileWatcher{
		config:       config,
		rootDir:      rootDir,
		watcher:      fsw,
		logger:       logger,
		extensions:   extensions,
		excludes:     excludes,
		pending:      make(map[string]*pendingChange),
		lastDispatch: make(map[string]time.Time),
		events:       make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the root directory for changes.
func (w *FileWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.rootDir, 0755); err != nil {
		return err
	}

	if err := w.addWatchesRecursive(w.rootDir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"root", w.rootDir,
		"debounce", w.config.GetDebounceDelay(),
		"min_dispatch_interval", w.config.GetMinDispatchInterval(),
		"extensions", w.config.FileExtensions)

	return nil
}

// Stop stops the watcher. The events channel is closed by processEvents
// when it exits.
func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to channel
// overflow.
func (w *FileWatcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to all directories under root.
func (w *FileWatcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && path != root) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *FileWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.GetDebounceDelay())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent records a single fsnotify event as pending.
func (w *FileWatcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	ext := strings.ToLower(filepath.Ext(path))
	if !w.extensions[ext] {
		// Directory creation needs a new watch even though it never
		// dispatches a document event.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	if w.ignored(path) {
		return
	}

	w.pendingMu.Lock()
	if p, ok := w.pending[path]; ok {
		p.op |= event.Op
	} else {
		w.pending[path] = &pendingChange{op: event.Op}
	}
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", path,
		"op", event.Op.String())
}

// ignored applies exclude-dir and ignore-pattern filtering.
func (w *FileWatcher) ignored(path string) bool {
	relPath, err := filepath.Rel(w.rootDir, path)
	if err == nil {
		for _, part := range strings.Split(filepath.Dir(relPath), string(filepath.Separator)) {
			if w.excludes[part] {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, pattern := range w.config.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *FileWatcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending processes accumulated changes. Deletions dispatch
// immediately; creations and modifications go through completion detection
// first, staying pending until their size is stable across two ticks.
func (w *FileWatcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := w.pending
	w.pending = make(map[string]*pendingChange)
	w.pendingMu.Unlock()

	now := time.Now()

	for path, change := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// fsnotify reports a rename as an event on the old path; the new
		// path arrives separately as a create.
		if change.op.Has(fsnotify.Remove) || change.op.Has(fsnotify.Rename) {
			w.dispatch(Event{Type: EventDeleted, Path: path, Timestamp: now})
			continue
		}

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			w.dispatch(Event{Type: EventDeleted, Path: path, Timestamp: now})
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to stat changed file",
				"path", path,
				"error", err)
			continue
		}

		// Completion detection: a size still moving means a writer is not
		// done. Recheck on the next tick, bounded by MaxSizeRechecks.
		if !change.sized || info.Size() != change.lastSize {
			change.lastSize = info.Size()
			change.sized = true
			change.rechecks++

			if change.rechecks <= w.config.MaxSizeRechecks {
				w.pendingMu.Lock()
				if existing, ok := w.pending[path]; ok {
					// A write landed since the swap; keep its ops but
					// carry over the recheck budget and latest size or a
					// busy writer resets the counter forever.
					existing.op |= change.op
					existing.rechecks = change.rechecks
					existing.lastSize = change.lastSize
					existing.sized = true
				} else {
					w.pending[path] = change
				}
				w.pendingMu.Unlock()
				continue
			}

			w.logger.Warn("File size never stabilized, dispatching anyway",
				"path", path,
				"rechecks", change.rechecks-1)
		}

		// Rate limit: events for the same path inside the minimum interval
		// are dropped, not queued.
		if last, ok := w.lastDispatch[path]; ok && now.Sub(last) < w.config.GetMinDispatchInterval() {
			w.logger.Debug("Rate limited, dropping event", "path", path)
			continue
		}
		w.lastDispatch[path] = now

		eventType := EventModified
		if change.op.Has(fsnotify.Create) {
			eventType = EventCreated
		}
		w.dispatch(Event{Type: eventType, Path: path, Timestamp: now})
	}
}

// dispatch sends an event to the output channel, dropping on overflow.
func (w *FileWatcher) dispatch(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Dispatched watch event",
			"path", event.Path,
			"type", event.Type)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}
