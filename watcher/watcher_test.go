package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		DebounceDelay:       "50ms",
		MinDispatchInterval: "10ms",
		MaxSizeRechecks:     3,
		FileExtensions:      []string{".md", ".txt"},
		ExcludeDirs:         []string{".git"},
	}
}

func TestNew(t *testing.T) {
	w, err := New(testConfig(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if !w.extensions[".md"] {
		t.Error("expected .md extension to be watched")
	}
	if !w.extensions[".txt"] {
		t.Error("expected .txt extension to be watched")
	}
	if !w.excludes[".git"] {
		t.Error("expected .git to be excluded")
	}
}

func TestConfig_Durations(t *testing.T) {
	tests := []struct {
		name   string
		delay  string
		expect time.Duration
	}{
		{"valid duration", "100ms", 100 * time.Millisecond},
		{"empty string uses default", "", 500 * time.Millisecond},
		{"invalid duration uses default", "invalid", 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{DebounceDelay: tt.delay}
			if got := config.GetDebounceDelay(); got != tt.expect {
				t.Errorf("GetDebounceDelay() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceDelay != "500ms" {
		t.Errorf("unexpected default debounce delay: %s", config.DebounceDelay)
	}
	if config.MaxSizeRechecks != 5 {
		t.Errorf("unexpected default max size rechecks: %d", config.MaxSizeRechecks)
	}
	if len(config.FileExtensions) == 0 {
		t.Error("expected default extensions")
	}
}

// waitForEvent blocks until an event for the given path arrives or the
// timeout elapses.
func waitForEvent(t *testing.T, w *FileWatcher, path string, timeout time.Duration) (Event, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case event, ok := <-w.Events():
			if !ok {
				return Event{}, false
			}
			if event.Path == path {
				return event, true
			}
		case <-deadline:
			return Event{}, false
		}
	}
}

func TestFileWatcher_CreateModifyDelete(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(testConfig(), tmpDir, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	path := filepath.Join(tmpDir, "doc.md")
	if err := os.WriteFile(path, []byte("# Title"), 0644); err != nil {
		t.Fatal(err)
	}

	event, ok := waitForEvent(t, w, path, 3*time.Second)
	if !ok {
		t.Fatal("no event for created file")
	}
	if event.Type != EventCreated {
		t.Errorf("expected created event, got %s", event.Type)
	}

	// Give the rate limiter room, then modify.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("# Title\nmore"), 0644); err != nil {
		t.Fatal(err)
	}

	event, ok = waitForEvent(t, w, path, 3*time.Second)
	if !ok {
		t.Fatal("no event for modified file")
	}
	if event.Type != EventModified {
		t.Errorf("expected modified event, got %s", event.Type)
	}

	time.Sleep(100 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	event, ok = waitForEvent(t, w, path, 3*time.Second)
	if !ok {
		t.Fatal("no event for deleted file")
	}
	if event.Type != EventDeleted {
		t.Errorf("expected deleted event, got %s", event.Type)
	}
}

func TestFileWatcher_DispatchesWhenSizeNeverStabilizes(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := testConfig()
	config.MaxSizeRechecks = 2

	w, err := New(config, tmpDir, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}

	path := filepath.Join(tmpDir, "stream.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// Keep the file growing faster than the debounce tick so every size
	// recheck sees a new size.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
				f.WriteString("more data\n")
			}
		}
	}()

	// Even without a stable size, the event must dispatch once the
	// recheck budget runs out.
	event, ok := waitForEvent(t, w, path, 5*time.Second)
	if !ok {
		t.Fatal("no event for endlessly growing file")
	}
	if event.Type != EventCreated {
		t.Errorf("expected created event, got %s", event.Type)
	}
}

func TestFileWatcher_IgnoresOtherExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(testConfig(), tmpDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	ignored := filepath.Join(tmpDir, "binary.exe")
	if err := os.WriteFile(ignored, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := waitForEvent(t, w, ignored, 500*time.Millisecond); ok {
		t.Error("unexpected event for unwatched extension")
	}
}

func TestFileWatcher_IgnorePatterns(t *testing.T) {
	config := testConfig()
	config.IgnorePatterns = []string{".*", "*.swp"}

	w, err := New(config, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(w.rootDir, ".hidden.md"), true},
		{filepath.Join(w.rootDir, "doc.md.swp"), true},
		{filepath.Join(w.rootDir, "doc.md"), false},
		{filepath.Join(w.rootDir, ".git", "doc.md"), true},
	}

	for _, tt := range tests {
		if got := w.ignored(tt.path); got != tt.want {
			t.Errorf("ignored(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestBatchFileWatcher_FlushOnSize(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := testConfig()
	w, err := New(config, tmpDir, nil)
	if err != nil {
		t.Fatal(err)
	}

	batchConfig := BatchConfig{MaxBatchSize: 2, FlushTimeout: "10s"}
	bw := NewBatch(batchConfig, w, nil)

	batches := make(chan []Event, 4)
	bw.OnBatch(func(events []Event) {
		batches <- events
	})

	if err := bw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer bw.Stop()

	for _, name := range []string{"a.md", "b.md"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x y z"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case batch := <-batches:
		if len(batch) != 2 {
			t.Errorf("expected batch of 2, got %d", len(batch))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch flushed on size")
	}
}

func TestBatchFileWatcher_FlushOnTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(testConfig(), tmpDir, nil)
	if err != nil {
		t.Fatal(err)
	}

	batchConfig := BatchConfig{MaxBatchSize: 100, FlushTimeout: "300ms"}
	bw := NewBatch(batchConfig, w, nil)

	batches := make(chan []Event, 4)
	bw.OnBatch(func(events []Event) {
		batches <- events
	})

	if err := bw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer bw.Stop()

	if err := os.WriteFile(filepath.Join(tmpDir, "solo.md"), []byte("x y z"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 {
			t.Errorf("expected batch of 1, got %d", len(batch))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch flushed on timeout")
	}
}
