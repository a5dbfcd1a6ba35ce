package extractor

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry manages extractors. Registration happens explicitly at startup;
// lookup is by extension first, then by CanHandle probing.
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
	byExt      map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]Extractor),
	}
}

// Register adds an extractor. Later registrations win extension conflicts,
// so callers can override defaults by registering afterwards.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, e)
	for _, ext := range e.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// ForPath returns the extractor for a path, or nil if none handles it.
func (r *Registry) ForPath(path string) Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if e, ok := r.byExt[ext]; ok {
		return e
	}

	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return e
		}
	}
	return nil
}

// SupportedExtensions returns all registered extensions.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Extract extracts text and metadata from a path using the appropriate
// extractor.
func (r *Registry) Extract(path string) (string, Metadata, error) {
	e := r.ForPath(path)
	if e == nil {
		return "", nil, &ErrNoExtractor{Path: path}
	}

	text, err := e.ExtractText(path)
	if err != nil {
		return "", nil, err
	}

	meta, err := e.ExtractMetadata(path)
	if err != nil {
		return "", nil, err
	}
	if meta == nil {
		meta = Metadata{}
	}
	meta["extractor"] = e.Name()

	return text, meta, nil
}
