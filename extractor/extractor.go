// Package extractor provides format-specific text extraction behind a
// capability interface. Extractors are registered explicitly at startup;
// there is no dynamic plugin discovery.
package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Metadata is free-form document metadata returned by extraction.
type Metadata map[string]any

// Extractor is the capability interface implemented per document format.
type Extractor interface {
	// Name identifies the extractor in logs and batch results.
	Name() string

	// CanHandle reports whether this extractor handles the given path.
	CanHandle(path string) bool

	// SupportedExtensions lists the file extensions this extractor accepts,
	// including the leading dot.
	SupportedExtensions() []string

	// ExtractText returns the document's plain text. Malformed input
	// returns an error; callers treat it as a per-file failure.
	ExtractText(path string) (string, error)

	// ExtractMetadata returns document metadata. Extractors that tag
	// mathematical spans report them under the "math_spans" key.
	ExtractMetadata(path string) (Metadata, error)
}

// ErrNoExtractor is returned when no registered extractor handles a path.
type ErrNoExtractor struct {
	Path string
}

func (e *ErrNoExtractor) Error() string {
	return fmt.Sprintf("no suitable extractor for %s", e.Path)
}

// ContentHash computes a SHA-256 hash of content, hex-encoded.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// DocumentID creates a stable document ID from a file path and content hash.
// Format: doc.<sanitized-name>.<hash12>.
func DocumentID(path string, content []byte) string {
	base := filepath.Base(path)
	name := sanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))

	hash := sha256.Sum256(content)
	short := hex.EncodeToString(hash[:])[:12]

	return fmt.Sprintf("doc.%s.%s", name, short)
}

// sanitizeID makes a string safe for use as an entity ID.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	return b.String()
}
