package extractor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// TextExtractor handles plain text and Markdown documents.
type TextExtractor struct {
	detector *mathdetect.Detector
}

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor(detector *mathdetect.Detector) *TextExtractor {
	return &TextExtractor{detector: detector}
}

func (e *TextExtractor) Name() string { return "text" }

func (e *TextExtractor) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

func (e *TextExtractor) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range e.SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}

func (e *TextExtractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (e *TextExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := string(content)
	meta := Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"math_spans": TagMathSpans(e.detector, text, nil),
	}

	// First Markdown heading doubles as a title.
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "# ") {
			meta["title"] = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}

	return meta, nil
}
