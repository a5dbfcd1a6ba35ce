package extractor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// EPUBExtractor handles EPUB archives by extracting text from every
// XHTML content entry, in archive order sorted by name for determinism.
type EPUBExtractor struct {
	detector *mathdetect.Detector
	html     *HTMLExtractor
}

// NewEPUBExtractor creates an EPUB extractor.
func NewEPUBExtractor(detector *mathdetect.Detector) *EPUBExtractor {
	return &EPUBExtractor{
		detector: detector,
		html:     NewHTMLExtractor(detector),
	}
}

func (e *EPUBExtractor) Name() string { return "epub" }

func (e *EPUBExtractor) SupportedExtensions() []string {
	return []string{".epub"}
}

func (e *EPUBExtractor) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".epub"
}

func (e *EPUBExtractor) ExtractText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open EPUB: %w", err)
	}
	defer r.Close()

	var entries []*zip.File
	for _, f := range r.File {
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".xhtml", ".html", ".htm":
			entries = append(entries, f)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var b strings.Builder
	for _, f := range entries {
		rc, err := f.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		text, err := e.html.convert(content, f.Name)
		if err != nil || text == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no readable content entries in EPUB %s", path)
	}
	return b.String(), nil
}

func (e *EPUBExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := e.ExtractText(path)
	if err != nil {
		return nil, err
	}

	return Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"math_spans": TagMathSpans(e.detector, text, nil),
	}, nil
}
