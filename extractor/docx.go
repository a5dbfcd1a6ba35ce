package extractor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// DOCXExtractor handles Word documents (OOXML zip archives). Only the main
// document part is read; headers, footers, and embedded objects are skipped.
type DOCXExtractor struct {
	detector *mathdetect.Detector
}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor(detector *mathdetect.Detector) *DOCXExtractor {
	return &DOCXExtractor{detector: detector}
}

func (e *DOCXExtractor) Name() string { return "docx" }

func (e *DOCXExtractor) SupportedExtensions() []string {
	return []string{".docx"}
}

func (e *DOCXExtractor) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".docx"
}

func (e *DOCXExtractor) ExtractText(path string) (string, error) {
	doc, err := readZipEntry(path, "word/document.xml")
	if err != nil {
		return "", err
	}

	text, err := xmlCharData(doc)
	if err != nil {
		return "", fmt.Errorf("parse DOCX document part: %w", err)
	}
	return text, nil
}

func (e *DOCXExtractor) ExtractMetadata(path string) (Metadata, error) {
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

// readZipEntry returns the contents of one entry in a zip archive.
func readZipEntry(path, name string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return nil, fmt.Errorf("archive entry %s not found in %s", name, path)
}
