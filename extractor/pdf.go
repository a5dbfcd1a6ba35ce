package extractor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// PDFExtractor handles PDF documents. Per-page font names feed the math
// detector, so spans set in Computer Modern math or AMS symbol fonts score
// higher than their raw text would.
type PDFExtractor struct {
	detector *mathdetect.Detector
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(detector *mathdetect.Detector) *PDFExtractor {
	return &PDFExtractor{detector: detector}
}

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (e *PDFExtractor) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

func (e *PDFExtractor) ExtractText(path string) (string, error) {
	text, _, err := e.extract(path)
	return text, err
}

func (e *PDFExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, fonts, err := e.extract(path)
	if err != nil {
		return nil, err
	}

	return Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"fonts":      fontList(fonts),
		"math_spans": TagMathSpans(e.detector, text, fonts),
	}, nil
}

// extract reads a PDF and returns its text plus the set of font names used.
func (e *PDFExtractor) extract(path string) (string, map[string]bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	reader, err := pdf.NewReader(newBytesReaderAt(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("open PDF: %w", err)
	}

	fonts := make(map[string]bool)
	var textBuilder strings.Builder

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, font := range page.Fonts() {
			fonts[font] = true
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages fail to parse; keep going.
			continue
		}

		if text != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n\n")
			}
			textBuilder.WriteString(text)
		}
	}

	extracted := textBuilder.String()
	if extracted == "" {
		return "", fonts, fmt.Errorf("no text content in PDF (%d pages, possibly image-based)", numPages)
	}

	return extracted, fonts, nil
}

func fontList(fonts map[string]bool) []string {
	names := make([]string, 0, len(fonts))
	for name := range fonts {
		names = append(names, name)
	}
	return names
}

// bytesReaderAt implements io.ReaderAt for a byte slice; the pdf library
// needs random access, not a stream.
type bytesReaderAt struct {
	data []byte
}

func newBytesReaderAt(data []byte) *bytesReaderAt {
	return &bytesReaderAt{data: data}
}

func (r *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n = copy(p, r.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}
