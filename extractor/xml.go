package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// XMLExtractor handles generic XML documents by collecting character data.
type XMLExtractor struct {
	detector *mathdetect.Detector
}

// NewXMLExtractor creates an XML extractor.
func NewXMLExtractor(detector *mathdetect.Detector) *XMLExtractor {
	return &XMLExtractor{detector: detector}
}

func (e *XMLExtractor) Name() string { return "xml" }

func (e *XMLExtractor) SupportedExtensions() []string {
	return []string{".xml"}
}

func (e *XMLExtractor) CanHandle(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".xml"
}

func (e *XMLExtractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return xmlCharData(content)
}

func (e *XMLExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := xmlCharData(content)
	if err != nil {
		return nil, err
	}

	return Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"math_spans": TagMathSpans(e.detector, text, nil),
	}, nil
}

// xmlCharData streams through the document and joins element text.
func xmlCharData(content []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse XML: %w", err)
		}

		if cd, ok := tok.(xml.CharData); ok {
			text := strings.TrimSpace(string(cd))
			if text != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
		}
	}
	return b.String(), nil
}
