package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// HTMLExtractor handles HTML documents. Readability isolates the main
// content area; the result is converted to Markdown-flavored text.
type HTMLExtractor struct {
	detector  *mathdetect.Detector
	converter *md.Converter
}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor(detector *mathdetect.Detector) *HTMLExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTMLExtractor{
		detector:  detector,
		converter: converter,
	}
}

func (e *HTMLExtractor) Name() string { return "html" }

func (e *HTMLExtractor) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

func (e *HTMLExtractor) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func (e *HTMLExtractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return e.convert(content, path)
}

func (e *HTMLExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := e.convert(content, path)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"math_spans": TagMathSpans(e.detector, text, nil),
	}
	if title := extractHTMLTitle(content); title != "" {
		meta["title"] = title
	}
	return meta, nil
}

// convert turns raw HTML into plain Markdown text.
func (e *HTMLExtractor) convert(content []byte, path string) (string, error) {
	pageURL := &url.URL{Scheme: "file", Path: path}

	// Readability extracts the article body; a failure (fragment HTML,
	// unusual markup) falls back to converting the whole document.
	source := string(content)
	if article, err := readability.FromReader(bytes.NewReader(content), pageURL); err == nil && article.Content != "" {
		source = article.Content
	}

	markdown, err := e.converter.ConvertString(source)
	if err != nil {
		return "", fmt.Errorf("convert HTML: %w", err)
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	return strings.TrimSpace(markdown), nil
}

// extractHTMLTitle extracts the <title> element text.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title
}
