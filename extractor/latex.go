package extractor

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

var (
	latexCommentRe = regexp.MustCompile(`(?m)(^|[^\\])%.*$`)
	latexTitleRe   = regexp.MustCompile(`\\title\{([^}]*)\}`)

	// Display and inline math delimiters.
	latexDisplayMathRe = regexp.MustCompile(`(?s)\\\[(.*?)\\\]|\$\$(.*?)\$\$`)
	latexInlineMathRe  = regexp.MustCompile(`\$([^$\n]+)\$`)
	latexEnvMathRe     = regexp.MustCompile(`(?s)\\begin\{(equation\*?|align\*?|gather\*?|eqnarray\*?)\}(.*?)\\end\{[a-z]+\*?\}`)

	latexCommandRe = regexp.MustCompile(`\\[a-zA-Z]+\*?(\[[^\]]*\])?(\{[^{}]*\})?`)
)

// LaTeXExtractor handles .tex sources. Math environments are lifted out as
// spans before the remaining markup is stripped to prose.
type LaTeXExtractor struct {
	detector *mathdetect.Detector
}

// NewLaTeXExtractor creates a LaTeX extractor.
func NewLaTeXExtractor(detector *mathdetect.Detector) *LaTeXExtractor {
	return &LaTeXExtractor{detector: detector}
}

func (e *LaTeXExtractor) Name() string { return "latex" }

func (e *LaTeXExtractor) SupportedExtensions() []string {
	return []string{".tex", ".latex"}
}

func (e *LaTeXExtractor) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tex" || ext == ".latex"
}

func (e *LaTeXExtractor) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return stripLaTeX(string(content)), nil
}

func (e *LaTeXExtractor) ExtractMetadata(path string) (Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := latexCommentRe.ReplaceAllString(string(content), "$1")

	// Math environments are authoritative spans: they were authored as
	// mathematics, so detection only refines confidence and grouping.
	var spans []MathSpan
	for _, body := range collectMathBodies(source) {
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}
		result := e.detector.Detect(body, nil)
		confidence := result.Confidence
		if confidence < 0.5 {
			confidence = 0.5
		}
		spans = append(spans, MathSpan{
			Text:       body,
			LaTeX:      body,
			Confidence: confidence,
			Group:      mathdetect.Classify(body, result),
		})
	}

	meta := Metadata{
		"size":       len(content),
		"hash":       ContentHash(content),
		"math_spans": spans,
	}
	if m := latexTitleRe.FindStringSubmatch(source); m != nil {
		meta["title"] = strings.TrimSpace(m[1])
	}
	return meta, nil
}

func collectMathBodies(source string) []string {
	var bodies []string
	for _, m := range latexEnvMathRe.FindAllStringSubmatch(source, -1) {
		bodies = append(bodies, m[2])
	}
	for _, m := range latexDisplayMathRe.FindAllStringSubmatch(source, -1) {
		if m[1] != "" {
			bodies = append(bodies, m[1])
		} else {
			bodies = append(bodies, m[2])
		}
	}
	for _, m := range latexInlineMathRe.FindAllStringSubmatch(source, -1) {
		bodies = append(bodies, m[1])
	}
	return bodies
}

// stripLaTeX reduces LaTeX source to approximate prose.
func stripLaTeX(source string) string {
	s := latexCommentRe.ReplaceAllString(source, "$1")
	s = latexEnvMathRe.ReplaceAllString(s, " $2 ")
	s = latexDisplayMathRe.ReplaceAllString(s, " $1$2 ")
	s = latexInlineMathRe.ReplaceAllString(s, " $1 ")

	// Keep the argument of common text-bearing commands, drop the rest.
	s = regexp.MustCompile(`\\(?:section|subsection|subsubsection|title|chapter|paragraph|textbf|textit|emph)\*?\{([^{}]*)\}`).
		ReplaceAllString(s, "$1\n")
	s = latexCommandRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("{", "", "}", "", "~", " ").Replace(s)

	return strings.TrimSpace(regexp.MustCompile(`[ \t]{2,}`).ReplaceAllString(s, " "))
}
