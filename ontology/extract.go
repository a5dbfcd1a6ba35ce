package ontology

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/extractor"
	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

// Definition-shaped sentences: "The Sharpe ratio is defined as ...",
// "Beta denotes ...", "Variance refers to ...".
var definitionRe = regexp.MustCompile(
	`(?m)^(?:The\s+)?([A-Z][A-Za-z0-9' -]{2,48}?)\s+(?:is defined as|is called|denotes|refers to|measures|is the)\s+([^.\n]{8,240})[.\n]`)

// "X = expression" with a named left-hand side picked up from the
// preceding prose line.
var symbolDefRe = regexp.MustCompile(`(?m)^\s*([\p{L}][\p{L}\p{N}_]{0,12}[²³]?)\s*=\s*(.+)$`)

// HeuristicExtractor extracts concept candidates from text using
// definition-pattern matching plus math-span detection. It is a
// deterministic stand-in for richer NLP extraction: same text in, same
// candidates out.
type HeuristicExtractor struct {
	detector *mathdetect.Detector

	// minSpanConfidence filters math spans too weak to stand as concepts.
	minSpanConfidence float64
}

// NewHeuristicExtractor creates a heuristic concept extractor.
func NewHeuristicExtractor(detector *mathdetect.Detector) *HeuristicExtractor {
	return &HeuristicExtractor{
		detector:          detector,
		minSpanConfidence: 0.4,
	}
}

// ExtractConcepts produces concept candidates from document text. The
// result typically contains duplicates (the same term defined in prose and
// appearing as a formula); deduplication happens downstream.
func (e *HeuristicExtractor) ExtractConcepts(_ context.Context, text string) (*ExtractionResult, error) {
	result := &ExtractionResult{}

	for _, m := range definitionRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		definition := strings.TrimSpace(m[2])

		result.Concepts = append(result.Concepts, &concept.Concept{
			ID:          uuid.New().String(),
			Name:        name,
			ConceptType: "term",
			Definition:  definition,
			Confidence:  0.7,
		})
	}

	for _, span := range extractor.TagMathSpans(e.detector, text, nil) {
		if span.Confidence < e.minSpanConfidence {
			continue
		}

		c := &concept.Concept{
			ID:          uuid.New().String(),
			Name:        span.Text,
			ConceptType: "formula",
			Description: "Mathematical expression (" + string(span.Group) + ")",
			Confidence:  span.Confidence,
			Properties: map[string]any{
				"latex":          span.LaTeX,
				"semantic_group": string(span.Group),
			},
		}

		// A "σ = ..." span names its own symbol.
		if m := symbolDefRe.FindStringSubmatch(span.Text); m != nil {
			c.Symbol = m[1]
			c.Name = m[1] + " = " + strings.TrimSpace(m[2])
		}

		result.Concepts = append(result.Concepts, c)
	}

	return result, nil
}
