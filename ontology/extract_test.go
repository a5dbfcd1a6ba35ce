package ontology

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/mathdetect"
)

func newExtractor() *HeuristicExtractor {
	return NewHeuristicExtractor(mathdetect.New())
}

func byType(concepts []*concept.Concept, conceptType string) []*concept.Concept {
	var out []*concept.Concept
	for _, c := range concepts {
		if c.ConceptType == conceptType {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractConcepts_DefinitionSentences(t *testing.T) {
	text := "The Sharpe ratio is defined as excess return per unit of risk.\n" +
		"Volatility measures the dispersion of returns around the mean.\n"

	result, err := newExtractor().ExtractConcepts(context.Background(), text)
	require.NoError(t, err)

	terms := byType(result.Concepts, "term")
	require.Len(t, terms, 2)
	assert.Equal(t, "Sharpe ratio", terms[0].Name)
	assert.Equal(t, "excess return per unit of risk", terms[0].Definition)
	assert.Equal(t, 0.7, terms[0].Confidence)
	assert.Equal(t, "Volatility", terms[1].Name)
}

func TestExtractConcepts_FormulaSpans(t *testing.T) {
	text := "Portfolio risk is computed from the weights.\n\nσ² = w'Σw\n"

	result, err := newExtractor().ExtractConcepts(context.Background(), text)
	require.NoError(t, err)

	formulas := byType(result.Concepts, "formula")
	require.Len(t, formulas, 1)
	f := formulas[0]

	// A span shaped like "symbol = expression" names its own symbol.
	assert.Equal(t, "σ²", f.Symbol)
	assert.Equal(t, "σ² = w'Σw", f.Name)
	assert.Greater(t, f.Confidence, 0.5)
	assert.NotEmpty(t, f.Properties["latex"])
	assert.NotEmpty(t, f.Properties["semantic_group"])
	assert.NotEmpty(t, f.ID)
}

func TestExtractConcepts_Deterministic(t *testing.T) {
	text := "The Beta denotes sensitivity to market movements in the model.\n\nE(R_p) = w'μ\n"
	e := newExtractor()

	a, err := e.ExtractConcepts(context.Background(), text)
	require.NoError(t, err)
	b, err := e.ExtractConcepts(context.Background(), text)
	require.NoError(t, err)

	require.Equal(t, len(a.Concepts), len(b.Concepts))
	for i := range a.Concepts {
		// IDs are fresh per run; everything else is a pure function of the
		// input text.
		assert.Equal(t, a.Concepts[i].Name, b.Concepts[i].Name)
		assert.Equal(t, a.Concepts[i].ConceptType, b.Concepts[i].ConceptType)
		assert.Equal(t, a.Concepts[i].Confidence, b.Concepts[i].Confidence)
	}
}

func TestExtractConcepts_EmptyText(t *testing.T) {
	result, err := newExtractor().ExtractConcepts(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, result.Concepts)
}
