package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/ontology"
)

func TestConceptEntityID_Stable(t *testing.T) {
	a := ConceptEntityID("Sharpe Ratio")
	b := ConceptEntityID("Sharpe Ratio")
	c := ConceptEntityID("Efficient Frontier")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "mathgraph.local.concept.sharpe-ratio.")
}

func TestConceptEntityID_SanitizesName(t *testing.T) {
	id := ConceptEntityID("σ² = w'Σw")
	assert.Contains(t, id, "mathgraph.local.concept.")
	assert.NotContains(t, id, "σ")
	assert.NotContains(t, id, "'")
}

func TestConceptTriples(t *testing.T) {
	now := time.Now()
	c := &concept.Concept{
		Name:        "Sharpe Ratio",
		ConceptType: "term",
		Definition:  "excess return per unit of risk",
		Symbol:      "SR",
		Confidence:  0.8,
		Properties:  map[string]any{"latex": `\frac{R_p - R_f}{\sigma_p}`},
		Relationships: []concept.Relationship{
			{Type: "related_to", Target: "Volatility", Direction: "outgoing"},
		},
	}

	triples := ConceptTriples(c, "entity-1", "mathgraph.test", "doc-1", now)

	predicates := make(map[string]any)
	for _, tr := range triples {
		assert.Equal(t, "entity-1", tr.Subject)
		assert.Equal(t, 0.8, tr.Confidence)
		predicates[tr.Predicate] = tr.Object
	}

	assert.Equal(t, "Sharpe Ratio", predicates[PredicateName])
	assert.Equal(t, "term", predicates[PredicateType])
	assert.Equal(t, "doc-1", predicates[PredicateSourceDocument])
	assert.Equal(t, "SR", predicates[PredicateSymbol])
	assert.Equal(t, `\frac{R_p - R_f}{\sigma_p}`, predicates[PredicateLaTeX])
	assert.Equal(t, "Volatility", predicates[PredicateRelated])
	assert.NotContains(t, predicates, PredicateDescription)
}

func TestPublisher_NilConnectionDegrades(t *testing.T) {
	p, err := NewPublisher(nil, "", nil)
	require.NoError(t, err)

	result := &ontology.ExtractionResult{
		Concepts: []*concept.Concept{
			{Name: "Alpha", ConceptType: "term", Confidence: 0.9},
			{Name: "Beta", ConceptType: "term", Confidence: 0.8},
		},
	}

	require.NoError(t, p.UpdateFromExtraction(context.Background(), result, "doc-1"))
	assert.Len(t, p.DocumentEntities("doc-1"), 2)

	require.NoError(t, p.RemoveDocumentConcepts(context.Background(), "doc-1"))
	assert.Empty(t, p.DocumentEntities("doc-1"))
}
