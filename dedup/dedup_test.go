package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supersonic-electronic/AI-sub001/concept"
)

func newConcept(name, symbol, description string, confidence float64, sources ...string) *concept.Concept {
	return &concept.Concept{
		Name:            name,
		ConceptType:     "formula",
		Symbol:          symbol,
		Description:     description,
		Confidence:      confidence,
		SourceDocuments: sources,
	}
}

func TestDeduplicate_ExactNameMatch(t *testing.T) {
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Sharpe Ratio", "", "risk-adjusted return measure", 0.9, "a.pdf"),
		newConcept("sharpe  ratio", "", "ratio of excess return to volatility", 0.7, "b.html"),
	}

	result := d.Deduplicate(concepts)

	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].MergedFrom)
	assert.Equal(t, 0.7, result[0].Confidence, "merged confidence must be the minimum")
	assert.ElementsMatch(t, []string{"a.pdf", "b.html"}, result[0].SourceDocuments)
}

func TestDeduplicate_SymbolMatch(t *testing.T) {
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Standard deviation", "σ", "", 0.8, "a.pdf"),
		newConcept("Volatility", "σ", "", 0.6, "b.tex"),
	}

	result := d.Deduplicate(concepts)

	require.Len(t, result, 1)
	assert.Equal(t, "σ", result[0].Symbol)
	assert.Equal(t, 0.6, result[0].Confidence)
}

func TestDeduplicate_DistinctConceptsUntouched(t *testing.T) {
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Sharpe Ratio", "", "risk-adjusted return", 0.9),
		newConcept("Efficient Frontier", "", "set of optimal portfolios", 0.8),
	}

	result := d.Deduplicate(concepts)

	assert.Len(t, result, 2)
	for _, c := range result {
		assert.Zero(t, c.MergedFrom)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Sharpe Ratio", "", "risk-adjusted return measure", 0.9, "a.pdf"),
		newConcept("Sharpe Ratio", "SR", "reward per unit of risk", 0.8, "b.html"),
		newConcept("Efficient Frontier", "", "set of optimal portfolios", 0.8, "c.pdf"),
	}

	first := d.Deduplicate(concepts)
	second := d.Deduplicate(first)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Confidence, second[i].Confidence)
		assert.Equal(t, first[i].MergedFrom, second[i].MergedFrom)
	}
}

func TestDeduplicate_InputsNotMutated(t *testing.T) {
	d := New(DefaultConfig(), nil)

	a := newConcept("Sharpe Ratio", "", "short", 0.9, "a.pdf")
	b := newConcept("Sharpe Ratio", "", "a much longer description of the ratio", 0.8, "b.html")

	d.Deduplicate([]*concept.Concept{a, b})

	assert.Equal(t, "short", a.Description)
	assert.Zero(t, a.MergedFrom)
	assert.Equal(t, []string{"a.pdf"}, a.SourceDocuments)
}

func TestDeduplicate_TransitiveChain(t *testing.T) {
	// A~B and B~C via exact matches on different fields merges all three
	// even though A and C share nothing directly.
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Portfolio Variance", "", "", 0.9),
		newConcept("Portfolio Variance", "σ²", "", 0.8),
		newConcept("Variance of portfolio returns", "σ²", "", 0.7),
	}

	result := d.Deduplicate(concepts)

	require.Len(t, result, 1)
	assert.Equal(t, 3, result[0].MergedFrom)
	assert.Equal(t, 0.7, result[0].Confidence)
}

func TestMerge_FieldSelection(t *testing.T) {
	d := New(DefaultConfig(), nil)

	a := newConcept("Beta", "", "short desc", 0.9, "a.pdf")
	a.Properties = map[string]any{"unit": "dimensionless", "domain": "equities"}
	a.Relationships = []concept.Relationship{{Type: "related_to", Target: "CAPM", Direction: "outgoing"}}
	a.Examples = []string{"β = 1.2"}

	b := newConcept("Beta", "β", "a considerably longer description of systematic risk exposure", 0.6, "b.tex")
	b.Properties = map[string]any{"unit": "unitless"}
	b.Relationships = []concept.Relationship{
		{Type: "related_to", Target: "CAPM", Direction: "outgoing"},
		{Type: "defined_by", Target: "covariance", Direction: "outgoing"},
	}
	b.Examples = []string{"β = 1.2", "β = 0.8"}

	result := d.Deduplicate([]*concept.Concept{a, b})
	require.Len(t, result, 1)
	merged := result[0]

	assert.Equal(t, "β", merged.Symbol, "first non-empty symbol wins")
	assert.Equal(t, b.Description, merged.Description, "longest unique description wins")
	assert.Len(t, merged.Relationships, 2, "relationships deduplicated by (type, target, direction)")
	assert.ElementsMatch(t, []string{"β = 1.2", "β = 0.8"}, merged.Examples)
	assert.Equal(t, "equities", merged.Properties["domain"])
	assert.ElementsMatch(t, []any{"dimensionless", "unitless"}, merged.Properties["unit"], "scalar conflict becomes list")
	assert.Equal(t, 0.6, merged.Confidence)
	assert.Equal(t, 2, merged.MergedFrom)
}

func TestMerge_ListAndMapProperties(t *testing.T) {
	d := New(DefaultConfig(), nil)

	a := newConcept("Sharpe Ratio", "", "risk-adjusted return", 0.9, "a.pdf")
	a.Properties = map[string]any{
		"tags":   []string{"risk", "performance"},
		"bounds": map[string]float64{"min": 0},
	}

	b := newConcept("Sharpe Ratio", "", "excess return per unit of risk", 0.7, "b.tex")
	b.Properties = map[string]any{
		"tags":   []string{"performance", "ratio"},
		"bounds": map[string]float64{"min": 0},
	}

	result := d.Deduplicate([]*concept.Concept{a, b})
	require.Len(t, result, 1)
	merged := result[0]

	assert.ElementsMatch(t, []any{"risk", "performance", "ratio"}, merged.Properties["tags"])
	assert.Equal(t, map[string]float64{"min": 0}, merged.Properties["bounds"], "equal map values collapse to one")
}

func TestDeduplicate_Deterministic(t *testing.T) {
	d := New(DefaultConfig(), nil)

	input := func() []*concept.Concept {
		return []*concept.Concept{
			newConcept("Alpha", "α", "excess return", 0.9, "a.pdf"),
			newConcept("Alpha", "", "excess return over benchmark", 0.8, "b.html"),
			newConcept("Beta", "β", "systematic risk", 0.85, "a.pdf"),
		}
	}

	first := d.Deduplicate(input())
	for i := 0; i < 5; i++ {
		got := d.Deduplicate(input())
		require.Len(t, got, len(first))
		for j := range first {
			assert.Equal(t, first[j].Name, got[j].Name)
			assert.Equal(t, first[j].Confidence, got[j].Confidence)
		}
	}
}

func TestStats_Cumulative(t *testing.T) {
	d := New(DefaultConfig(), nil)

	concepts := []*concept.Concept{
		newConcept("Sharpe Ratio", "", "risk-adjusted return", 0.9),
		newConcept("Sharpe Ratio", "", "excess return per risk", 0.8),
	}

	d.Deduplicate(concepts)
	stats := d.Stats()
	assert.Equal(t, 2, stats.ConceptsProcessed)
	assert.Equal(t, 2, stats.ConceptsMerged)
	assert.Equal(t, 1, stats.ExactMatches)

	d.Deduplicate(concepts)
	stats = d.Stats()
	assert.Equal(t, 4, stats.ConceptsProcessed, "stats accumulate across calls")

	d.ResetStats()
	assert.Zero(t, d.Stats().ConceptsProcessed)
}
