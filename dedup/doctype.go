package dedup

import (
	"log/slog"
	"sort"

	"github.com/supersonic-electronic/AI-sub001/concept"
)

// Similarity adjustment applied when both concepts come from the same or
// different document types. Same-type duplicates are slightly more likely
// to be genuine (same notation conventions); cross-type pairs slightly
// less.
const (
	sameTypeBoost    = 1.05
	crossTypePenalty = 0.95
)

// TypeAwareConfig extends Config with document-type awareness.
type TypeAwareConfig struct {
	Config `yaml:",inline"`

	// TypePriority ranks document types for merge base selection; a
	// higher value wins ties. Types not listed rank at zero.
	TypePriority map[concept.DocumentType]int `yaml:"type_priority"`

	// ThresholdOverrides maps an unordered type pair (PairKey) to a
	// similarity threshold that replaces the global one for that pair.
	ThresholdOverrides map[string]float64 `yaml:"threshold_overrides"`
}

// DefaultTypeAwareConfig returns defaults with the conventional priority
// order PDF > LaTeX > DOCX > HTML > XML.
func DefaultTypeAwareConfig() TypeAwareConfig {
	return TypeAwareConfig{
		Config: DefaultConfig(),
		TypePriority: map[concept.DocumentType]int{
			concept.DocTypePDF:   5,
			concept.DocTypeLaTeX: 4,
			concept.DocTypeDOCX:  3,
			concept.DocTypeHTML:  2,
			concept.DocTypeXML:   1,
		},
	}
}

// PairKey builds the ThresholdOverrides key for an unordered type pair.
func PairKey(a, b concept.DocumentType) string {
	if string(a) > string(b) {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// TypeAwareDeduplicator adjusts similarity and merge priority by source
// document type. A concept extracted from a PDF wins the merge base over
// an HTML scrape of the same material.
type TypeAwareDeduplicator struct {
	*Deduplicator
	config TypeAwareConfig
}

// NewTypeAware creates a document-type-aware deduplicator.
func NewTypeAware(config TypeAwareConfig, logger *slog.Logger) *TypeAwareDeduplicator {
	if len(config.TypePriority) == 0 {
		config.TypePriority = DefaultTypeAwareConfig().TypePriority
	}
	return &TypeAwareDeduplicator{
		Deduplicator: New(config.Config, logger),
		config:       config,
	}
}

// Deduplicate merges duplicates with type-aware similarity, thresholds, and
// base selection, recording the contributing source types on each merge.
func (d *TypeAwareDeduplicator) Deduplicate(concepts []*concept.Concept) []*concept.Concept {
	return d.deduplicate(concepts, d.typeAwareSimilarity, d.pairThreshold, d.selectBaseByPriority, d.recordSourceTypes)
}

// typeAwareSimilarity scales the base similarity by whether the pair
// shares a document type. Exact matches stay at 1.0.
func (d *TypeAwareDeduplicator) typeAwareSimilarity(a, b *concept.Concept) (float64, matchKind) {
	score, kind := d.pairSimilarity(a, b)
	if kind == matchExact {
		return score, kind
	}

	if a.SourceType() == b.SourceType() {
		score *= sameTypeBoost
	} else {
		score *= crossTypePenalty
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, kind
}

// pairThreshold prefers an explicit per-type-pair override, falling back
// to the global threshold.
func (d *TypeAwareDeduplicator) pairThreshold(a, b *concept.Concept) float64 {
	if len(d.config.ThresholdOverrides) > 0 {
		if t, ok := d.config.ThresholdOverrides[PairKey(a.SourceType(), b.SourceType())]; ok {
			return t
		}
	}
	return d.config.SimilarityThreshold
}

// selectBaseByPriority sorts candidates by type priority before
// completeness, so a higher-priority source wins completeness ties.
func (d *TypeAwareDeduplicator) selectBaseByPriority(group []int, concepts []*concept.Concept) int {
	candidates := append([]int(nil), group...)
	sort.SliceStable(candidates, func(i, j int) bool {
		pi := d.config.TypePriority[concepts[candidates[i]].SourceType()]
		pj := d.config.TypePriority[concepts[candidates[j]].SourceType()]
		if pi != pj {
			return pi > pj
		}
		return completeness(concepts[candidates[i]]) > completeness(concepts[candidates[j]])
	})
	return candidates[0]
}

// recordSourceTypes stamps the merged concept with its primary source type
// and the set of all contributing types.
func (d *TypeAwareDeduplicator) recordSourceTypes(merged *concept.Concept, group []int, concepts []*concept.Concept) {
	base := d.selectBaseByPriority(group, concepts)
	merged.PrimarySourceType = concepts[base].SourceType()

	seen := make(map[concept.DocumentType]bool)
	var types []concept.DocumentType
	for _, idx := range group {
		t := concepts[idx].SourceType()
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	merged.SourceTypes = types
}
