// Package dedup merges duplicate extracted concepts using a similarity
// graph and connected-components grouping.
//
// The weighted similarity function is symmetric but not mathematically
// transitive; connected components absorb the resulting chains, so A~B and
// B~C merge all three even when A and C fall below the threshold on their
// own.
package dedup

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/supersonic-electronic/AI-sub001/concept"
)

// Config configures concept deduplication.
type Config struct {
	// SimilarityThreshold is the minimum pairwise similarity that links
	// two concepts in the similarity graph.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// ExactMatchFields short-circuit similarity to 1.0 when equal after
	// normalization.
	ExactMatchFields []string `yaml:"exact_match_fields"`

	// CaseFold and CollapseWhitespace control normalization.
	CaseFold           bool `yaml:"case_fold"`
	CollapseWhitespace bool `yaml:"collapse_whitespace"`
}

// DefaultConfig returns default deduplication configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		ExactMatchFields:    []string{"name", "symbol"},
		CaseFold:            true,
		CollapseWhitespace:  true,
	}
}

// Field weights for the fuzzy similarity average. Weights are renormalized
// over the fields actually present on both concepts.
const (
	weightName        = 0.4
	weightSymbol      = 0.3
	weightDescription = 0.2
	weightDefinition  = 0.1
)

// Stats accumulates deduplication statistics across calls until Reset.
type Stats struct {
	ConceptsProcessed int `json:"concepts_processed"`
	DuplicatesFound   int `json:"duplicates_found"`
	ConceptsMerged    int `json:"concepts_merged"`
	ExactMatches      int `json:"exact_matches"`
	FuzzyMatches      int `json:"fuzzy_matches"`
}

// Deduplicator merges duplicate concepts. Safe for concurrent use; the
// cumulative statistics are the only shared state.
type Deduplicator struct {
	config Config
	logger *slog.Logger

	statsMu sync.Mutex
	stats   Stats
}

// New creates a deduplicator.
func New(config Config, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = DefaultConfig().SimilarityThreshold
	}
	if len(config.ExactMatchFields) == 0 {
		config.ExactMatchFields = DefaultConfig().ExactMatchFields
	}
	return &Deduplicator{config: config, logger: logger}
}

// Stats returns a snapshot of the cumulative statistics.
func (d *Deduplicator) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// ResetStats clears the cumulative statistics.
func (d *Deduplicator) ResetStats() {
	d.statsMu.Lock()
	d.stats = Stats{}
	d.statsMu.Unlock()
}

// Deduplicate groups similar concepts and merges each group into one
// concept. Inputs are never mutated; merged results are new instances.
// Output is deterministic for a given input order.
func (d *Deduplicator) Deduplicate(concepts []*concept.Concept) []*concept.Concept {
	return d.deduplicate(concepts, d.pairSimilarity, d.globalThreshold, d.selectBase, nil)
}

// matchKind tags how a pair crossed the threshold, for statistics.
type matchKind int

const (
	matchNone matchKind = iota
	matchExact
	matchFuzzy
)

type similarityFn func(a, b *concept.Concept) (float64, matchKind)
type thresholdFn func(a, b *concept.Concept) float64
type baseSelectFn func(group []int, concepts []*concept.Concept) int
type mergeHook func(merged *concept.Concept, group []int, concepts []*concept.Concept)

// deduplicate is the shared engine behind both deduplicator variants.
func (d *Deduplicator) deduplicate(
	concepts []*concept.Concept,
	similarity similarityFn,
	threshold thresholdFn,
	selectBase baseSelectFn,
	hook mergeHook,
) []*concept.Concept {
	if len(concepts) <= 1 {
		d.recordStats(len(concepts), 0, 0, 0, 0)
		return concepts
	}

	// Build the similarity graph over unordered pairs.
	adjacency := make([][]int, len(concepts))
	exact, fuzzy, edges := 0, 0, 0
	for i := 0; i < len(concepts); i++ {
		for j := i + 1; j < len(concepts); j++ {
			score, kind := similarity(concepts[i], concepts[j])
			if score < threshold(concepts[i], concepts[j]) {
				continue
			}
			adjacency[i] = append(adjacency[i], j)
			adjacency[j] = append(adjacency[j], i)
			edges++
			switch kind {
			case matchExact:
				exact++
			case matchFuzzy:
				fuzzy++
			}
		}
	}

	// Depth-first traversal finds the duplicate groups.
	visited := make([]bool, len(concepts))
	var result []*concept.Concept
	merged := 0

	for i := range concepts {
		if visited[i] {
			continue
		}
		group := d.component(i, adjacency, visited)

		if len(group) == 1 {
			result = append(result, concepts[group[0]])
			continue
		}

		result = append(result, d.merge(group, concepts, selectBase, hook))
		merged += len(group)
	}

	d.recordStats(len(concepts), edges, merged, exact, fuzzy)

	if merged > 0 {
		d.logger.Debug("Deduplicated concepts",
			"input", len(concepts),
			"output", len(result),
			"merged", merged)
	}
	return result
}

// globalThreshold applies the configured threshold to every pair.
func (d *Deduplicator) globalThreshold(_, _ *concept.Concept) float64 {
	return d.config.SimilarityThreshold
}

// component collects the connected component containing start.
func (d *Deduplicator) component(start int, adjacency [][]int, visited []bool) []int {
	var group []int
	stack := []int{start}
	visited[start] = true

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, node)

		for _, next := range adjacency[node] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}

	sort.Ints(group)
	return group
}

// pairSimilarity computes similarity for one unordered pair.
func (d *Deduplicator) pairSimilarity(a, b *concept.Concept) (float64, matchKind) {
	for _, field := range d.config.ExactMatchFields {
		av, bv := d.normalize(fieldValue(a, field)), d.normalize(fieldValue(b, field))
		if av != "" && av == bv {
			return 1.0, matchExact
		}
	}

	type weighted struct {
		weight float64
		av, bv string
	}
	fields := []weighted{
		{weightName, a.Name, b.Name},
		{weightSymbol, a.Symbol, b.Symbol},
		{weightDescription, a.Description, b.Description},
		{weightDefinition, a.Definition, b.Definition},
	}

	var total, weightSum float64
	for _, f := range fields {
		// Only fields present on both concepts participate; the remaining
		// weights are renormalized over what is left.
		if f.av == "" || f.bv == "" {
			continue
		}
		total += f.weight * d.jaccard(f.av, f.bv)
		weightSum += f.weight
	}

	if weightSum == 0 {
		return 0, matchNone
	}
	return total / weightSum, matchFuzzy
}

// jaccard computes Jaccard similarity over normalized word sets.
func (d *Deduplicator) jaccard(a, b string) float64 {
	aWords := d.wordSet(a)
	bWords := d.wordSet(b)

	if len(aWords) == 0 && len(bWords) == 0 {
		return 1.0
	}
	if len(aWords) == 0 || len(bWords) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range aWords {
		if bWords[w] {
			intersection++
		}
	}
	union := len(aWords) + len(bWords) - intersection
	return float64(intersection) / float64(union)
}

func (d *Deduplicator) wordSet(s string) map[string]bool {
	words := strings.Fields(d.normalize(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// normalize applies the configured case folding and whitespace collapsing.
func (d *Deduplicator) normalize(s string) string {
	if d.config.CaseFold {
		s = strings.ToLower(s)
	}
	if d.config.CollapseWhitespace {
		s = strings.Join(strings.Fields(s), " ")
	} else {
		s = strings.TrimSpace(s)
	}
	return s
}

func fieldValue(c *concept.Concept, field string) string {
	switch field {
	case "name":
		return c.Name
	case "symbol":
		return c.Symbol
	case "description":
		return c.Description
	case "definition":
		return c.Definition
	default:
		return ""
	}
}

func (d *Deduplicator) recordStats(processed, duplicates, merged, exact, fuzzy int) {
	d.statsMu.Lock()
	d.stats.ConceptsProcessed += processed
	d.stats.DuplicatesFound += duplicates
	d.stats.ConceptsMerged += merged
	d.stats.ExactMatches += exact
	d.stats.FuzzyMatches += fuzzy
	d.statsMu.Unlock()
}
