package dedup

import (
	"reflect"
	"sort"

	"github.com/supersonic-electronic/AI-sub001/concept"
)

// selectBase chooses the merge base for a group: highest completeness
// score, ties broken by input order for determinism.
func (d *Deduplicator) selectBase(group []int, concepts []*concept.Concept) int {
	best := group[0]
	bestScore := completeness(concepts[best])
	for _, idx := range group[1:] {
		if score := completeness(concepts[idx]); score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best
}

// completeness scores how fully populated a concept is. Richer concepts
// make better merge bases because their fields survive the merge intact.
func completeness(c *concept.Concept) int {
	score := 0
	if c.Name != "" {
		score += 10
	}
	if c.Symbol != "" {
		score += 5
	}
	score += len(c.Description) / 5
	score += len(c.Definition) / 3
	score += 2 * len(c.Properties)
	score += 2 * len(c.Relationships)
	score += len(c.Examples)
	return score
}

// merge folds a duplicate group into one new concept. Inputs are left
// untouched.
func (d *Deduplicator) merge(
	group []int,
	concepts []*concept.Concept,
	selectBase baseSelectFn,
	hook mergeHook,
) *concept.Concept {
	base := concepts[selectBase(group, concepts)]
	merged := base.Clone()
	merged.MergedFrom = len(group)

	// Longest unique description and definition across the group.
	merged.Description = d.longestUnique(group, concepts, func(c *concept.Concept) string { return c.Description })
	merged.Definition = d.longestUnique(group, concepts, func(c *concept.Concept) string { return c.Definition })

	// First non-empty symbol in input order.
	merged.Symbol = ""
	for _, idx := range group {
		if s := concepts[idx].Symbol; s != "" {
			merged.Symbol = s
			break
		}
	}

	merged.Properties = mergeProperties(group, concepts)
	merged.Relationships = mergeRelationships(group, concepts)
	merged.Examples = mergeExamples(group, concepts)
	merged.SourceDocuments = mergeSources(group, concepts)

	// Minimum confidence across the group: merging cannot make the result
	// more certain than its least certain source.
	merged.Confidence = concepts[group[0]].Confidence
	for _, idx := range group[1:] {
		if c := concepts[idx].Confidence; c < merged.Confidence {
			merged.Confidence = c
		}
	}

	if hook != nil {
		hook(merged, group, concepts)
	}
	return merged
}

// longestUnique picks the longest text after deduplicating by normalized
// form.
func (d *Deduplicator) longestUnique(group []int, concepts []*concept.Concept, get func(*concept.Concept) string) string {
	seen := make(map[string]bool)
	longest := ""
	for _, idx := range group {
		text := get(concepts[idx])
		if text == "" {
			continue
		}
		norm := d.normalize(text)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		if len(text) > len(longest) {
			longest = text
		}
	}
	return longest
}

// mergeProperties unions properties across the group. List-valued
// properties are unioned; conflicting scalars become a list of all
// distinct values.
func mergeProperties(group []int, concepts []*concept.Concept) map[string]any {
	merged := make(map[string]any)
	for _, idx := range group {
		for key, value := range concepts[idx].Properties {
			existing, ok := merged[key]
			if !ok {
				merged[key] = value
				continue
			}
			merged[key] = unionValues(existing, value)
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// unionValues combines two property values, flattening lists and keeping
// distinct scalars.
func unionValues(a, b any) any {
	values := flatten(a)
	for _, v := range flatten(b) {
		if !containsValue(values, v) {
			values = append(values, v)
		}
	}
	if len(values) == 1 {
		return values[0]
	}
	return values
}

// flatten normalizes any slice-valued property (typed or []any) to []any
// so unioning works element-wise regardless of how the list was built.
func flatten(v any) []any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// containsValue compares with reflect.DeepEqual: property values can hold
// slices and maps, which == on any would panic on.
func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

// mergeRelationships unions relationships, deduplicated by
// (type, target, direction).
func mergeRelationships(group []int, concepts []*concept.Concept) []concept.Relationship {
	seen := make(map[string]bool)
	var merged []concept.Relationship
	for _, idx := range group {
		for _, rel := range concepts[idx].Relationships {
			if key := rel.Key(); !seen[key] {
				seen[key] = true
				merged = append(merged, rel)
			}
		}
	}
	return merged
}

func mergeExamples(group []int, concepts []*concept.Concept) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, idx := range group {
		for _, ex := range concepts[idx].Examples {
			if !seen[ex] {
				seen[ex] = true
				merged = append(merged, ex)
			}
		}
	}
	return merged
}

// mergeSources unions source documents across the group, sorted for
// stability.
func mergeSources(group []int, concepts []*concept.Concept) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, idx := range group {
		for _, src := range concepts[idx].SourceDocuments {
			if !seen[src] {
				seen[src] = true
				merged = append(merged, src)
			}
		}
	}
	sort.Strings(merged)
	return merged
}
