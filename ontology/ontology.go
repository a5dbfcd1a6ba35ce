// Package ontology defines the collaborator contracts between the
// processing pipeline and the knowledge graph, plus a heuristic concept
// extraction service.
package ontology

import (
	"context"

	"github.com/supersonic-electronic/AI-sub001/concept"
)

// ExtractionResult is the output of concept extraction over one document's
// text.
type ExtractionResult struct {
	Concepts      []*concept.Concept     `json:"concepts"`
	Relationships []concept.Relationship `json:"relationships,omitempty"`
}

// ConceptExtractor extracts concept candidates from document text.
type ConceptExtractor interface {
	ExtractConcepts(ctx context.Context, text string) (*ExtractionResult, error)
}

// Ontology receives concept updates keyed by document ID.
//
// Implementations used from batch mode must be safe for concurrent calls;
// the batch processor does not serialize ontology writes.
type Ontology interface {
	UpdateFromExtraction(ctx context.Context, result *ExtractionResult, documentID string) error
}

// ConceptRemover is the optional removal capability. Callers probe for it
// with a type assertion and degrade to a logged warning when the ontology
// does not support removal.
type ConceptRemover interface {
	RemoveDocumentConcepts(ctx context.Context, documentID string) error
}

// Enricher augments a concept with data from an external knowledge base
// (DBpedia, Wikidata). Returning the input unchanged is a valid no-op;
// callers skip re-committing unchanged concepts.
type Enricher interface {
	EnrichConcept(ctx context.Context, c *concept.Concept) (*concept.Concept, error)
}
