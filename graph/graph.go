// Package graph publishes concepts to the knowledge graph as triples over
// NATS JetStream.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Subjects for graph ingestion and removal.
const (
	IngestSubject = "graph.ingest.entity"
	RemoveSubject = "graph.remove.entity"
)

// Triple is one subject-predicate-object statement about an entity.
type Triple struct {
	Subject    string    `json:"subject"`
	Predicate  string    `json:"predicate"`
	Object     any       `json:"object"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// EntityIngestMessage is the message format for graph ingestion.
type EntityIngestMessage struct {
	ID        string    `json:"id"`
	Triples   []Triple  `json:"triples"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityRemoveMessage asks the graph to drop the entities a document
// contributed.
type EntityRemoveMessage struct {
	DocumentID string    `json:"document_id"`
	EntityIDs  []string  `json:"entity_ids"`
	RemovedAt  time.Time `json:"removed_at"`
}

// Predicates used for concept triples.
const (
	PredicateName           = "concept.name"
	PredicateType           = "concept.type"
	PredicateDescription    = "concept.description"
	PredicateDefinition     = "concept.definition"
	PredicateSymbol         = "concept.symbol"
	PredicateLaTeX          = "concept.latex"
	PredicateSemanticGroup  = "concept.semantic_group"
	PredicateSourceDocument = "concept.source_document"
	PredicateMergedFrom     = "concept.merged_from"
	PredicateRelated        = "concept.related_to"
)

// ConceptEntityID generates a consistent entity ID for a concept.
// Format: mathgraph.local.concept.<sanitized-name>.<hash12>
func ConceptEntityID(name string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	short := hex.EncodeToString(hash[:])[:12]
	return fmt.Sprintf("mathgraph.local.concept.%s.%s", sanitizeID(name), short)
}

// sanitizeID makes a string safe for use inside an entity ID.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune('-')
		}
	}
	id := b.String()
	if len(id) > 48 {
		id = id[:48]
	}
	if id == "" {
		id = "unnamed"
	}
	return id
}
