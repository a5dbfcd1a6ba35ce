package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/supersonic-electronic/AI-sub001/concept"
	"github.com/supersonic-electronic/AI-sub001/ontology"
)

// Publisher implements ontology.Ontology and ontology.ConceptRemover by
// publishing concept triples to NATS JetStream. A nil NATS connection
// degrades gracefully: updates are tracked locally and publishing is
// skipped.
//
// Safe for concurrent use; batch workers call it from multiple goroutines.
type Publisher struct {
	js     jetstream.JetStream
	logger *slog.Logger
	source string

	// docEntities indexes entity IDs by document ID so removal can name
	// what a document contributed.
	mu          sync.Mutex
	docEntities map[string][]string
}

// NewPublisher creates a graph publisher. nc may be nil for degraded,
// publish-free operation.
func NewPublisher(nc *nats.Conn, source string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if source == "" {
		source = "mathgraph.ingest"
	}

	p := &Publisher{
		logger:      logger,
		source:      source,
		docEntities: make(map[string][]string),
	}

	if nc != nil {
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		p.js = js
	} else {
		logger.Warn("No NATS connection, graph publishing disabled")
	}

	return p, nil
}

// UpdateFromExtraction publishes every concept in an extraction result as
// an entity ingest message keyed to the document.
func (p *Publisher) UpdateFromExtraction(ctx context.Context, result *ontology.ExtractionResult, documentID string) error {
	if result == nil {
		return nil
	}

	now := time.Now()
	entityIDs := make([]string, 0, len(result.Concepts))

	for _, c := range result.Concepts {
		entityID := ConceptEntityID(c.Name)
		entityIDs = append(entityIDs, entityID)

		msg := EntityIngestMessage{
			ID:        entityID,
			Triples:   ConceptTriples(c, entityID, p.source, documentID, now),
			UpdatedAt: now,
		}

		if err := p.publish(ctx, IngestSubject, msg); err != nil {
			return fmt.Errorf("publish concept %s: %w", c.Name, err)
		}
	}

	p.mu.Lock()
	p.docEntities[documentID] = entityIDs
	p.mu.Unlock()

	p.logger.Debug("Published extraction to graph",
		"document_id", documentID,
		"concepts", len(result.Concepts))
	return nil
}

// RemoveDocumentConcepts publishes a removal message for every entity the
// document contributed and forgets the association.
func (p *Publisher) RemoveDocumentConcepts(ctx context.Context, documentID string) error {
	p.mu.Lock()
	entityIDs := p.docEntities[documentID]
	delete(p.docEntities, documentID)
	p.mu.Unlock()

	if len(entityIDs) == 0 {
		return nil
	}

	msg := EntityRemoveMessage{
		DocumentID: documentID,
		EntityIDs:  entityIDs,
		RemovedAt:  time.Now(),
	}
	if err := p.publish(ctx, RemoveSubject, msg); err != nil {
		return fmt.Errorf("publish removal for %s: %w", documentID, err)
	}

	p.logger.Debug("Removed document concepts from graph",
		"document_id", documentID,
		"entities", len(entityIDs))
	return nil
}

// DocumentEntities returns the entity IDs recorded for a document.
func (p *Publisher) DocumentEntities(documentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.docEntities[documentID]...)
}

func (p *Publisher) publish(ctx context.Context, subject string, msg any) error {
	if p.js == nil {
		return nil // Graceful degradation without a NATS connection.
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return err
	}
	return nil
}

// ConceptTriples builds the triple set describing one concept.
func ConceptTriples(c *concept.Concept, entityID, source, documentID string, now time.Time) []Triple {
	mk := func(predicate string, object any) Triple {
		return Triple{
			Subject:    entityID,
			Predicate:  predicate,
			Object:     object,
			Source:     source,
			Timestamp:  now,
			Confidence: c.Confidence,
		}
	}

	triples := []Triple{
		mk(PredicateName, c.Name),
		mk(PredicateType, c.ConceptType),
		mk(PredicateSourceDocument, documentID),
	}

	if c.Description != "" {
		triples = append(triples, mk(PredicateDescription, c.Description))
	}
	if c.Definition != "" {
		triples = append(triples, mk(PredicateDefinition, c.Definition))
	}
	if c.Symbol != "" {
		triples = append(triples, mk(PredicateSymbol, c.Symbol))
	}
	if latex, ok := c.Properties["latex"].(string); ok && latex != "" {
		triples = append(triples, mk(PredicateLaTeX, latex))
	}
	if group, ok := c.Properties["semantic_group"].(string); ok && group != "" {
		triples = append(triples, mk(PredicateSemanticGroup, group))
	}
	if c.MergedFrom > 0 {
		triples = append(triples, mk(PredicateMergedFrom, c.MergedFrom))
	}
	for _, rel := range c.Relationships {
		triples = append(triples, mk(PredicateRelated, rel.Target))
	}

	return triples
}
