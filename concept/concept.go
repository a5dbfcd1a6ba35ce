// Package concept defines the concept data model shared by extraction,
// deduplication, and graph publishing.
package concept

import (
	"path/filepath"
	"strings"
	"time"
)

// Relationship links a concept to another concept or external entity.
type Relationship struct {
	// Type is the relationship kind (e.g., "related_to", "defined_by").
	Type string `json:"type"`

	// Target is the name or ID of the related entity.
	Target string `json:"target"`

	// Direction is "outgoing" or "incoming".
	Direction string `json:"direction"`
}

// Key returns the deduplication key for a relationship.
func (r Relationship) Key() string {
	return r.Type + "|" + r.Target + "|" + r.Direction
}

// Concept is a candidate or committed knowledge-graph concept.
//
// Deduplication never mutates concepts in place: merge operations return new
// instances and leave their inputs untouched.
type Concept struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ConceptType string `json:"concept_type"`
	Description string `json:"description,omitempty"`
	Definition  string `json:"definition,omitempty"`
	Symbol      string `json:"symbol,omitempty"`

	Properties    map[string]any `json:"properties,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Examples      []string       `json:"examples,omitempty"`

	// Confidence is the extraction (or post-merge) confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// SourceDocuments lists the document IDs this concept was extracted from.
	SourceDocuments []string `json:"source_documents,omitempty"`

	// SourceDocumentType, when set, overrides extension-based type inference.
	SourceDocumentType DocumentType `json:"source_document_type,omitempty"`

	// MergedFrom is the number of concepts folded into this one, zero if the
	// concept has never been through a merge.
	MergedFrom int `json:"merged_from,omitempty"`

	// PrimarySourceType and SourceTypes are populated by document-type-aware
	// deduplication.
	PrimarySourceType DocumentType   `json:"primary_source_type,omitempty"`
	SourceTypes       []DocumentType `json:"source_types,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Clone returns a deep copy of the concept.
func (c *Concept) Clone() *Concept {
	out := *c
	if c.Properties != nil {
		out.Properties = make(map[string]any, len(c.Properties))
		for k, v := range c.Properties {
			out.Properties[k] = v
		}
	}
	out.Relationships = append([]Relationship(nil), c.Relationships...)
	out.Examples = append([]string(nil), c.Examples...)
	out.SourceDocuments = append([]string(nil), c.SourceDocuments...)
	out.SourceTypes = append([]DocumentType(nil), c.SourceTypes...)
	return &out
}

// DocumentType identifies the source format of a document.
type DocumentType string

// Known document types, in descending default merge priority.
const (
	DocTypePDF      DocumentType = "pdf"
	DocTypeLaTeX    DocumentType = "latex"
	DocTypeDOCX     DocumentType = "docx"
	DocTypeHTML     DocumentType = "html"
	DocTypeXML      DocumentType = "xml"
	DocTypeEPUB     DocumentType = "epub"
	DocTypeMarkdown DocumentType = "markdown"
	DocTypeText     DocumentType = "text"
	DocTypeUnknown  DocumentType = "unknown"
)

// DocTypeFromPath infers a document type from a file path's extension.
func DocTypeFromPath(path string) DocumentType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return DocTypePDF
	case ".tex", ".latex":
		return DocTypeLaTeX
	case ".docx":
		return DocTypeDOCX
	case ".html", ".htm", ".xhtml":
		return DocTypeHTML
	case ".xml":
		return DocTypeXML
	case ".epub":
		return DocTypeEPUB
	case ".md", ".markdown":
		return DocTypeMarkdown
	case ".txt":
		return DocTypeText
	default:
		return DocTypeUnknown
	}
}

// SourceType returns the document type for a concept: the explicit override
// when present, otherwise the type inferred from the first source document.
func (c *Concept) SourceType() DocumentType {
	if c.SourceDocumentType != "" {
		return c.SourceDocumentType
	}
	if len(c.SourceDocuments) > 0 {
		return DocTypeFromPath(c.SourceDocuments[0])
	}
	return DocTypeUnknown
}
