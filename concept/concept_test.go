package concept

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone_DeepCopies(t *testing.T) {
	original := &Concept{
		Name:            "Sharpe Ratio",
		Properties:      map[string]any{"latex": "SR"},
		Relationships:   []Relationship{{Type: "related_to", Target: "Volatility", Direction: "outgoing"}},
		Examples:        []string{"SR = 1.2"},
		SourceDocuments: []string{"/docs/a.pdf"},
	}

	clone := original.Clone()
	clone.Properties["latex"] = "changed"
	clone.Relationships[0].Target = "changed"
	clone.Examples[0] = "changed"
	clone.SourceDocuments[0] = "changed"

	assert.Equal(t, "SR", original.Properties["latex"])
	assert.Equal(t, "Volatility", original.Relationships[0].Target)
	assert.Equal(t, "SR = 1.2", original.Examples[0])
	assert.Equal(t, "/docs/a.pdf", original.SourceDocuments[0])
}

func TestRelationshipKey(t *testing.T) {
	a := Relationship{Type: "related_to", Target: "Beta", Direction: "outgoing"}
	b := Relationship{Type: "related_to", Target: "Beta", Direction: "incoming"}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, "related_to|Beta|outgoing", a.Key())
}

func TestDocTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want DocumentType
	}{
		{"paper.PDF", DocTypePDF},
		{"thesis.tex", DocTypeLaTeX},
		{"report.docx", DocTypeDOCX},
		{"page.xhtml", DocTypeHTML},
		{"feed.xml", DocTypeXML},
		{"book.epub", DocTypeEPUB},
		{"notes.md", DocTypeMarkdown},
		{"raw.txt", DocTypeText},
		{"image.png", DocTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DocTypeFromPath(tt.path), tt.path)
	}
}

func TestSourceType(t *testing.T) {
	c := &Concept{SourceDocuments: []string{"/docs/a.pdf"}}
	assert.Equal(t, DocTypePDF, c.SourceType())

	// Explicit type overrides extension inference.
	c.SourceDocumentType = DocTypeLaTeX
	assert.Equal(t, DocTypeLaTeX, c.SourceType())

	assert.Equal(t, DocTypeUnknown, (&Concept{}).SourceType())
}
