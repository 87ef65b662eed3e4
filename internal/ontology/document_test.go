package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semweave/semweave/internal/types"
)

func TestSplitCamelCase(t *testing.T) {
	cases := map[string]string{
		"hasHomeAddress": "has Home Address",
		"name":           "name",
		"URL":            "URL",
		"worksFor":       "works For",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, SplitCamelCase(input), "input %q", input)
	}
}

func TestClassDocumentForm(t *testing.T) {
	class := &types.ClassDefinition{
		ID:         "http://example.org/onto#Person",
		Label:      "Person",
		Comment:    "A human being.",
		PrefLabels: []string{"Human"},
		AltLabels:  []string{"Individual"},
		Definition: "A member of the species homo sapiens.",
		ScopeNote:  "Use for natural persons only.",
		Example:    "Marie Curie",
		Properties: []types.IRI{"http://example.org/onto#worksFor"},
		Broader:    []types.IRI{"http://example.org/onto#Agent"},
	}

	doc := ClassDocument(class)
	lines := strings.Split(doc, "\n")

	// Primary label prefers prefLabels[0] over label
	assert.Equal(t, "Human", lines[0])
	assert.Contains(t, lines, "Individual")
	// Definition wins over comment
	assert.Contains(t, doc, "A member of the species homo sapiens.")
	assert.NotContains(t, doc, "A human being.")
	assert.Contains(t, doc, "Use for natural persons only.")
	assert.Contains(t, doc, "Marie Curie")
	// IRIs reduced to local names, camelCase expanded
	assert.Contains(t, doc, "Properties: works For")
	assert.Contains(t, doc, "Broader: Agent")
}

func TestPropertyDocumentForm(t *testing.T) {
	property := &types.PropertyDefinition{
		ID:      "http://example.org/onto#worksFor",
		Label:   "works for",
		Comment: "Employment relation.",
		Domain:  []types.IRI{"http://example.org/onto#Person"},
		Range:   []types.IRI{"http://example.org/onto#Organization"},
	}

	doc := PropertyDocument(property)
	assert.True(t, strings.HasPrefix(doc, "works for"))
	assert.Contains(t, doc, "Employment relation.")
	assert.Contains(t, doc, "Domain: Person")
	assert.Contains(t, doc, "Range: Organization")
}
