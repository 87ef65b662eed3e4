package ontology

import (
	"strings"
	"unicode"

	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/types"
)

// ClassDocument projects a class into the text form consumed by the lexical
// and vector indexes. The layout is a contract: primary label first, every
// SKOS label on its own line, then definition, scope note and example, then
// the property/hierarchy summary lines.
func ClassDocument(c *types.ClassDefinition) string {
	var lines []string

	primary := c.Label
	if len(c.PrefLabels) > 0 {
		primary = c.PrefLabels[0]
	}
	lines = append(lines, primary)

	for _, l := range c.PrefLabels {
		lines = append(lines, l)
	}
	for _, l := range c.AltLabels {
		lines = append(lines, l)
	}
	for _, l := range c.HiddenLabels {
		lines = append(lines, l)
	}

	if c.Definition != "" {
		lines = append(lines, c.Definition)
	} else if c.Comment != "" {
		lines = append(lines, c.Comment)
	}
	if c.ScopeNote != "" {
		lines = append(lines, c.ScopeNote)
	}
	if c.Example != "" {
		lines = append(lines, c.Example)
	}

	if len(c.Properties) > 0 {
		lines = append(lines, "Properties: "+joinLocalNames(c.Properties))
	}
	if len(c.Broader) > 0 {
		lines = append(lines, "Broader: "+joinLocalNames(c.Broader))
	}
	if len(c.Narrower) > 0 {
		lines = append(lines, "Narrower: "+joinLocalNames(c.Narrower))
	}
	if len(c.Related) > 0 {
		lines = append(lines, "Related: "+joinLocalNames(c.Related))
	}

	return strings.Join(lines, "\n")
}

// PropertyDocument projects a property into its retrieval text form,
// mirroring ClassDocument with Domain/Range summary lines.
func PropertyDocument(p *types.PropertyDefinition) string {
	var lines []string

	primary := p.Label
	if len(p.PrefLabels) > 0 {
		primary = p.PrefLabels[0]
	}
	lines = append(lines, primary)

	for _, l := range p.PrefLabels {
		lines = append(lines, l)
	}
	for _, l := range p.AltLabels {
		lines = append(lines, l)
	}
	for _, l := range p.HiddenLabels {
		lines = append(lines, l)
	}

	if p.Definition != "" {
		lines = append(lines, p.Definition)
	} else if p.Comment != "" {
		lines = append(lines, p.Comment)
	}
	if p.ScopeNote != "" {
		lines = append(lines, p.ScopeNote)
	}
	if p.Example != "" {
		lines = append(lines, p.Example)
	}

	if len(p.Domain) > 0 {
		lines = append(lines, "Domain: "+joinLocalNames(p.Domain))
	}
	if len(p.Range) > 0 {
		lines = append(lines, "Range: "+joinLocalNames(p.Range))
	}

	return strings.Join(lines, "\n")
}

// joinLocalNames reduces IRIs to local names, expands camelCase into words
// when the expansion adds information, and joins with " | ".
func joinLocalNames(iris []types.IRI) string {
	return strings.Join(common.MapSlice(iris, func(iri types.IRI) string {
		local := types.LocalName(iri)
		if split := SplitCamelCase(local); !strings.EqualFold(split, local) {
			return split
		}
		return local
	}), " | ")
}

// SplitCamelCase turns "hasHomeAddress" into "has Home Address". Returns the
// input unchanged when it contains no case transitions.
func SplitCamelCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
