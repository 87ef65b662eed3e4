package shacl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/models/chat"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/rdf"
	"github.com/semweave/semweave/internal/types"
)

// correctionChat scripts correction responses keyed by strategy.
type correctionChat struct {
	responses map[string]string
	err       error
}

func (c *correctionChat) GetModelName() string { return "fake" }
func (c *correctionChat) GetModelID() string   { return "fake" }

func (c *correctionChat) Chat(ctx context.Context, messages []chat.Message, opts *chat.ChatOptions) (*types.ChatResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	prompt := messages[len(messages)-1].Content
	for marker, response := range c.responses {
		if strings.Contains(prompt, marker) {
			return &types.ChatResponse{Content: response}, nil
		}
	}
	return &types.ChatResponse{Content: `{"strategy": "skip", "confidence": 0}`}, nil
}

func testCorrector(model chat.Chat) *Corrector {
	return NewCorrector(llm.NewGenerator(model, llm.RetrySchedule{MaxAttempts: 1}))
}

func testOntologyContext(t *testing.T) *ontology.Context {
	t.Helper()
	ont, err := ontology.Load(context.Background(), validatorOntology)
	require.NoError(t, err)
	return ont
}

func TestClassifyViolationDeterministic(t *testing.T) {
	cases := map[string]types.CorrectionStrategy{
		"missing required property: found 0 values":        types.StrategyGenerateValue,
		"too many values: found 3 values, maxCount is 1":   types.StrategyRemoveExcess,
		"wrong datatype: value has datatype xsd:integer":   types.StrategyCoerceDatatype,
		"wrong node kind: value must be a literal":         types.StrategyCoerceDatatype,
		"class mismatch: value is not an instance of ex:C": types.StrategyReclassifyEntity,
		"value does not match pattern [0-9]+":              types.StrategyReformatValue,
		"something entirely different":                     types.StrategySkip,
	}
	for message, expected := range cases {
		v := &types.ShaclViolation{Message: message}
		assert.Equal(t, expected, ClassifyViolation(v), "message %q", message)
		// Case-insensitive
		upper := &types.ShaclViolation{Message: strings.ToUpper(message)}
		assert.Equal(t, expected, ClassifyViolation(upper))
	}
}

func TestShouldApplyThreshold(t *testing.T) {
	ok := &types.Correction{Strategy: types.StrategyGenerateValue, Confidence: 0.5}
	assert.True(t, ok.ShouldApply())

	low := &types.Correction{Strategy: types.StrategyGenerateValue, Confidence: 0.49}
	assert.False(t, low.ShouldApply())

	skip := &types.Correction{Strategy: types.StrategySkip, Confidence: 0.99}
	assert.False(t, skip.ShouldApply())
}

func TestCorrectAllGenerateValue(t *testing.T) {
	ctx := context.Background()
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person .
`)
	report := &types.ShaclValidationReport{Violations: []types.ShaclViolation{{
		FocusNode: "http://kg.example/entity/e1",
		Path:      "http://example.org/onto#name",
		Message:   "missing required property: found 0 values for name, minCount is 1",
		Severity:  types.SeverityViolation,
	}}}

	model := &correctionChat{responses: map[string]string{
		`"generate-value"`: `{"strategy": "generate-value", "focus_node": "http://kg.example/entity/e1",
			"path": "http://example.org/onto#name", "new_value": "Unknown",
			"explanation": "filled missing name", "confidence": 0.9}`,
	}}

	batch, err := testCorrector(model).CorrectAll(ctx, report, data, testOntologyContext(t), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.CorrectedCount)
	assert.Equal(t, 0, batch.SkippedCount)
	assert.True(t, batch.AllCorrected)
	assert.InDelta(t, 1.0, batch.SuccessRate, 1e-9)

	// The triple landed in the store
	quads, err := data.GetQuads(ctx,
		rdf.IRIPattern("http://kg.example/entity/e1"),
		rdf.IRIPattern("http://example.org/onto#name"), nil, "")
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, "Unknown", quads[0].Object.Value)
}

func TestCorrectAllCoerceDatatypeReplacesValue(t *testing.T) {
	ctx := context.Background()
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:name "42"^^xsd:integer .
`)
	report := &types.ShaclValidationReport{Violations: []types.ShaclViolation{{
		FocusNode: "http://kg.example/entity/e1",
		Path:      "http://example.org/onto#name",
		Value:     "42",
		Message:   "wrong datatype: value \"42\" of name has datatype xsd:integer, expected xsd:string",
		Severity:  types.SeverityViolation,
	}}}

	model := &correctionChat{responses: map[string]string{
		`"coerce-datatype"`: `{"strategy": "coerce-datatype", "focus_node": "http://kg.example/entity/e1",
			"path": "http://example.org/onto#name", "original_value": "42", "new_value": "42",
			"new_type": "http://www.w3.org/2001/XMLSchema#string",
			"explanation": "converted to string", "confidence": 0.85}`,
	}}

	batch, err := testCorrector(model).CorrectAll(ctx, report, data, testOntologyContext(t), 1)
	require.NoError(t, err)
	require.Equal(t, 1, batch.CorrectedCount)

	quads, err := data.GetQuads(ctx,
		rdf.IRIPattern("http://kg.example/entity/e1"),
		rdf.IRIPattern("http://example.org/onto#name"), nil, "")
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, rdf.XSDString, quads[0].Object.Datatype)
}

func TestCorrectAllReclassify(t *testing.T) {
	ctx := context.Background()
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e2 a ex:Person .
`)
	report := &types.ShaclValidationReport{Violations: []types.ShaclViolation{{
		FocusNode: "http://kg.example/entity/e2",
		Path:      "http://example.org/onto#worksFor",
		Value:     "http://kg.example/entity/e2",
		Message:   "class mismatch: value is not an instance of Company",
		Severity:  types.SeverityViolation,
	}}}

	model := &correctionChat{responses: map[string]string{
		`"reclassify-entity"`: `{"strategy": "reclassify-entity", "focus_node": "http://kg.example/entity/e2",
			"new_type": "http://example.org/onto#Company",
			"explanation": "entity is a company", "confidence": 0.8}`,
	}}

	batch, err := testCorrector(model).CorrectAll(ctx, report, data, testOntologyContext(t), 1)
	require.NoError(t, err)
	require.Equal(t, 1, batch.CorrectedCount)

	typeQuads, err := data.GetQuads(ctx,
		rdf.IRIPattern("http://kg.example/entity/e2"), rdf.IRIPattern(rdf.RDFType), nil, "")
	require.NoError(t, err)
	require.Len(t, typeQuads, 1)
	assert.Equal(t, "http://example.org/onto#Company", typeQuads[0].Object.Value)
}

func TestCorrectAllRemoveExcessIsNotApplied(t *testing.T) {
	ctx := context.Background()
	data := storeFromTurtle(t, `
@prefix ex: <http://example.org/onto#> .
@prefix kg: <http://kg.example/entity/> .
kg:e1 a ex:Person ; ex:worksFor kg:c1, kg:c2 .
`)
	sizeBefore, _ := data.Size(ctx)

	report := &types.ShaclValidationReport{Violations: []types.ShaclViolation{{
		FocusNode: "http://kg.example/entity/e1",
		Path:      "http://example.org/onto#worksFor",
		Message:   "too many values: found 2 values for worksFor, maxCount is 1",
		Severity:  types.SeverityViolation,
	}}}

	model := &correctionChat{responses: map[string]string{
		`"remove-excess"`: `{"strategy": "remove-excess", "focus_node": "http://kg.example/entity/e1",
			"path": "http://example.org/onto#worksFor", "original_value": "http://kg.example/entity/c2",
			"explanation": "drop the second employer", "confidence": 0.9}`,
	}}

	batch, err := testCorrector(model).CorrectAll(ctx, report, data, testOntologyContext(t), 1)
	require.NoError(t, err)
	// remove-excess requires manual review: recorded but never applied
	assert.Equal(t, 0, batch.CorrectedCount)
	assert.Equal(t, 1, batch.SkippedCount)

	sizeAfter, _ := data.Size(ctx)
	assert.Equal(t, sizeBefore, sizeAfter)
}

func TestCorrectAllModelFailureDowngradesToSkip(t *testing.T) {
	ctx := context.Background()
	data := rdf.NewMemoryStore()
	report := &types.ShaclValidationReport{Violations: []types.ShaclViolation{{
		FocusNode: "http://kg.example/entity/e1",
		Path:      "http://example.org/onto#name",
		Message:   "missing required property: minCount is 1",
	}}}

	model := &correctionChat{err: &types.LLMSchemaError{ObjectName: "correction"}}

	batch, err := testCorrector(model).CorrectAll(ctx, report, data, testOntologyContext(t), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.CorrectedCount)
	assert.Equal(t, 1, batch.SkippedCount)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, types.StrategySkip, batch.Results[0].Correction.Strategy)
	assert.NotEmpty(t, batch.Results[0].Error)
}
