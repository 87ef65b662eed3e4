package extraction

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semweave/semweave/internal/models/chat"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/types"
)

const pipelineOntology = `
@prefix ex: <http://example.org/onto#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:Person a owl:Class ; rdfs:label "Person" ; rdfs:comment "A person mentioned in the news." .
ex:Company a owl:Class ; rdfs:label "Company" ; rdfs:comment "A commercial organization or company." .
ex:worksFor a owl:ObjectProperty ; rdfs:label "works for" ; rdfs:domain ex:Person ; rdfs:range ex:Company .
ex:name a owl:DatatypeProperty ; rdfs:label "name" ; rdfs:domain ex:Person ; rdfs:range xsd:string .
`

// fakeChat scripts the model side of the pipeline. It routes on prompt
// content and answers with canned JSON.
type fakeChat struct {
	relationConfidence float64
	entityConfidence   float64
	failMentionsWith   error
	calls              []string
}

func (f *fakeChat) GetModelName() string { return "fake" }
func (f *fakeChat) GetModelID() string   { return "fake" }

func (f *fakeChat) Chat(ctx context.Context, messages []chat.Message, opts *chat.ChatOptions) (*types.ChatResponse, error) {
	prompt := messages[len(messages)-1].Content

	reply := func(kind, content string) (*types.ChatResponse, error) {
		f.calls = append(f.calls, kind)
		return &types.ChatResponse{Content: content}, nil
	}

	switch {
	case strings.Contains(prompt, "Identify every entity mention"):
		if f.failMentionsWith != nil {
			return nil, f.failMentionsWith
		}
		return reply("mentions", `{"mentions": [
			{"mention": "Alice", "context": "Alice is a person"},
			{"mention": "Acme", "context": "Acme is a company"}]}`)

	case strings.Contains(prompt, "Extract the entities"):
		return reply("entities", `{"entities": [
			{"id": "e1", "mention": "Alice", "types": ["http://example.org/onto#Person"],
			 "attributes": {"http://example.org/onto#name": "Alice"},
			 "spans": [{"text": "Alice", "start_char": 0, "end_char": 5}]},
			{"id": "e2", "mention": "Acme", "types": ["http://example.org/onto#Company"], "attributes": {}},
			{"id": "e3", "mention": "Ghost", "types": ["http://example.org/onto#Unknown"], "attributes": {}}]}`)

	case strings.Contains(prompt, "decide whether the text genuinely mentions"):
		return reply("entity-grounding", fmt.Sprintf(`{"results": [
			{"id": "e1", "grounded": true, "confidence": %.2f},
			{"id": "e2", "grounded": true, "confidence": %.2f}]}`,
			f.entityConfidence, f.entityConfidence))

	case strings.Contains(prompt, "Extract relations"):
		return reply("relations", `{"relations": [
			{"subject_id": "e1", "predicate": "http://example.org/onto#worksFor", "object_id": "e2",
			 "evidence": {"text": "Alice works for Acme", "start_char": 0, "end_char": 20}},
			{"subject_id": "e2", "predicate": "http://example.org/onto#worksFor", "object_id": "e1"},
			{"subject_id": "e1", "predicate": "http://example.org/onto#salary", "object_id": "e2"}]}`)

	case strings.Contains(prompt, "decide whether the text genuinely states"):
		return reply("relation-grounding", fmt.Sprintf(
			`{"results": [{"index": 0, "grounded": true, "confidence": %.2f}]}`, f.relationConfidence))

	default:
		return nil, fmt.Errorf("unexpected prompt: %.80s", prompt)
	}
}

func newTestDriver(t *testing.T, model chat.Chat) (*Driver, *ants.Pool) {
	t.Helper()
	ont, err := ontology.Load(context.Background(), pipelineOntology)
	require.NoError(t, err)

	generator := llm.NewGenerator(model, llm.RetrySchedule{MaxAttempts: 1})
	pool, err := ants.NewPool(8)
	require.NoError(t, err)

	driver := NewDriver(
		ont,
		NewMentionExtractor(generator),
		NewClassRetriever(ont),
		NewEntityExtractor(generator),
		NewGrounder(generator),
		NewRelationExtractor(generator),
		NewMerger(),
		pool,
	)
	return driver, pool
}

func runPipeline(t *testing.T, model chat.Chat, threshold float64) (*types.KnowledgeGraph, error) {
	t.Helper()
	driver, pool := newTestDriver(t, model)
	defer pool.Release()

	chunks := []types.TextChunk{{Index: 0, Text: "Alice works for Acme.", StartOffset: 0, EndOffset: 21}}
	return driver.Run(context.Background(), chunks, &types.RunConfig{
		Concurrency:         2,
		GroundingThreshold:  threshold,
		CandidateClassLimit: 10,
	})
}

func TestPipelineProducesGroundedGraph(t *testing.T) {
	model := &fakeChat{relationConfidence: 0.9, entityConfidence: 0.95}
	graph, err := runPipeline(t, model, 0.8)
	require.NoError(t, err)

	// e3 had no accepted type and is dropped; e1 and e2 survive
	require.Len(t, graph.Entities, 2)
	byID := map[string]*types.Entity{}
	for _, e := range graph.Entities {
		byID[e.ID] = e
	}
	require.Contains(t, byID, "e1")
	require.Contains(t, byID, "e2")
	assert.Equal(t, []types.IRI{"http://example.org/onto#Person"}, byID["e1"].Types)
	assert.InDelta(t, 0.95, byID["e1"].GroundingConfidence, 1e-9)
	assert.Equal(t, "Alice", byID["e1"].Attributes["http://example.org/onto#name"])

	// Of three proposed relations: the reversed one fails the domain check,
	// the unknown predicate is out of scope, and only the grounded first
	// one survives filtering.
	require.Len(t, graph.Relations, 1)
	r := graph.Relations[0]
	assert.Equal(t, "e1", r.SubjectID)
	assert.Equal(t, "http://example.org/onto#worksFor", string(r.Predicate))
	assert.Equal(t, "e2", r.ObjectID)
	require.NotNil(t, r.Evidence)
	assert.Equal(t, "Alice works for Acme", r.Evidence.Text)
}

func TestGroundingThresholdBoundary(t *testing.T) {
	// 0.79 is below the 0.8 threshold: relation dropped
	below, err := runPipeline(t, &fakeChat{relationConfidence: 0.79, entityConfidence: 0.9}, 0.8)
	require.NoError(t, err)
	assert.Empty(t, below.Relations)

	// 0.80 meets the threshold: relation kept
	at, err := runPipeline(t, &fakeChat{relationConfidence: 0.80, entityConfidence: 0.9}, 0.8)
	require.NoError(t, err)
	assert.Len(t, at.Relations, 1)
}

func TestSystemicErrorAbortsRun(t *testing.T) {
	model := &fakeChat{failMentionsWith: &types.LLMRateLimitError{Model: "fake"}}
	_, err := runPipeline(t, model, 0.8)
	require.Error(t, err)
	var extractionErr *types.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	var rateLimit *types.LLMRateLimitError
	assert.ErrorAs(t, err, &rateLimit)
}

func TestContentErrorYieldsEmptyFragment(t *testing.T) {
	// A schema failure on mention extraction is a content error: the chunk
	// contributes nothing but the run succeeds.
	model := &fakeChat{failMentionsWith: &types.LLMSchemaError{ObjectName: "mentions"}}
	graph, err := runPipeline(t, model, 0.8)
	require.NoError(t, err)
	assert.True(t, graph.IsEmpty())
}

func TestWorkflowEmptyText(t *testing.T) {
	model := &fakeChat{}
	driver, pool := newTestDriver(t, model)
	defer pool.Release()

	workflow := NewWorkflow(NewChunker(), driver)
	graph, err := workflow.Extract(context.Background(), "", &types.RunConfig{})
	require.NoError(t, err)
	assert.True(t, graph.IsEmpty())
	assert.Empty(t, model.calls)
}

func TestCancellationDiscardsPartialResults(t *testing.T) {
	model := &fakeChat{relationConfidence: 0.9, entityConfidence: 0.9}
	driver, pool := newTestDriver(t, model)
	defer pool.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chunks := []types.TextChunk{{Index: 0, Text: "Alice works for Acme.", StartOffset: 0, EndOffset: 21}}
	graph, err := driver.Run(ctx, chunks, &types.RunConfig{Concurrency: 1})
	assert.Nil(t, graph)
	assert.ErrorIs(t, err, context.Canceled)
}
