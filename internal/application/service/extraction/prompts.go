package extraction

// Prompt templates for the extraction model calls. Each call asks for JSON
// only; the generator layer enforces decoding and retries.

const mentionSystemPrompt = `You are an information extraction assistant. ` +
	`You identify entity mentions in text and answer with JSON only, no prose.`

const mentionUserPrompt = `Identify every entity mention in the following text. A mention is a surface form
referring to a person, organization, place, product, event, or other nameable thing.
For each mention include a short context snippet from the text around it.

Text:
%s

Answer with a JSON object of the form:
{"mentions": [{"mention": "<surface form>", "context": "<short surrounding text>"}]}`

const entitySystemPrompt = `You are an information extraction assistant producing typed entities for a
knowledge graph. You answer with JSON only, no prose.`

const entityUserPrompt = `Extract the entities appearing in the text below. Assign each entity:
- "id": a short identifier like "e1", "e2". Reuse the same id for the same real-world entity.
- "mention": its primary surface form in the text.
- "types": one or more class IRIs chosen ONLY from the candidate classes.
- "attributes": literal values keyed by property IRI, chosen ONLY from the candidate datatype properties.
- "spans": character offsets of mentions within the text when you can determine them.

Candidate classes:
%s

Candidate datatype properties:
%s

Text:
%s

Answer with a JSON object of the form:
{"entities": [{"id": "e1", "mention": "...", "types": ["<class iri>"], "attributes": {"<property iri>": "value"},
"spans": [{"text": "...", "start_char": 0, "end_char": 4}]}]}`

const entityGroundingSystemPrompt = `You verify whether extracted entities are actually supported by a text.
You answer with JSON only, no prose.`

const entityGroundingUserPrompt = `For each entity below, decide whether the text genuinely mentions it,
and give a confidence between 0 and 1.

Text:
%s

Entities:
%s

Answer with a JSON object of the form:
{"results": [{"id": "e1", "grounded": true, "confidence": 0.95}]}`

const relationSystemPrompt = `You are an information extraction assistant producing typed relations for a
knowledge graph. You answer with JSON only, no prose.`

const relationUserPrompt = `Extract relations between the entities below that the text supports. Use ONLY
the listed properties as predicates. The subject must be an entity id. For object properties the object
is an entity id; for datatype properties the object is a literal value. Quote the supporting text as evidence.

Text:
%s

Entities:
%s

Properties:
%s

Answer with a JSON object of the form:
{"relations": [{"subject_id": "e1", "predicate": "<property iri>", "object_id": "e2",
"object_literal": null, "evidence": {"text": "...", "start_char": 0, "end_char": 10}}]}
Use "object_literal": {"value": "...", "datatype": "<xsd iri>"} instead of "object_id" for literal objects.`

const relationGroundingSystemPrompt = `You verify whether extracted relations are actually supported by a text.
You answer with JSON only, no prose.`

const relationGroundingUserPrompt = `For each relation below, decide whether the text genuinely states it,
and give a confidence between 0 and 1. Be strict: a relation that is merely plausible but not stated is not grounded.

Text:
%s

Relations:
%s

Answer with a JSON object of the form:
{"results": [{"index": 0, "grounded": true, "confidence": 0.9}]}`
