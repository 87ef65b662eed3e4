// Package extraction implements the streaming document-to-graph pipeline:
// chunking, mention and entity extraction, candidate class retrieval,
// grounding, property scoping, relation extraction and the monoid merge of
// per-chunk fragments.
package extraction

import (
	"strings"
	"unicode"

	"github.com/semweave/semweave/internal/types"
)

// Chunker splits source text into chunks that respect sentence boundaries
// up to a maximum size. Offsets are rune positions into the original text so
// evidence spans survive chunking.
type Chunker struct{}

// NewChunker creates a Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk splits text according to the config. Empty text yields no chunks.
func (c *Chunker) Chunk(text string, config types.ChunkingConfig) []types.TextChunk {
	if text == "" {
		return []types.TextChunk{}
	}
	maxSize := config.MaxChunkSize
	if maxSize <= 0 {
		maxSize = 2000
	}

	runes := []rune(text)
	if !config.PreserveSentences {
		return hardSplit(runes, maxSize)
	}

	var chunks []types.TextChunk
	sentences := splitSentences(runes)

	start := 0  // start offset of the chunk being built
	cursor := 0 // end of the last sentence taken into the chunk
	for _, sentEnd := range sentences {
		if sentEnd-start > maxSize {
			if cursor > start {
				chunks = appendChunk(chunks, runes, start, cursor)
				start = cursor
			}
			// A single sentence longer than the budget is split hard.
			for sentEnd-start > maxSize {
				chunks = appendChunk(chunks, runes, start, start+maxSize)
				start += maxSize
			}
		}
		cursor = sentEnd
	}
	if cursor > start {
		chunks = appendChunk(chunks, runes, start, cursor)
		start = cursor
	}
	if start < len(runes) {
		chunks = appendChunk(chunks, runes, start, len(runes))
	}
	return chunks
}

// appendChunk adds runes[start:end) as a chunk unless it is all whitespace.
func appendChunk(chunks []types.TextChunk, runes []rune, start, end int) []types.TextChunk {
	segment := string(runes[start:end])
	if strings.TrimSpace(segment) == "" {
		return chunks
	}
	return append(chunks, types.TextChunk{
		Index:       len(chunks),
		Text:        segment,
		StartOffset: start,
		EndOffset:   end,
	})
}

func hardSplit(runes []rune, maxSize int) []types.TextChunk {
	var chunks []types.TextChunk
	for start := 0; start < len(runes); start += maxSize {
		end := min(start+maxSize, len(runes))
		chunks = appendChunk(chunks, runes, start, end)
	}
	return chunks
}

// splitSentences returns the end offset (exclusive) of every sentence.
// A sentence ends at '.', '!', '?' or their CJK equivalents when followed by
// whitespace or end of text; trailing whitespace belongs to the sentence so
// chunks tile the document exactly.
func splitSentences(runes []rune) []int {
	var ends []int
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		terminal := r == '.' || r == '!' || r == '?' || r == '。' || r == '！' || r == '？'
		if !terminal {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		end := i + 1
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		ends = append(ends, end)
		i = end - 1
	}
	if len(ends) == 0 || ends[len(ends)-1] < len(runes) {
		ends = append(ends, len(runes))
	}
	return ends
}
