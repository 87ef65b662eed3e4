package types

// TextChunk is a contiguous slice of the source document. Offsets are
// 0-indexed character positions into the original text, end exclusive, so
// downstream evidence spans stay in the coordinate system of the whole
// document.
type TextChunk struct {
	// Dense chunk index starting at 0
	Index int `json:"index"`
	// Chunk text
	Text string `json:"text"`
	// Start offset in characters into the original document
	StartOffset int `json:"start_offset"`
	// End offset in characters, exclusive; EndOffset-StartOffset equals the rune length of Text
	EndOffset int `json:"end_offset"`
}

// ChunkingConfig controls how documents are split into chunks.
type ChunkingConfig struct {
	// Maximum chunk size in characters
	MaxChunkSize int `mapstructure:"max_chunk_size" yaml:"max_chunk_size" json:"max_chunk_size"`
	// Prefer sentence boundaries when splitting
	PreserveSentences bool `mapstructure:"preserve_sentences" yaml:"preserve_sentences" json:"preserve_sentences"`
}

// TextSpan locates a piece of evidence inside the original document.
type TextSpan struct {
	// Quoted text of the span
	Text string `json:"text"`
	// Start offset in characters, 0-indexed
	StartChar int `json:"start_char"`
	// End offset in characters, exclusive
	EndChar int `json:"end_char"`
	// Optional grounding confidence in [0,1]
	Confidence float64 `json:"confidence,omitempty"`
}
