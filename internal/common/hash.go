package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Content-addressed identifiers are SHA-256 based. Components are joined
// with a NUL separator so that ("abc","xyz") and ("ab","cxyz") never share a
// digest.
const hashSeparator = "\x00"

// HashKey returns the full 64-hex-char SHA-256 over the NUL-joined parts.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, hashSeparator)))
	return hex.EncodeToString(sum[:])
}

// HashEmbeddingKey is the cache key for an embedding of text under a given
// task type (e.g. "class-document", "chunk-query").
func HashEmbeddingKey(text, taskType string) string {
	return HashKey(text, taskType)
}

// ShortHash returns the first 12 hex chars of the SHA-256 over the parts.
// Used for claim and assertion identifiers.
func ShortHash(parts ...string) string {
	return HashKey(parts...)[:12]
}
