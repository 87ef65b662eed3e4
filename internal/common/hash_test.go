package common

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestHashEmbeddingKeyShape(t *testing.T) {
	key := HashEmbeddingKey("some text", "class-document")
	assert.Regexp(t, hexRegex, key)
}

func TestHashEmbeddingKeyDeterministic(t *testing.T) {
	a := HashEmbeddingKey("text", "task")
	b := HashEmbeddingKey("text", "task")
	assert.Equal(t, a, b)
}

func TestHashSeparatorPreventsBoundaryCollisions(t *testing.T) {
	// Without a separator "abc"+"xyz" and "ab"+"cxyz" would collide
	assert.NotEqual(t, HashEmbeddingKey("abc", "xyz"), HashEmbeddingKey("ab", "cxyz"))
	assert.NotEqual(t, HashEmbeddingKey("a", "bc"), HashEmbeddingKey("ab", "c"))
	assert.NotEqual(t, HashEmbeddingKey("", "ab"), HashEmbeddingKey("ab", ""))
}

func TestHashKeyFieldSensitivity(t *testing.T) {
	base := HashKey("s", "p", "o", "d")
	seen := map[string]bool{base: true}
	for i, parts := range [][]string{
		{"S", "p", "o", "d"},
		{"s", "P", "o", "d"},
		{"s", "p", "O", "d"},
		{"s", "p", "o", "D"},
	} {
		h := HashKey(parts...)
		assert.False(t, seen[h], "variant %d collided", i)
		seen[h] = true
	}
}

func TestShortHashLength(t *testing.T) {
	assert.Len(t, ShortHash("a", "b"), 12)
	for i := 0; i < 50; i++ {
		h := ShortHash(fmt.Sprintf("subject-%d", i), "p", "o", "doc")
		assert.Regexp(t, `^[0-9a-f]{12}$`, h)
	}
}
