package service

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// lexicalEmbedding deterministically maps text to a unit vector by hashing
// tokens into buckets. It is a poor substitute for a learned embedding but
// keeps identical texts close together, which is enough for the semantic
// signal to behave sensibly when the real embedder is down. The same
// function covers both documents and queries so the two stay comparable.
func lexicalEmbedding(text string, dims int) []float32 {
	if dims <= 0 {
		dims = 384
	}
	vec := make([]float32, dims)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(dims))
		// Alternate sign from a higher bit so collisions can cancel
		// instead of always accumulating.
		if sum&0x80000000 != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// tokenize lowercases and splits text on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// buildEmbeddingText assembles the document text fed to the embedder:
// the OCR text and description. The filename stem is a last resort, used
// only when both stages came back empty, so every processed record stays
// searchable by something without filename tokens inflating the semantic
// signal of records that have real content.
func buildEmbeddingText(filename, ocrText, description string) string {
	var parts []string
	if ocrText != "" {
		parts = append(parts, ocrText)
	}
	if description != "" {
		parts = append(parts, description)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	stem := filename
	if idx := strings.LastIndex(stem, "."); idx > 0 {
		stem = stem[:idx]
	}
	return strings.Join(tokenize(stem), " ")
}
