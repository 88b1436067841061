package qdrant

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/unimind/uniquery/internal/core/domain"
)

// sparseVector is qdrant's wire shape for a hashed bag-of-words vector.
type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Lexical scoring parameters. Term weights saturate BM25-style so one term
// repeated through a chunk cannot drown out the rest; filename terms carry
// extra weight because users often refer to documents by name; the term cap
// bounds payload size for very large chunks.
const (
	termSaturationK = 1.2
	filenameWeight  = 1.5
	maxLexicalTerms = 256
)

// encodeSparseDocument builds the lexical vector for an indexed chunk.
// Chunks arrive language-tagged from plaintext, OCR and transcription
// pipelines, so tokenization must keep non-Latin scripts.
func encodeSparseDocument(chunk domain.DocumentChunk) sparseVector {
	freq := make(map[uint32]float64, 64)
	countTokens(freq, lexicalTokens(chunk.Text), 1.0)
	countTokens(freq, lexicalTokens(chunk.Filename), filenameWeight)
	return saturateTermFreq(freq)
}

func encodeSparseQuery(query string) sparseVector {
	freq := make(map[uint32]float64, 32)
	countTokens(freq, lexicalTokens(query), 1.0)
	return saturateTermFreq(freq)
}

func countTokens(freq map[uint32]float64, tokens []string, weight float64) {
	for _, token := range tokens {
		freq[termIndex(token)] += weight
	}
}

func saturateTermFreq(freq map[uint32]float64) sparseVector {
	if len(freq) == 0 {
		return sparseVector{}
	}

	indices := make([]uint32, 0, len(freq))
	for idx := range freq {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	if len(indices) > maxLexicalTerms {
		indices = indices[:maxLexicalTerms]
	}

	values := make([]float32, len(indices))
	for i, idx := range indices {
		tf := freq[idx]
		weight := tf * (termSaturationK + 1) / (tf + termSaturationK)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		values[i] = float32(weight)
	}

	return sparseVector{Indices: indices, Values: values}
}

// termIndex hashes a token into the sparse dimension space. Index zero is
// remapped so an empty vector stays distinguishable from one containing the
// zero-hash term.
func termIndex(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}

// lexicalTokens lowercases and splits on anything that is not a letter or a
// digit, using unicode classes rather than ASCII ranges: indexed documents
// are frequently not English.
func lexicalTokens(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return tokens
}
