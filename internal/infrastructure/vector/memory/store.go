// Package memory is the in-process vector store backend: cosine similarity
// for the dense pass and a BM25-style token score for the lexical pass. It
// backs development and tests; production deployments use the qdrant backend.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/unimind/uniquery/internal/core/domain"
)

const (
	lexK1         = 1.2
	filenameBoost = 1.5
)

type entry struct {
	chunk  domain.DocumentChunk
	vector []float32
}

type Store struct {
	mu      sync.RWMutex
	entries []entry
}

func New() *Store {
	return &Store{}
}

// IndexChunks replaces the document's entries so reprocessing never leaves
// stale chunks behind.
func (s *Store) IndexChunks(_ context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.chunk.DocumentID != doc.ID {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	for i, chunk := range chunks {
		s.entries = append(s.entries, entry{chunk: chunk, vector: vectors[i]})
	}
	return nil
}

func (s *Store) Search(_ context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DocumentChunk
	for _, e := range s.entries {
		if !matches(e.chunk, filter) {
			continue
		}
		score := cosine(queryVector, e.vector)
		if score <= 0 {
			continue
		}
		chunk := e.chunk
		chunk.SemanticScore = score
		out = append(out, chunk)
	}

	sortByScore(out, func(c domain.DocumentChunk) float64 { return c.SemanticScore })
	return truncate(out, limit), nil
}

func (s *Store) SearchLexical(_ context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error) {
	queryWeights := termWeights(queryText, "")
	if len(queryWeights) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DocumentChunk
	for _, e := range s.entries {
		if !matches(e.chunk, filter) {
			continue
		}
		score := dotWeights(queryWeights, termWeights(e.chunk.Text, e.chunk.Filename))
		if score <= 0 {
			continue
		}
		chunk := e.chunk
		chunk.KeywordScore = score
		out = append(out, chunk)
	}

	sortByScore(out, func(c domain.DocumentChunk) float64 { return c.KeywordScore })
	return truncate(out, limit), nil
}

func (s *Store) FetchChunks(_ context.Context, documentID string, indices []int) ([]domain.DocumentChunk, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	wanted := make(map[int]bool, len(indices))
	for _, idx := range indices {
		wanted[idx] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DocumentChunk
	for _, e := range s.entries {
		if e.chunk.DocumentID == documentID && wanted[e.chunk.ChunkIndex] {
			out = append(out, e.chunk)
		}
	}
	return out, nil
}

func matches(chunk domain.DocumentChunk, filter domain.SearchFilter) bool {
	if len(filter.Modalities) > 0 {
		found := false
		for _, m := range filter.Modalities {
			if chunk.Modality == m {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Language != "" && chunk.Language != filter.Language {
		return false
	}
	if filter.DocumentID != "" && chunk.DocumentID != filter.DocumentID {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// termWeights builds saturated term frequencies, the same weighting the
// qdrant backend encodes into its sparse vectors.
func termWeights(text, filename string) map[string]float64 {
	tf := make(map[string]float64)
	for _, tok := range tokenize(text) {
		tf[tok]++
	}
	for _, tok := range tokenize(filename) {
		tf[tok] += filenameBoost
	}
	for tok, f := range tf {
		tf[tok] = f * (lexK1 + 1) / (f + lexK1)
	}
	return tf
}

func dotWeights(a, b map[string]float64) float64 {
	var sum float64
	for tok, av := range a {
		sum += av * b[tok]
	}
	return sum
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func sortByScore(chunks []domain.DocumentChunk, score func(domain.DocumentChunk) float64) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if score(chunks[i]) != score(chunks[j]) {
			return score(chunks[i]) > score(chunks[j])
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}

func truncate(chunks []domain.DocumentChunk, limit int) []domain.DocumentChunk {
	if limit > 0 && len(chunks) > limit {
		return chunks[:limit]
	}
	return chunks
}
