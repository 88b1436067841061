package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const (
	defaultCandidateLimit = 30

	semanticWeight = 0.8
	keywordWeight  = 0.2

	// Chunks pulled in for context around a direct hit score below the hit
	// itself so they cannot displace direct matches.
	adjacentScoreDiscount = 0.9
)

// DocumentSearchUseCase runs hybrid retrieval over the vector store: a
// semantic pass and a keyword pass fused by weighted score, optionally
// widened with the chunks adjacent to each hit.
type DocumentSearchUseCase struct {
	embedder   ports.Embedder
	store      ports.VectorStore
	candidates int
	expand     bool
}

func NewDocumentSearchUseCase(embedder ports.Embedder, store ports.VectorStore, candidates int, expand bool) *DocumentSearchUseCase {
	if candidates <= 0 {
		candidates = defaultCandidateLimit
	}
	return &DocumentSearchUseCase{
		embedder:   embedder,
		store:      store,
		candidates: candidates,
		expand:     expand,
	}
}

// Search returns at most maxResults chunks ranked by fused score. Either
// retrieval pass may fail without failing the search; only both failing
// yields an error.
func (uc *DocumentSearchUseCase) Search(ctx context.Context, query string, maxResults int, opts domain.SearchOptions) ([]domain.DocumentChunk, error) {
	if maxResults <= 0 {
		maxResults = domain.DefaultMaxResults
	}
	filter := domain.SearchFilter{
		Modalities: modalitiesFor(opts),
		Language:   opts.PreferredLanguage,
	}
	if len(filter.Modalities) == 0 {
		return nil, nil
	}

	var semantic []domain.DocumentChunk
	semanticFailed := false
	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("query embedding failed, keyword-only retrieval", "error", err)
		semanticFailed = true
	} else {
		semantic, err = uc.store.Search(ctx, vector, uc.candidates, filter)
		if err != nil {
			slog.Warn("semantic retrieval failed", "error", err)
			semanticFailed = true
			semantic = nil
		}
	}

	keyword, kwErr := uc.store.SearchLexical(ctx, query, uc.candidates, filter)
	if kwErr != nil {
		slog.Warn("keyword retrieval failed", "error", kwErr)
		keyword = nil
	}
	if semanticFailed && kwErr != nil {
		return nil, fmt.Errorf("document retrieval: all passes failed: %w", kwErr)
	}

	fused := fuseHybrid(semantic, keyword)
	if len(fused) > maxResults {
		fused = fused[:maxResults]
	}
	if uc.expand && len(fused) > 0 {
		fused = uc.expandAdjacent(ctx, fused, maxResults)
	}
	return fused, nil
}

func modalitiesFor(opts domain.SearchOptions) []domain.Modality {
	var out []domain.Modality
	if opts.EnableDocumentSearch {
		out = append(out, domain.ModalityText)
	}
	if opts.EnableImageSearch {
		out = append(out, domain.ModalityImage)
	}
	if opts.EnableAudioSearch {
		out = append(out, domain.ModalityAudio)
	}
	return out
}

// fuseHybrid unions the two ranked lists and scores every chunk as
// 0.8*semantic + 0.2*keyword after normalizing each list by its own maximum,
// so neither scoring scale dominates by magnitude alone.
func fuseHybrid(semantic, keyword []domain.DocumentChunk) []domain.DocumentChunk {
	semMax := maxScore(semantic, func(c domain.DocumentChunk) float64 { return c.SemanticScore })
	kwMax := maxScore(keyword, func(c domain.DocumentChunk) float64 { return c.KeywordScore })

	merged := make(map[string]domain.DocumentChunk, len(semantic)+len(keyword))
	for _, c := range semantic {
		c.SemanticScore = normalize(c.SemanticScore, semMax)
		merged[chunkKey(c)] = c
	}
	for _, c := range keyword {
		c.KeywordScore = normalize(c.KeywordScore, kwMax)
		if prev, ok := merged[chunkKey(c)]; ok {
			prev.KeywordScore = c.KeywordScore
			merged[chunkKey(c)] = prev
			continue
		}
		merged[chunkKey(c)] = c
	}

	out := make([]domain.DocumentChunk, 0, len(merged))
	for _, c := range merged {
		c.Score = semanticWeight*c.SemanticScore + keywordWeight*c.KeywordScore
		out = append(out, c)
	}
	sortChunks(out)
	return out
}

// expandAdjacent pulls the chunk before and after each hit so answers see
// surrounding context, discounted below the hit and capped at twice the
// requested size.
func (uc *DocumentSearchUseCase) expandAdjacent(ctx context.Context, hits []domain.DocumentChunk, maxResults int) []domain.DocumentChunk {
	present := make(map[string]bool, len(hits))
	wanted := make(map[string][]int)
	for _, c := range hits {
		present[chunkKey(c)] = true
	}
	for _, c := range hits {
		for _, idx := range []int{c.ChunkIndex - 1, c.ChunkIndex + 1} {
			if idx < 0 {
				continue
			}
			key := fmt.Sprintf("%s#%d", c.DocumentID, idx)
			if present[key] {
				continue
			}
			present[key] = true
			wanted[c.DocumentID] = append(wanted[c.DocumentID], idx)
		}
	}

	out := hits
	for docID, indices := range wanted {
		neighbors, err := uc.store.FetchChunks(ctx, docID, indices)
		if err != nil {
			slog.Warn("adjacent chunk fetch failed", "document_id", docID, "error", err)
			continue
		}
		base := baseScoreFor(hits, docID)
		for _, n := range neighbors {
			n.Score = base * adjacentScoreDiscount
			out = append(out, n)
		}
	}

	sortChunks(out)
	if limit := maxResults * 2; len(out) > limit {
		out = out[:limit]
	}
	return out
}

func baseScoreFor(hits []domain.DocumentChunk, docID string) float64 {
	for _, c := range hits {
		if c.DocumentID == docID {
			return c.Score
		}
	}
	return 0
}

func chunkKey(c domain.DocumentChunk) string {
	if c.ID != "" {
		return c.ID
	}
	return fmt.Sprintf("%s#%d", c.DocumentID, c.ChunkIndex)
}

func maxScore(chunks []domain.DocumentChunk, score func(domain.DocumentChunk) float64) float64 {
	var max float64
	for _, c := range chunks {
		if s := score(c); s > max {
			max = s
		}
	}
	return max
}

func normalize(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	if score < 0 {
		return 0
	}
	return score / max
}

func sortChunks(chunks []domain.DocumentChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}
