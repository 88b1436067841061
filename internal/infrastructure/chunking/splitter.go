package chunking

import "strings"

// Fallback sizes when the configured CHUNK_SIZE/CHUNK_OVERLAP are unusable.
// 900 runes fits comfortably inside the embedding model context with room
// for the heading prefix the markdown splitter prepends.
const (
	defaultChunkSize   = 900
	overlapDenominator = 4
)

// Splitter cuts text into fixed rune windows with overlap. Windows are
// rune-based so multi-byte scripts split on character boundaries.
type Splitter struct {
	size    int
	overlap int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / overlapDenominator
	}
	return &Splitter{size: chunkSize, overlap: overlap}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := s.size - s.overlap
	if stride <= 0 {
		stride = s.size
	}

	out := make([]string, 0, len(runes)/stride+1)
	for start := 0; start < len(runes); start += stride {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		if window := strings.TrimSpace(string(runes[start:end])); window != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
