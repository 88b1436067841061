package chunking

import "testing"

func TestSplitterEmptyText(t *testing.T) {
	if chunks := NewSplitter(100, 10).Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestSplitterWindowsOverlap(t *testing.T) {
	splitter := NewSplitter(10, 4)
	chunks := splitter.Split("abcdefghijklmnopqrst")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("unexpected first chunk %q", chunks[0])
	}
	// Step is size-overlap, so the second window re-reads the tail of the
	// first.
	if chunks[1][:4] != "ghij" {
		t.Fatalf("expected 4-rune overlap, got %q", chunks[1])
	}
}

func TestSplitterClampsUnusableConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.size != defaultChunkSize || s.overlap != 0 {
		t.Fatalf("expected defaults for unusable config, got size=%d overlap=%d", s.size, s.overlap)
	}

	s = NewSplitter(10, 12)
	if s.overlap != 10/overlapDenominator {
		t.Fatalf("expected overlap clamped below the window, got %d", s.overlap)
	}
}

func TestSplitterShortTextSingleChunk(t *testing.T) {
	chunks := NewSplitter(100, 10).Split("short")
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}
