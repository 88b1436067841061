package qdrant

import (
	"testing"

	"github.com/unimind/uniquery/internal/core/domain"
)

func TestEncodeSparseQueryDeterministic(t *testing.T) {
	v1 := encodeSparseQuery("Risk level for DOC_0001")
	v2 := encodeSparseQuery("Risk level for DOC_0001")
	if len(v1.Indices) != len(v2.Indices) || len(v1.Values) != len(v2.Values) {
		t.Fatalf("vector sizes mismatch: v1=%d/%d v2=%d/%d", len(v1.Indices), len(v1.Values), len(v2.Indices), len(v2.Values))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] {
			t.Fatalf("indices mismatch at %d: %d vs %d", i, v1.Indices[i], v2.Indices[i])
		}
		if v1.Values[i] != v2.Values[i] {
			t.Fatalf("values mismatch at %d: %f vs %f", i, v1.Values[i], v2.Values[i])
		}
	}
}

func TestEncodeSparseQuerySortsIndices(t *testing.T) {
	v := encodeSparseQuery("zulu alpha beta gamma")
	if len(v.Indices) == 0 {
		t.Fatalf("expected non-empty sparse vector")
	}
	for i := 1; i < len(v.Indices); i++ {
		if v.Indices[i-1] > v.Indices[i] {
			t.Fatalf("indices not sorted at %d: %d > %d", i, v.Indices[i-1], v.Indices[i])
		}
	}
}

func TestEncodeSparseQueryEmptyNoiseInput(t *testing.T) {
	v := encodeSparseQuery("___---!!!")
	if len(v.Indices) != 0 || len(v.Values) != 0 {
		t.Fatalf("expected empty sparse vector, got %+v", v)
	}
}

func TestLexicalTokensKeepNonLatinScripts(t *testing.T) {
	tokens := lexicalTokens("Привет DOC_0001 версия-2")
	want := map[string]bool{"привет": false, "doc": false, "0001": false, "версия": false, "2": false}
	for _, tok := range tokens {
		if _, ok := want[tok]; ok {
			want[tok] = true
		}
	}
	for tok, found := range want {
		if !found {
			t.Fatalf("expected token %q, got %v", tok, tokens)
		}
	}
}

func TestEncodeSparseDocumentBoostsFilenameTerms(t *testing.T) {
	inBody := encodeSparseDocument(domain.DocumentChunk{Text: "quarterly"})
	inName := encodeSparseDocument(domain.DocumentChunk{Filename: "quarterly.md"})

	if len(inBody.Values) != 1 {
		t.Fatalf("expected a single body term, got %+v", inBody)
	}
	idx := inBody.Indices[0]
	var nameValue float32
	for i, candidate := range inName.Indices {
		if candidate == idx {
			nameValue = inName.Values[i]
		}
	}
	if nameValue == 0 {
		t.Fatalf("filename vector missing the shared term: %+v", inName)
	}
	if nameValue <= inBody.Values[0] {
		t.Fatalf("expected filename term boosted above body term: %f <= %f", nameValue, inBody.Values[0])
	}
}
