package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/unimind/uniquery/internal/core/domain"
)

type textProviderFake struct {
	prompt    string
	response  string
	err       error
	jsonCalls int
}

func (f *textProviderFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *textProviderFake) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.jsonCalls++
	return f.Generate(nil, prompt)
}

type embedProviderFake struct {
	vectors [][]float32
	texts   []string
	err     error
}

func (f *embedProviderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func TestClassifierParsesIntent(t *testing.T) {
	provider := &textProviderFake{response: `Here you go: {"confidence":0.82,"databases":["sales"],"tables":["orders"],"reason":"aggregation"}`}
	classifier := NewClassifier(provider)

	schemas := []domain.SchemaMetadata{{
		Database: "sales",
		Dialect:  "postgres",
		Tables:   []domain.TableMetadata{{Name: "orders", Columns: []domain.ColumnMetadata{{Name: "id", DataType: "bigint"}}}},
	}}
	intent, err := classifier.ClassifyIntent(context.Background(), "how many orders", "User: hi\nAssistant: hello", schemas)
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if intent.Confidence != 0.82 {
		t.Fatalf("expected confidence 0.82, got %f", intent.Confidence)
	}
	if len(intent.Databases) != 1 || intent.Databases[0] != "sales" {
		t.Fatalf("expected sales target, got %v", intent.Databases)
	}
	if provider.jsonCalls != 1 {
		t.Fatalf("expected the JSON-constrained path, got %d calls", provider.jsonCalls)
	}
	if !strings.Contains(provider.prompt, "how many orders") {
		t.Fatalf("expected the question in the prompt")
	}
	if !strings.Contains(provider.prompt, "orders(id bigint)") {
		t.Fatalf("expected schema context in the prompt, got %s", provider.prompt)
	}
	if !strings.Contains(provider.prompt, "Conversation so far") {
		t.Fatalf("expected history in the prompt")
	}
}

func TestClassifierClampsConfidence(t *testing.T) {
	provider := &textProviderFake{response: `{"confidence":3.5}`}
	intent, err := NewClassifier(provider).ClassifyIntent(context.Background(), "q", "", nil)
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if intent.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %f", intent.Confidence)
	}
}

func TestClassifierRejectsBadJSON(t *testing.T) {
	provider := &textProviderFake{response: "not json at all"}
	if _, err := NewClassifier(provider).ClassifyIntent(context.Background(), "q", "", nil); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestGeneratorAnswerPrompt(t *testing.T) {
	provider := &textProviderFake{response: "answer"}
	gen := NewGenerator(provider)

	_, err := gen.GenerateAnswer(context.Background(), "question?", []string{"first block", "second block"}, "User: hi\nAssistant: hello", "de")
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	for _, want := range []string{"question?", "first block", "second block", `"de"`, "Conversation so far"} {
		if !strings.Contains(provider.prompt, want) {
			t.Fatalf("expected %q in the prompt, got %s", want, provider.prompt)
		}
	}
}

func TestEmbedderSkipsEmptyInput(t *testing.T) {
	provider := &embedProviderFake{}
	vectors, err := NewEmbedder(provider).Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors != nil || provider.texts != nil {
		t.Fatalf("expected no provider call for empty input")
	}
}

func TestEmbedderQueryReturnsFirstVector(t *testing.T) {
	provider := &embedProviderFake{vectors: [][]float32{{0.5, 0.25}}}
	vector, err := NewEmbedder(provider).EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("expected the first vector, got %v", vector)
	}
}

func TestEmbedderQueryEmptyResult(t *testing.T) {
	provider := &embedProviderFake{vectors: [][]float32{}}
	if _, err := NewEmbedder(provider).EmbedQuery(context.Background(), "q"); err == nil {
		t.Fatalf("expected an error for an empty embedding result")
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`},
		{"no object here", "no object here"},
	}
	for _, tc := range cases {
		if got := ExtractJSONObject(tc.in); got != tc.want {
			t.Fatalf("ExtractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGeneratorPropagatesProviderError(t *testing.T) {
	provider := &textProviderFake{err: errors.New("model down")}
	if _, err := NewGenerator(provider).GenerateFromPrompt(context.Background(), "p"); err == nil {
		t.Fatalf("expected provider error")
	}
}
