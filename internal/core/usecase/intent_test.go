package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/unimind/uniquery/internal/core/domain"
)

type intentClassifierFake struct {
	intent  domain.QueryIntent
	err     error
	calls   int
	query   string
	history string
	schemas []domain.SchemaMetadata
}

func (f *intentClassifierFake) ClassifyIntent(_ context.Context, query, history string, schemas []domain.SchemaMetadata) (domain.QueryIntent, error) {
	f.calls++
	f.query = query
	f.history = history
	f.schemas = schemas
	if f.err != nil {
		return domain.QueryIntent{}, f.err
	}
	return f.intent, nil
}

func TestIntentAnalyzeZeroDatabases(t *testing.T) {
	classifier := &intentClassifierFake{intent: domain.QueryIntent{Confidence: 0.9}}
	uc := NewIntentUseCase(classifier, newGatewayFake(), 0)

	intent := uc.Analyze(context.Background(), "show top customers", "")

	if intent.Confidence != 0 {
		t.Fatalf("expected zero confidence without databases, got %f", intent.Confidence)
	}
	if classifier.calls != 0 {
		t.Fatalf("expected no classification call without databases")
	}
}

func TestIntentAnalyzePassesSchemaContext(t *testing.T) {
	classifier := &intentClassifierFake{intent: domain.QueryIntent{Confidence: 0.8, Databases: []string{"sales"}}}
	uc := NewIntentUseCase(classifier, newGatewayFake("sales", "billing"), 0)

	intent := uc.Analyze(context.Background(), "how many orders", "User: hi\nAssistant: hello")

	if classifier.calls != 1 {
		t.Fatalf("expected one classification call, got %d", classifier.calls)
	}
	if len(classifier.schemas) != 2 {
		t.Fatalf("expected schemas for both databases, got %d", len(classifier.schemas))
	}
	if classifier.history == "" {
		t.Fatalf("expected the transcript forwarded to the classifier")
	}
	if intent.Confidence != 0.8 {
		t.Fatalf("expected confidence preserved, got %f", intent.Confidence)
	}
}

func TestIntentAnalyzeClampsAndFiltersTargets(t *testing.T) {
	classifier := &intentClassifierFake{intent: domain.QueryIntent{
		Confidence: 1.7,
		Databases:  []string{"sales", "ghost", "sales"},
	}}
	uc := NewIntentUseCase(classifier, newGatewayFake("sales", "billing"), 0)

	intent := uc.Analyze(context.Background(), "q", "")

	if intent.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %f", intent.Confidence)
	}
	if len(intent.Databases) != 1 || intent.Databases[0] != "sales" {
		t.Fatalf("expected unknown and duplicate targets dropped, got %v", intent.Databases)
	}
}

func TestIntentAnalyzeFallbackOnClassifierError(t *testing.T) {
	classifier := &intentClassifierFake{err: errors.New("model down")}
	uc := NewIntentUseCase(classifier, newGatewayFake("sales"), 0)

	intent := uc.Analyze(context.Background(), "q", "")

	if intent.Confidence != classifyFallbackConfidence {
		t.Fatalf("expected fallback confidence %f, got %f", classifyFallbackConfidence, intent.Confidence)
	}
	if len(intent.Databases) != 0 {
		t.Fatalf("expected no targets on fallback, got %v", intent.Databases)
	}
}
