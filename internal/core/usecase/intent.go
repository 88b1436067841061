package usecase

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

// classifyFallbackConfidence is the conservative score used when the
// classification call fails: low enough to route to the cheaper
// document-only path instead of failing the request.
const classifyFallbackConfidence = 0.1

const defaultIntentTimeout = 10 * time.Second

// IntentUseCase produces a QueryIntent for one query via a single
// classification call, with schema context from the configured databases.
type IntentUseCase struct {
	classifier ports.IntentClassifier
	gateway    ports.DatabaseGateway
	timeout    time.Duration
}

func NewIntentUseCase(classifier ports.IntentClassifier, gateway ports.DatabaseGateway, timeout time.Duration) *IntentUseCase {
	if timeout <= 0 {
		timeout = defaultIntentTimeout
	}
	return &IntentUseCase{
		classifier: classifier,
		gateway:    gateway,
		timeout:    timeout,
	}
}

// Analyze classifies the query. With zero configured databases the database
// confidence is forced to zero without calling the model. A failed or timed
// out classification degrades to a low-confidence result instead of an error.
func (uc *IntentUseCase) Analyze(ctx context.Context, query, history string) domain.QueryIntent {
	names := uc.gateway.Names()
	if len(names) == 0 {
		return domain.QueryIntent{Confidence: 0, Reason: "no databases configured"}
	}

	schemas := make([]domain.SchemaMetadata, 0, len(names))
	for _, name := range names {
		schema, err := uc.gateway.Schema(ctx, name)
		if err != nil {
			slog.Warn("schema snapshot unavailable for intent analysis", "database", name, "error", err)
			continue
		}
		schemas = append(schemas, schema)
	}

	classifyCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	intent, err := uc.classifier.ClassifyIntent(classifyCtx, query, history, schemas)
	if err != nil {
		slog.Warn("intent classification failed, falling back to low confidence", "error", err)
		return domain.QueryIntent{
			Confidence: classifyFallbackConfidence,
			Reason:     "classification unavailable",
		}
	}

	intent.Confidence = domain.ClampConfidence(intent.Confidence)
	intent.Databases = intersectKnown(intent.Databases, names)
	return intent
}

// intersectKnown keeps only database names that are actually configured,
// preserving the classifier's ordering.
func intersectKnown(candidates, known []string) []string {
	if len(candidates) == 0 {
		return nil
	}
	var out []string
	for _, c := range candidates {
		if slices.Contains(known, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
