package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unimind/uniquery/internal/core/domain"
)

// Classifier scores query intent over any TextProvider.
type Classifier struct {
	provider TextProvider
}

func NewClassifier(provider TextProvider) *Classifier {
	return &Classifier{provider: provider}
}

func (c *Classifier) ClassifyIntent(ctx context.Context, query, history string, schemas []domain.SchemaMetadata) (domain.QueryIntent, error) {
	raw, err := c.provider.GenerateJSON(ctx, buildIntentPrompt(query, history, schemas))
	if err != nil {
		return domain.QueryIntent{}, err
	}

	var intent domain.QueryIntent
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &intent); err != nil {
		return domain.QueryIntent{}, fmt.Errorf("parse intent json: %w", err)
	}
	intent.Confidence = domain.ClampConfidence(intent.Confidence)
	return intent, nil
}

// Generator produces user-facing text over any TextProvider.
type Generator struct {
	provider TextProvider
}

func NewGenerator(provider TextProvider) *Generator {
	return &Generator{provider: provider}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, contexts []string, history, language string) (string, error) {
	return g.provider.Generate(ctx, buildAnswerPrompt(question, contexts, history, language))
}

func (g *Generator) GenerateFromPrompt(ctx context.Context, prompt string) (string, error) {
	return g.provider.Generate(ctx, prompt)
}

func (g *Generator) GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error) {
	return g.provider.GenerateJSON(ctx, prompt)
}

// Embedder builds vectors over any EmbeddingProvider.
type Embedder struct {
	provider EmbeddingProvider
}

func NewEmbedder(provider EmbeddingProvider) *Embedder {
	return &Embedder{provider: provider}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.provider.Embed(ctx, texts)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
