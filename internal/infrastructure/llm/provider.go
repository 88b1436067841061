// Package llm adapts model backends to the engine's classification,
// generation, and embedding ports. Providers expose raw text/JSON/vector
// calls; the role types in this package add prompting and parsing on top,
// so every backend behaves identically from the core's point of view.
package llm

import (
	"context"
	"strings"
)

// TextProvider is a model backend capable of free-form and JSON-constrained
// text generation.
type TextProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// EmbeddingProvider is a model backend capable of producing embedding
// vectors. Not every backend has one; selection is validated at startup.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ExtractJSONObject cuts the outermost JSON object out of model output that
// may be wrapped in prose or code fences.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
