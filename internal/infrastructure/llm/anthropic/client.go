// Package anthropic adapts the Anthropic Messages API to the text provider
// contract. Anthropic has no embeddings endpoint, so the client is a text
// provider only and embedding duty stays with another backend.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/unimind/uniquery/internal/infrastructure/llm"
)

const defaultMaxTokens = 2048

// Client implements llm.TextProvider.
type Client struct {
	api   anthropic.Client
	model string
}

func New(apiKey, model string, opts ...option.RequestOption) *Client {
	merged := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		api:   anthropic.NewClient(merged...),
		model: model,
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("anthropic message: empty text content")
	}
	return out, nil
}

// GenerateJSON has no structured-output switch on the Messages API, so it
// instructs the model and extracts the outermost object from the reply.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	out, err := c.Generate(ctx, prompt+"\n\nRespond with a single JSON object and nothing else.")
	if err != nil {
		return "", err
	}
	return llm.ExtractJSONObject(out), nil
}
