package llm

import (
	"fmt"
	"strings"

	"github.com/unimind/uniquery/internal/core/domain"
)

const maxQuerySnippet = 4000

func buildIntentPrompt(query, history string, schemas []domain.SchemaMetadata) string {
	var b strings.Builder
	b.WriteString(`You decide whether a user question needs a lookup in structured SQL databases.
Return a strict JSON object with keys:
confidence (number from 0 to 1, the probability that the question needs database data), databases (array of database names from the list below likely holding the answer), tables (array of table names), reason (short string).
No markdown, no extra keys.

`)
	if len(schemas) > 0 {
		b.WriteString("Available databases:\n")
		for _, s := range schemas {
			b.WriteString(s.Describe())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if history != "" {
		fmt.Fprintf(&b, "Conversation so far:\n%s\n\n", history)
	}
	fmt.Fprintf(&b, "Question:\n%s\n", clip(query, maxQuerySnippet))
	return b.String()
}

func buildAnswerPrompt(question string, contexts []string, history, language string) string {
	var b strings.Builder
	b.WriteString("Answer the user question only from the context below.\n")
	b.WriteString("If the context is insufficient, say it directly.\n")
	if language != "" {
		fmt.Fprintf(&b, "Answer in the language with ISO 639-1 code %q.\n", language)
	}
	if history != "" {
		fmt.Fprintf(&b, "\nConversation so far:\n%s\n", history)
	}
	fmt.Fprintf(&b, "\nQuestion:\n%s\n\nContext:\n", question)
	for idx, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n\n", idx+1, c)
	}
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
