package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const mergeRowRenderCap = 20

// unreconciledNote is appended to a response whenever reconciliation was
// wanted but fell back to plain concatenation.
const unreconciledNote = "results from multiple sources are shown unreconciled; cross-source conflicts were not resolved"

// MergeInput carries everything the merger needs from the execution routes.
type MergeInput struct {
	Query     string
	Database  domain.MultiDatabaseQueryResult
	Documents []domain.DocumentChunk
	Language  string
}

// MergeOutput is the consolidated evidence handed to answer generation.
// ContextBlocks hold one rendered block per contributing source section.
type MergeOutput struct {
	ContextBlocks []string
	Note          string
	Reconciled    bool
}

// MergeUseCase consolidates database rows and document chunks into context
// blocks for the answer model. When several sources contributed it asks the
// model to reconcile them into one narrative; if that call fails, the blocks
// are concatenated and the response carries an explanatory note instead of
// an error.
type MergeUseCase struct {
	generator ports.AnswerGenerator
}

func NewMergeUseCase(generator ports.AnswerGenerator) *MergeUseCase {
	return &MergeUseCase{generator: generator}
}

func (uc *MergeUseCase) Merge(ctx context.Context, in MergeInput) MergeOutput {
	dbBlocks := formatDatabaseSections(in.Database)
	docBlocks := formatDocumentSections(in.Documents)

	blocks := make([]string, 0, len(dbBlocks)+len(docBlocks))
	blocks = append(blocks, dbBlocks...)
	blocks = append(blocks, docBlocks...)
	if len(blocks) == 0 {
		return MergeOutput{}
	}

	if !needReconcile(len(dbBlocks), len(docBlocks)) {
		return MergeOutput{ContextBlocks: blocks}
	}

	reconciled, err := uc.generator.GenerateFromPrompt(ctx, buildReconcilePrompt(in.Query, blocks, in.Language))
	if err != nil {
		slog.Warn("source reconciliation failed, falling back to concatenation", "error", err)
		return MergeOutput{ContextBlocks: blocks, Note: unreconciledNote}
	}
	reconciled = strings.TrimSpace(reconciled)
	if reconciled == "" {
		return MergeOutput{ContextBlocks: blocks, Note: unreconciledNote}
	}
	return MergeOutput{ContextBlocks: []string{reconciled}, Reconciled: true}
}

// needReconcile: a single source section needs no cross-source pass.
func needReconcile(dbSections, docSections int) bool {
	if dbSections >= 2 {
		return true
	}
	return dbSections >= 1 && docSections >= 1
}

func buildReconcilePrompt(query string, blocks []string, language string) string {
	var b strings.Builder
	b.WriteString("You are consolidating evidence retrieved from several independent sources for the question below.\n")
	b.WriteString("Combine the sections into a single coherent summary. Resolve overlaps, keep every distinct fact, and point out contradictions between sources explicitly.\n")
	b.WriteString("Do not invent information that is not present in the sections.\n")
	if language != "" {
		fmt.Fprintf(&b, "Write the summary in the language with ISO 639-1 code %q.\n", language)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	for i, block := range blocks {
		fmt.Fprintf(&b, "\n--- Section %d ---\n%s\n", i+1, block)
	}
	return b.String()
}

// formatDatabaseSections renders each successful sub-result as a compact
// header-plus-rows table. Failed sub-results contribute nothing here; their
// failure surfaces through MultiDatabaseQueryResult.FailureNotes.
func formatDatabaseSections(result domain.MultiDatabaseQueryResult) []string {
	var out []string
	for _, r := range result.Results {
		if r.Failed() || r.RowCount == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Database %q (%d rows", r.Database, r.RowCount)
		if r.Truncated {
			b.WriteString(", truncated")
		}
		b.WriteString("):\n")
		b.WriteString(strings.Join(r.Columns, " | "))
		b.WriteString("\n")
		for i, row := range r.Rows {
			if i >= mergeRowRenderCap {
				fmt.Fprintf(&b, "... %d more rows omitted\n", len(r.Rows)-i)
				break
			}
			cells := make([]string, len(r.Columns))
			for j, col := range r.Columns {
				cells[j] = renderCell(row[col])
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}
		out = append(out, strings.TrimRight(b.String(), "\n"))
	}
	return out
}

func formatDocumentSections(chunks []domain.DocumentChunk) []string {
	var out []string
	for _, c := range chunks {
		var b strings.Builder
		fmt.Fprintf(&b, "Document %q", c.Filename)
		if c.Modality != domain.ModalityText {
			fmt.Fprintf(&b, " (%s)", c.Modality)
		}
		fmt.Fprintf(&b, ", chunk %d:\n%s", c.ChunkIndex, strings.TrimSpace(c.Text))
		out = append(out, b.String())
	}
	return out
}

func renderCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
