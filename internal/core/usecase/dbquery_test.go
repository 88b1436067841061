package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

type gatewayFake struct {
	mu       sync.Mutex
	names    []string
	dialects map[string]ports.SQLDialect
	schemas  map[string]domain.SchemaMetadata
	execErr  map[string]error
	results  map[string]domain.DatabaseResult
	executed map[string]string
}

func newGatewayFake(names ...string) *gatewayFake {
	f := &gatewayFake{
		names:    names,
		dialects: map[string]ports.SQLDialect{},
		schemas:  map[string]domain.SchemaMetadata{},
		execErr:  map[string]error{},
		results:  map[string]domain.DatabaseResult{},
		executed: map[string]string{},
	}
	for _, name := range names {
		f.dialects[name] = &dialectFake{}
		f.schemas[name] = domain.SchemaMetadata{
			Database: name,
			Dialect:  "fake",
			Tables:   []domain.TableMetadata{{Name: "t", Columns: []domain.ColumnMetadata{{Name: "n", DataType: "int"}}}},
		}
	}
	return f
}

func (f *gatewayFake) Names() []string { return f.names }

func (f *gatewayFake) Dialect(name string) (ports.SQLDialect, error) {
	if d, ok := f.dialects[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown database %q", name)
}

func (f *gatewayFake) Schema(_ context.Context, name string) (domain.SchemaMetadata, error) {
	if s, ok := f.schemas[name]; ok {
		return s, nil
	}
	return domain.SchemaMetadata{}, fmt.Errorf("no schema for %q", name)
}

func (f *gatewayFake) Execute(_ context.Context, name, sqlText string, maxRows int) (domain.DatabaseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed[name] = sqlText
	if err := f.execErr[name]; err != nil {
		return domain.DatabaseResult{}, err
	}
	if r, ok := f.results[name]; ok {
		return r, nil
	}
	return domain.DatabaseResult{
		Database: name,
		SQL:      sqlText,
		Columns:  []string{"n"},
		Rows:     []map[string]any{{"n": int64(1)}},
		RowCount: 1,
	}, nil
}

type dialectFake struct {
	mu          sync.Mutex
	rejectFirst int
	validated   []string
}

func (f *dialectFake) Name() string { return "fake" }

func (f *dialectFake) BuildSQLPrompt(schema domain.SchemaMetadata, question string, maxRows int) string {
	return fmt.Sprintf("schema=%s question=%s rows=%d", schema.Database, question, maxRows)
}

func (f *dialectFake) ValidateSQL(sqlText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validated = append(f.validated, sqlText)
	if len(f.validated) <= f.rejectFirst {
		return errors.New("statement is not a single select")
	}
	return nil
}

type promptGeneratorFake struct {
	mu        sync.Mutex
	prompts   []string
	responses []string
	err       error
	answerErr error
	answer    string
}

func (f *promptGeneratorFake) GenerateAnswer(_ context.Context, _ string, _ []string, _, _ string) (string, error) {
	if f.answerErr != nil {
		return "", f.answerErr
	}
	if f.answer != "" {
		return f.answer, nil
	}
	return "answer", nil
}

func (f *promptGeneratorFake) GenerateFromPrompt(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.prompts = append(f.prompts, prompt)
	if len(f.responses) == 0 {
		return "SELECT n FROM t", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *promptGeneratorFake) GenerateJSONFromPrompt(_ context.Context, _ string) (string, error) {
	return "{}", nil
}

func TestMultiDatabaseQueryAllIsolatesFailures(t *testing.T) {
	gateway := newGatewayFake("sales", "billing")
	gateway.execErr["billing"] = errors.New("connection refused")
	uc := NewMultiDatabaseUseCase(gateway, &promptGeneratorFake{}, 0, 0)

	result := uc.QueryAll(context.Background(), "count rows", nil, 50)

	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %d/%d", result.Succeeded, result.Failed)
	}
	for _, r := range result.Results {
		switch r.Database {
		case "sales":
			if r.Failed() {
				t.Fatalf("expected sales to succeed, got error %q", r.Error)
			}
			if r.RowCount != 1 {
				t.Fatalf("expected sales rows, got %d", r.RowCount)
			}
		case "billing":
			if !r.Failed() {
				t.Fatalf("expected billing to fail")
			}
			if !strings.Contains(r.Error, "connection refused") {
				t.Fatalf("expected the execution error recorded, got %q", r.Error)
			}
		default:
			t.Fatalf("unexpected database %q", r.Database)
		}
	}
	if len(result.FailureNotes()) != 1 {
		t.Fatalf("expected one failure note, got %v", result.FailureNotes())
	}
}

func TestMultiDatabaseQueryAllDefaultsToConfigured(t *testing.T) {
	gateway := newGatewayFake("a", "b", "c")
	uc := NewMultiDatabaseUseCase(gateway, &promptGeneratorFake{}, 2, 0)

	result := uc.QueryAll(context.Background(), "q", nil, 10)
	if len(result.Results) != 3 {
		t.Fatalf("expected all configured databases queried, got %d", len(result.Results))
	}
	if len(gateway.executed) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(gateway.executed))
	}
}

func TestMultiDatabaseRetriesRejectedSQL(t *testing.T) {
	gateway := newGatewayFake("sales")
	dialect := &dialectFake{rejectFirst: 1}
	gateway.dialects["sales"] = dialect
	generator := &promptGeneratorFake{responses: []string{
		"```sql\nDROP TABLE t\n```",
		"SELECT n FROM t",
	}}
	uc := NewMultiDatabaseUseCase(gateway, generator, 0, 0)

	result := uc.QueryAll(context.Background(), "count rows", []string{"sales"}, 10)

	if result.Failed != 0 {
		t.Fatalf("expected the retry to succeed, got %+v", result.Results)
	}
	if len(dialect.validated) != 2 {
		t.Fatalf("expected 2 validation attempts, got %d", len(dialect.validated))
	}
	if dialect.validated[0] != "DROP TABLE t" {
		t.Fatalf("expected the fenced statement unwrapped, got %q", dialect.validated[0])
	}
	if len(generator.prompts) != 2 || !strings.Contains(generator.prompts[1], "rejected") {
		t.Fatalf("expected a corrective second prompt, got %v", generator.prompts)
	}
	if gateway.executed["sales"] != "SELECT n FROM t" {
		t.Fatalf("expected the corrected statement executed, got %q", gateway.executed["sales"])
	}
}

func TestMultiDatabaseGivesUpAfterRetries(t *testing.T) {
	gateway := newGatewayFake("sales")
	gateway.dialects["sales"] = &dialectFake{rejectFirst: 5}
	uc := NewMultiDatabaseUseCase(gateway, &promptGeneratorFake{}, 0, 2)

	result := uc.QueryAll(context.Background(), "q", []string{"sales"}, 10)

	if result.Failed != 1 {
		t.Fatalf("expected the sub-query to fail, got %+v", result.Results)
	}
	if !strings.Contains(result.Results[0].Error, "generate sql") {
		t.Fatalf("expected a generation failure, got %q", result.Results[0].Error)
	}
	if len(gateway.executed) != 0 {
		t.Fatalf("expected no execution of invalid statements")
	}
}

func TestMultiDatabaseGenerationTransportError(t *testing.T) {
	gateway := newGatewayFake("sales")
	uc := NewMultiDatabaseUseCase(gateway, &promptGeneratorFake{err: errors.New("model down")}, 0, 0)

	result := uc.QueryAll(context.Background(), "q", []string{"sales"}, 10)
	if result.Failed != 1 {
		t.Fatalf("expected failure, got %+v", result.Results)
	}
	if !strings.Contains(result.Results[0].Error, "model down") {
		t.Fatalf("expected the transport error recorded, got %q", result.Results[0].Error)
	}
}

func TestExtractSQLVariants(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"sql\nSELECT 1", "SELECT 1"},
	}
	for _, tc := range cases {
		if got := extractSQL(tc.in); got != tc.want {
			t.Fatalf("extractSQL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
