package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const (
	defaultMaxParallelDatabases = 4
	defaultSQLAttempts          = 2
)

// MultiDatabaseUseCase executes one natural-language question against the
// configured databases: per-database SQL generation through the dialect
// strategy, validation with one corrective retry, and parallel execution
// with isolated failures.
type MultiDatabaseUseCase struct {
	gateway     ports.DatabaseGateway
	generator   ports.AnswerGenerator
	maxParallel int
	sqlAttempts int
}

func NewMultiDatabaseUseCase(gateway ports.DatabaseGateway, generator ports.AnswerGenerator, maxParallel, sqlAttempts int) *MultiDatabaseUseCase {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallelDatabases
	}
	if sqlAttempts <= 0 {
		sqlAttempts = defaultSQLAttempts
	}
	return &MultiDatabaseUseCase{
		gateway:     gateway,
		generator:   generator,
		maxParallel: maxParallel,
		sqlAttempts: sqlAttempts,
	}
}

// QueryAll fans the question out to the target databases (all configured
// ones when targets is empty) and joins the per-database results. One
// database failing never aborts its siblings; the failure is recorded on its
// own sub-result.
func (uc *MultiDatabaseUseCase) QueryAll(ctx context.Context, question string, targets []string, maxRows int) domain.MultiDatabaseQueryResult {
	start := time.Now()
	if len(targets) == 0 {
		targets = uc.gateway.Names()
	}

	results := make([]domain.DatabaseResult, len(targets))
	eg, groupCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.maxParallel)
	for i, name := range targets {
		eg.Go(func() error {
			results[i] = uc.queryOne(groupCtx, name, question, maxRows)
			// Failures stay on the sub-result so sibling queries keep running.
			return nil
		})
	}
	_ = eg.Wait()

	out := domain.MultiDatabaseQueryResult{
		Results:  results,
		Duration: time.Since(start),
	}
	for _, r := range results {
		if r.Failed() {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	return out
}

func (uc *MultiDatabaseUseCase) queryOne(ctx context.Context, name, question string, maxRows int) domain.DatabaseResult {
	failed := func(stage string, err error) domain.DatabaseResult {
		slog.Warn("database sub-query failed", "database", name, "stage", stage, "error", err)
		return domain.DatabaseResult{Database: name, Error: fmt.Sprintf("%s: %v", stage, err)}
	}

	dialect, err := uc.gateway.Dialect(name)
	if err != nil {
		return failed("resolve dialect", err)
	}
	schema, err := uc.gateway.Schema(ctx, name)
	if err != nil {
		return failed("load schema", err)
	}

	sqlText, err := uc.generateSQL(ctx, dialect, schema, question, maxRows)
	if err != nil {
		return failed("generate sql", err)
	}

	result, err := uc.gateway.Execute(ctx, name, sqlText, maxRows)
	if err != nil {
		res := failed("execute", err)
		res.SQL = sqlText
		return res
	}
	return result
}

// generateSQL asks the model for a statement and validates it through the
// dialect strategy. A rejected statement is retried once with corrective
// instructions naming the violation before the sub-query is given up on.
func (uc *MultiDatabaseUseCase) generateSQL(ctx context.Context, dialect ports.SQLDialect, schema domain.SchemaMetadata, question string, maxRows int) (string, error) {
	prompt := dialect.BuildSQLPrompt(schema, question, maxRows)

	var lastErr error
	for attempt := 1; attempt <= uc.sqlAttempts; attempt++ {
		raw, err := uc.generator.GenerateFromPrompt(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("sql generation call: %w", err)
		}

		sqlText := extractSQL(raw)
		if err := dialect.ValidateSQL(sqlText); err != nil {
			lastErr = err
			slog.Warn("generated sql rejected",
				"dialect", dialect.Name(),
				"attempt", attempt,
				"error", err,
			)
			prompt = correctivePrompt(prompt, sqlText, err)
			continue
		}
		return sqlText, nil
	}
	return "", domain.WrapError(domain.ErrSQLValidation, "exhausted attempts", lastErr)
}

func correctivePrompt(prompt, rejectedSQL string, validationErr error) string {
	return fmt.Sprintf(`%s

Your previous statement was rejected: %v.
Rejected statement:
%s

Return a corrected statement that follows every rule above.`, prompt, validationErr, rejectedSQL)
}

// extractSQL unwraps the statement from model output habits: markdown code
// fences and a leading language tag.
func extractSQL(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "sql\n") {
		text = strings.TrimSpace(text[len("sql"):])
	}
	return text
}
