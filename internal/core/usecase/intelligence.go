package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

const (
	defaultDatabaseMaxRows = 50
	defaultDatabaseTimeout = 30 * time.Second
	defaultDocumentTimeout = 15 * time.Second
	defaultMergeTimeout    = 20 * time.Second
	defaultAnswerTimeout   = 30 * time.Second
)

const noEvidenceAnswer = "I could not find relevant information for this question in any of the enabled sources."

// Limits bounds one pass through the query pipeline. Zero values fall back
// to the package defaults.
type Limits struct {
	MaxResults      int
	DatabaseMaxRows int
	DatabaseTimeout time.Duration
	DocumentTimeout time.Duration
	MergeTimeout    time.Duration
	AnswerTimeout   time.Duration
}

func (l Limits) normalized() Limits {
	if l.MaxResults <= 0 {
		l.MaxResults = domain.DefaultMaxResults
	}
	if l.DatabaseMaxRows <= 0 {
		l.DatabaseMaxRows = defaultDatabaseMaxRows
	}
	if l.DatabaseTimeout <= 0 {
		l.DatabaseTimeout = defaultDatabaseTimeout
	}
	if l.DocumentTimeout <= 0 {
		l.DocumentTimeout = defaultDocumentTimeout
	}
	if l.MergeTimeout <= 0 {
		l.MergeTimeout = defaultMergeTimeout
	}
	if l.AnswerTimeout <= 0 {
		l.AnswerTimeout = defaultAnswerTimeout
	}
	return l
}

// IntelligenceUseCase is the query pipeline: preprocessing, intent
// classification, route decision, per-source execution, merging, and answer
// generation. Every failure inside the pipeline degrades the response;
// the only returned error is invalid input.
type IntelligenceUseCase struct {
	intent    *IntentUseCase
	databases *MultiDatabaseUseCase
	documents *DocumentSearchUseCase
	merger    *MergeUseCase
	sessions  ports.SessionManager
	generator ports.AnswerGenerator
	gateway   ports.DatabaseGateway
	limits    Limits
	observer  ports.QueryObserver
}

func NewIntelligenceUseCase(
	intent *IntentUseCase,
	databases *MultiDatabaseUseCase,
	documents *DocumentSearchUseCase,
	merger *MergeUseCase,
	sessions ports.SessionManager,
	generator ports.AnswerGenerator,
	gateway ports.DatabaseGateway,
	limits Limits,
) *IntelligenceUseCase {
	return &IntelligenceUseCase{
		intent:    intent,
		databases: databases,
		documents: documents,
		merger:    merger,
		sessions:  sessions,
		generator: generator,
		gateway:   gateway,
		limits:    limits.normalized(),
	}
}

// SetObserver attaches a pipeline event observer. Optional; call before
// serving traffic.
func (uc *IntelligenceUseCase) SetObserver(observer ports.QueryObserver) {
	uc.observer = observer
}

// QueryIntelligence runs one query through the full pipeline and always
// produces a RagResponse unless the cleaned query is empty.
func (uc *IntelligenceUseCase) QueryIntelligence(ctx context.Context, query string, maxResults int, startNewConversation bool, opts *domain.SearchOptions) (*domain.RagResponse, error) {
	start := time.Now()
	if maxResults <= 0 {
		maxResults = uc.limits.MaxResults
	}

	pre := PreprocessQuery(query, opts)

	// In-band session commands act before routing. A command followed by
	// text continues with the remainder in the refreshed conversation.
	switch pre.Command {
	case domain.SessionCommandReset, domain.SessionCommandClear:
		if err := uc.sessions.ResetActiveSession(ctx); err != nil {
			slog.Warn("failed to reset active session", "error", err)
		}
		if pre.Query == "" {
			return uc.ackResponse("Conversation history cleared.", "", start), nil
		}
	case domain.SessionCommandNew:
		startNewConversation = true
		if pre.Query == "" {
			id := uc.resolveSession(ctx, true)
			return uc.ackResponse("Started a new conversation.", id, start), nil
		}
	}

	if pre.Query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query intelligence", errors.New("query is empty"))
	}

	sessionID := uc.resolveSession(ctx, startNewConversation)
	history := ""
	if sessionID != "" && !startNewConversation {
		history = uc.historyFor(ctx, sessionID)
	}

	intent := uc.intent.Analyze(ctx, pre.Query, history)
	route := decideRoute(intent, pre.Options, len(uc.gateway.Names()) > 0)
	if route == domain.RouteUnrouted {
		// The pipeline still terminates in the answered state; the degraded
		// flag and note carry the fact that nothing was searched.
		resp := uc.ackResponse("All source types are disabled for this request, so there is nothing to search.", sessionID, start)
		resp.Confidence = intent.Confidence
		resp.Degraded = true
		resp.Notes = []string{"all source types disabled by request options"}
		return resp, nil
	}

	var dbResult domain.MultiDatabaseQueryResult
	var docs []domain.DocumentChunk
	switch route {
	case domain.RouteDatabaseOnly:
		dbResult = uc.queryDatabases(ctx, pre.Query, intent.Databases)
	case domain.RouteDocumentOnly:
		docs = uc.searchDocuments(ctx, pre.Query, maxResults, pre.Options)
	case domain.RouteHybrid:
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			dbResult = uc.queryDatabases(egCtx, pre.Query, intent.Databases)
			return nil
		})
		eg.Go(func() error {
			docs = uc.searchDocuments(egCtx, pre.Query, maxResults, pre.Options)
			return nil
		})
		_ = eg.Wait()
	}

	comp := uc.mergeAndAnswer(ctx, pre.Query, history, pre.Options.PreferredLanguage, dbResult, docs)

	if sessionID != "" {
		if err := uc.sessions.AddTurn(ctx, sessionID, pre.Query, comp.answer); err != nil {
			slog.Warn("failed to record conversation turn", "session_id", sessionID, "error", err)
		}
	}

	return &domain.RagResponse{
		Answer:       comp.answer,
		Sources:      comp.sources,
		Confidence:   intent.Confidence,
		Route:        route,
		SessionID:    sessionID,
		ProcessingMS: time.Since(start).Milliseconds(),
		Degraded:     comp.degraded,
		Notes:        comp.notes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// SearchDocuments is the direct retrieval surface: hybrid document search
// without routing, merging, or answer generation.
func (uc *IntelligenceUseCase) SearchDocuments(ctx context.Context, query string, maxResults int, opts *domain.SearchOptions) ([]domain.DocumentChunk, error) {
	pre := PreprocessQuery(query, opts)
	if pre.Query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search documents", errors.New("query is empty"))
	}
	if maxResults <= 0 {
		maxResults = uc.limits.MaxResults
	}

	docCtx, cancel := context.WithTimeout(ctx, uc.limits.DocumentTimeout)
	defer cancel()
	return uc.documents.Search(docCtx, pre.Query, maxResults, pre.Options)
}

// QueryMultipleDatabases skips classification and fans the question out to
// every configured database. Zero configured databases is a degraded
// response, not an error.
func (uc *IntelligenceUseCase) QueryMultipleDatabases(ctx context.Context, query string, maxResults int) (*domain.RagResponse, error) {
	start := time.Now()
	pre := PreprocessQuery(query, nil)
	if pre.Query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query databases", errors.New("query is empty"))
	}
	if maxResults <= 0 {
		maxResults = uc.limits.MaxResults
	}

	if len(uc.gateway.Names()) == 0 {
		resp := uc.ackResponse("No databases are configured.", "", start)
		resp.Route = domain.RouteDatabaseOnly
		resp.Degraded = true
		resp.Notes = []string{"no databases configured"}
		return resp, nil
	}

	dbResult := uc.queryDatabases(ctx, pre.Query, nil)
	comp := uc.mergeAndAnswer(ctx, pre.Query, "", "", dbResult, nil)

	// Confidence stays zero: the route was forced by the caller, no
	// classification ran.
	return &domain.RagResponse{
		Answer:       comp.answer,
		Sources:      comp.sources,
		Route:        domain.RouteDatabaseOnly,
		ProcessingMS: time.Since(start).Milliseconds(),
		Degraded:     comp.degraded,
		Notes:        comp.notes,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (uc *IntelligenceUseCase) queryDatabases(ctx context.Context, question string, targets []string) domain.MultiDatabaseQueryResult {
	dbCtx, cancel := context.WithTimeout(ctx, uc.limits.DatabaseTimeout)
	defer cancel()
	result := uc.databases.QueryAll(dbCtx, question, targets, uc.limits.DatabaseMaxRows)
	if uc.observer != nil {
		for _, r := range result.Results {
			if r.Failed() {
				uc.observer.RecordSourceFailure(domain.SourceDatabase)
			}
		}
	}
	return result
}

func (uc *IntelligenceUseCase) searchDocuments(ctx context.Context, query string, maxResults int, opts domain.SearchOptions) []domain.DocumentChunk {
	docCtx, cancel := context.WithTimeout(ctx, uc.limits.DocumentTimeout)
	defer cancel()

	docs, err := uc.documents.Search(docCtx, query, maxResults, opts)
	if err != nil {
		slog.Warn("document retrieval failed", "error", err)
		if uc.observer != nil {
			uc.observer.RecordSourceFailure(domain.SourceDocument)
		}
		return nil
	}
	return docs
}

type composition struct {
	answer   string
	sources  []domain.SourceAttribution
	notes    []string
	degraded bool
}

// mergeAndAnswer consolidates the per-source results and generates the final
// answer. Generation failure falls back to the raw merged context so the
// caller still sees the evidence.
func (uc *IntelligenceUseCase) mergeAndAnswer(ctx context.Context, question, history, language string, dbResult domain.MultiDatabaseQueryResult, docs []domain.DocumentChunk) composition {
	mergeCtx, cancel := context.WithTimeout(ctx, uc.limits.MergeTimeout)
	merged := uc.merger.Merge(mergeCtx, MergeInput{
		Query:     question,
		Database:  dbResult,
		Documents: docs,
		Language:  language,
	})
	cancel()

	comp := composition{sources: buildSources(dbResult, docs)}
	comp.notes = append(comp.notes, dbResult.FailureNotes()...)
	if merged.Note != "" {
		comp.notes = append(comp.notes, merged.Note)
		if uc.observer != nil {
			uc.observer.RecordMergeFallback()
		}
	}

	if len(merged.ContextBlocks) == 0 {
		comp.answer = noEvidenceAnswer
		comp.degraded = true
		comp.notes = append(comp.notes, "no results from any enabled source")
		return comp
	}

	ansCtx, cancel := context.WithTimeout(ctx, uc.limits.AnswerTimeout)
	defer cancel()
	answer, err := uc.generator.GenerateAnswer(ansCtx, question, merged.ContextBlocks, history, language)
	if err != nil {
		slog.Warn("answer generation failed, returning retrieved context", "error", err)
		comp.answer = strings.Join(merged.ContextBlocks, "\n\n")
		comp.degraded = true
		comp.notes = append(comp.notes, "answer generation unavailable; showing retrieved context verbatim")
		return comp
	}
	comp.answer = strings.TrimSpace(answer)
	return comp
}

// resolveSession returns the session id for this request, or "" to continue
// stateless when the session backend is unavailable.
func (uc *IntelligenceUseCase) resolveSession(ctx context.Context, fresh bool) string {
	var (
		id  string
		err error
	)
	if fresh {
		id, err = uc.sessions.StartNewConversation(ctx)
	} else {
		id, err = uc.sessions.GetOrCreateSession(ctx)
	}
	if err != nil {
		slog.Warn("session backend unavailable, continuing without history", "error", err)
		return ""
	}
	return id
}

func (uc *IntelligenceUseCase) historyFor(ctx context.Context, sessionID string) string {
	history, err := uc.sessions.GetHistory(ctx, sessionID)
	if err != nil {
		slog.Warn("conversation history unavailable", "session_id", sessionID, "error", err)
		return ""
	}
	return history
}

func (uc *IntelligenceUseCase) ackResponse(answer, sessionID string, start time.Time) *domain.RagResponse {
	return &domain.RagResponse{
		Answer:       answer,
		Route:        domain.RouteAnswered,
		SessionID:    sessionID,
		ProcessingMS: time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
}

const sourceSnippetRunes = 200

func buildSources(dbResult domain.MultiDatabaseQueryResult, docs []domain.DocumentChunk) []domain.SourceAttribution {
	var out []domain.SourceAttribution
	for _, r := range dbResult.Results {
		if r.Failed() {
			continue
		}
		out = append(out, domain.SourceAttribution{
			Type:      domain.SourceDatabase,
			Title:     r.Database,
			Reference: r.SQL,
		})
	}
	for _, c := range docs {
		out = append(out, domain.SourceAttribution{
			Type:    sourceTypeForModality(c.Modality),
			Title:   c.Filename,
			Snippet: snippetOf(c.Text, sourceSnippetRunes),
			Score:   c.Score,
		})
	}
	return out
}

func sourceTypeForModality(m domain.Modality) domain.SourceType {
	switch m {
	case domain.ModalityImage:
		return domain.SourceImage
	case domain.ModalityAudio:
		return domain.SourceAudio
	default:
		return domain.SourceDocument
	}
}

func snippetOf(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
