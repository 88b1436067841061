package ports

import (
	"context"
	"io"

	"github.com/unimind/uniquery/internal/core/domain"
)

// QueryIntelligenceService is the primary inbound contract: one natural
// language query in, one RagResponse out, with confidence-based routing
// across the configured sources. Failures inside the query path degrade the
// response instead of surfacing as errors; errors are reserved for invalid
// input.
type QueryIntelligenceService interface {
	QueryIntelligence(ctx context.Context, query string, maxResults int, startNewConversation bool, opts *domain.SearchOptions) (*domain.RagResponse, error)
	SearchDocuments(ctx context.Context, query string, maxResults int, opts *domain.SearchOptions) ([]domain.DocumentChunk, error)
	QueryMultipleDatabases(ctx context.Context, query string, maxResults int) (*domain.RagResponse, error)
}

// QueryObserver receives pipeline events the engine cannot express in its
// response alone: isolated per-source failures and merge-stage fallbacks.
// Implementations must be safe for concurrent use.
type QueryObserver interface {
	RecordSourceFailure(source domain.SourceType)
	RecordMergeFallback()
}

// SessionManager is the inbound contract for conversation lifecycle control.
type SessionManager interface {
	StartNewConversation(ctx context.Context) (string, error)
	GetOrCreateSession(ctx context.Context) (string, error)
	AddTurn(ctx context.Context, sessionID, question, answer string) error
	GetHistory(ctx context.Context, sessionID string) (string, error)
	ResetSession(ctx context.Context, sessionID string) error
	ResetActiveSession(ctx context.Context) error
}

// DocumentIngestor is the inbound contract for the document upload
// side-channel feeding the index.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader, uploadedBy, language string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing triggered from the queue.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
