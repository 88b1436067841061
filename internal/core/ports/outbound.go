package ports

import (
	"context"
	"io"

	"github.com/unimind/uniquery/internal/core/domain"
)

// IntentClassifier scores whether a query needs structured-database lookup
// and names the likely target databases/tables from schema context.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, query, history string, schemas []domain.SchemaMetadata) (domain.QueryIntent, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates user-facing text from prompts and retrieval
// context. GenerateAnswer carries the conversation transcript and the
// preferred response language.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, contexts []string, history, language string) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// VectorStore indexes chunks and retrieves them by dense similarity, lexical
// match, or document position.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error)
	SearchLexical(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.DocumentChunk, error)
	FetchChunks(ctx context.Context, documentID string, indices []int) ([]domain.DocumentChunk, error)
}

// SQLDialect is the per-engine strategy for generating and validating SQL.
type SQLDialect interface {
	Name() string
	BuildSQLPrompt(schema domain.SchemaMetadata, question string, maxRows int) string
	ValidateSQL(sqlText string) error
}

// DatabaseGateway fronts the configured database connections: dialect lookup,
// cached schema snapshots, and capped, sanitized statement execution.
type DatabaseGateway interface {
	Names() []string
	Dialect(name string) (SQLDialect, error)
	Schema(ctx context.Context, name string) (domain.SchemaMetadata, error)
	Execute(ctx context.Context, name, sqlText string, maxRows int) (domain.DatabaseResult, error)
}

// SessionStore persists conversation sessions in a pluggable backend.
// Implementations provide store-level atomicity; the engine does no
// cross-request locking on top.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.ConversationSession) error
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.ConversationTurn, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ActiveSessionID(ctx context.Context) (string, error)
	SetActiveSessionID(ctx context.Context, sessionID string) error
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, chunkCount int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored text document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// OCREngine is the external collaborator turning stored images into text.
type OCREngine interface {
	ExtractText(ctx context.Context, body io.Reader, filename string) (string, error)
}

// Transcriber is the external collaborator turning stored audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, body io.Reader, filename string) (string, error)
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
