package domain

import "time"

// DefaultMaxResults is the result-count cap applied when a caller passes a
// non-positive maximum.
const DefaultMaxResults = 5

// SourceType tags where a retrieved piece of evidence came from.
type SourceType string

const (
	SourceDatabase SourceType = "database"
	SourceDocument SourceType = "document"
	SourceImage    SourceType = "image"
	SourceAudio    SourceType = "audio"
)

// RouteState is the routing controller's position in the query lifecycle.
// The machine is one-shot: Unrouted -> Analyzing -> one execution route ->
// Merged -> Answered, with no backtracking.
type RouteState string

const (
	RouteUnrouted     RouteState = "unrouted"
	RouteAnalyzing    RouteState = "analyzing"
	RouteDatabaseOnly RouteState = "database_only"
	RouteDocumentOnly RouteState = "document_only"
	RouteHybrid       RouteState = "hybrid"
	RouteMerged       RouteState = "merged"
	RouteAnswered     RouteState = "answered"
)

// SearchOptions enables or disables individual source types for one request
// and carries an optional ISO 639-1 response-language hint.
type SearchOptions struct {
	EnableDatabaseSearch bool   `json:"enable_database_search"`
	EnableDocumentSearch bool   `json:"enable_document_search"`
	EnableAudioSearch    bool   `json:"enable_audio_search"`
	EnableImageSearch    bool   `json:"enable_image_search"`
	PreferredLanguage    string `json:"preferred_language,omitempty"`
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		EnableDatabaseSearch: true,
		EnableDocumentSearch: true,
		EnableAudioSearch:    true,
		EnableImageSearch:    true,
	}
}

// AnySourceEnabled reports whether at least one source type may run.
func (o SearchOptions) AnySourceEnabled() bool {
	return o.EnableDatabaseSearch || o.EnableDocumentSearch || o.EnableAudioSearch || o.EnableImageSearch
}

// DocumentLikeEnabled reports whether any of the chunk-backed source types
// (document, image, audio) may run.
func (o SearchOptions) DocumentLikeEnabled() bool {
	return o.EnableDocumentSearch || o.EnableAudioSearch || o.EnableImageSearch
}

// SessionCommand is an in-band session-management command parsed out of the
// raw query string before routing.
type SessionCommand string

const (
	SessionCommandNone  SessionCommand = ""
	SessionCommandNew   SessionCommand = "new"
	SessionCommandReset SessionCommand = "reset"
	SessionCommandClear SessionCommand = "clear"
)

// QueryIntent is the classification outcome for one query. Confidence is in
// [0,1] and expresses how certain the system is that the query needs a
// structured-database lookup. Immutable once produced.
type QueryIntent struct {
	Confidence float64  `json:"confidence"`
	Databases  []string `json:"databases,omitempty"`
	Tables     []string `json:"tables,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// ClampConfidence forces c into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// SourceAttribution is one attributed evidence entry on a RagResponse.
type SourceAttribution struct {
	Type      SourceType `json:"type"`
	Title     string     `json:"title"`
	Reference string     `json:"reference,omitempty"`
	Snippet   string     `json:"snippet,omitempty"`
	Score     float64    `json:"score,omitempty"`
}

// RagResponse is the externally visible result of one query. The engine
// always returns one, even fully degraded; partial failures surface in
// Degraded and Notes instead of errors.
type RagResponse struct {
	Answer       string              `json:"answer"`
	Sources      []SourceAttribution `json:"sources"`
	Confidence   float64             `json:"confidence"`
	Route        RouteState          `json:"route"`
	SessionID    string              `json:"session_id,omitempty"`
	ProcessingMS int64               `json:"processing_ms"`
	Degraded     bool                `json:"degraded,omitempty"`
	Notes        []string            `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}
