package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
	"github.com/unimind/uniquery/internal/observability/metrics"
)

// Options carries the traffic-control settings for the public API surface.
type Options struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxConcurrent    int
	BackpressureWait time.Duration
}

type Router struct {
	query    ports.QueryIntelligenceService
	sessions ports.SessionManager
	ingestor ports.DocumentIngestor
	docs     ports.DocumentReader
	metrics  *metrics.HTTPServerMetrics
	opts     Options
}

// NewRouter validates the embedded OpenAPI contract and builds the API
// router. A broken contract is a packaging error, so it fails construction
// rather than serving a spec that does not parse.
func NewRouter(
	query ports.QueryIntelligenceService,
	sessions ports.SessionManager,
	ingestor ports.DocumentIngestor,
	docs ports.DocumentReader,
	m *metrics.HTTPServerMetrics,
	opts Options,
) (*Router, error) {
	if err := validateOpenAPISpec(); err != nil {
		return nil, err
	}
	return &Router{
		query:    query,
		sessions: sessions,
		ingestor: ingestor,
		docs:     docs,
		metrics:  m,
		opts:     opts,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/openapi.yaml", rt.serveOpenAPISpec)
	mux.HandleFunc("/v1/query", rt.queryIntelligence)
	mux.HandleFunc("/v1/databases/query", rt.queryDatabases)
	mux.HandleFunc("/v1/documents/search", rt.searchDocuments)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/sessions", rt.createSession)
	mux.HandleFunc("/v1/sessions/", rt.sessionByID)

	var handler http.Handler = rt.metrics.Middleware("api", mux)
	handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, rt.opts.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query           string                `json:"query"`
	MaxResults      int                   `json:"max_results"`
	NewConversation bool                  `json:"new_conversation"`
	Options         *domain.SearchOptions `json:"options"`
}

func (rt *Router) queryIntelligence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	resp, err := rt.query.QueryIntelligence(r.Context(), req.Query, req.MaxResults, req.NewConversation, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.metrics.Query().ObserveQuery(resp, time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	chunks, err := rt.query.SearchDocuments(r.Context(), req.Query, req.MaxResults, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	if chunks == nil {
		chunks = []domain.DocumentChunk{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": chunks,
		"count":   len(chunks),
	})
}

func (rt *Router) queryDatabases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	resp, err := rt.query.QueryMultipleDatabases(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	sessionID, err := rt.sessions.StartNewConversation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// sessionByID serves DELETE /v1/sessions/{id} and GET /v1/sessions/{id}/history.
func (rt *Router) sessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")

	if sessionID, ok := strings.CutSuffix(rest, "/history"); ok {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		if sessionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
			return
		}
		history, err := rt.sessions.GetHistory(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"session_id": sessionID,
			"history":    history,
		})
		return
	}

	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}
	if err := rt.sessions.ResetSession(r.Context(), rest); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		r.FormValue("uploaded_by"),
		r.FormValue("language"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
