// Package mcpadapter exposes the query engine as MCP tools over stdio so
// agent frontends can call it without going through the REST surface.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unimind/uniquery/internal/core/domain"
	"github.com/unimind/uniquery/internal/core/ports"
)

type Server struct {
	query    ports.QueryIntelligenceService
	sessions ports.SessionManager
	mcp      *server.MCPServer
}

func NewServer(query ports.QueryIntelligenceService, sessions ports.SessionManager, version string) *Server {
	s := &Server{
		query:    query,
		sessions: sessions,
		mcp:      server.NewMCPServer("uniquery", version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout until the
// client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("query_intelligence",
		mcp.WithDescription("Answer a natural language question using all configured sources: SQL databases, documents, images and audio transcripts. Returns an attributed answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The natural language question")),
		mcp.WithNumber("max_results", mcp.Description("Maximum evidence items per source (default 5)")),
		mcp.WithBoolean("new_conversation", mcp.Description("Start a fresh conversation session before answering")),
	), s.queryIntelligence)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Search the indexed documents, images and audio transcripts and return ranked text chunks without generating an answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of chunks to return (default 5)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("query_databases",
		mcp.WithDescription("Answer a question from the configured SQL databases only, skipping the document index."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The natural language question")),
		mcp.WithNumber("max_results", mcp.Description("Maximum rows per database (default 5)")),
	), s.queryDatabases)

	s.mcp.AddTool(mcp.NewTool("new_conversation",
		mcp.WithDescription("Discard the active conversation context and start a new session. Returns the new session id."),
	), s.newConversation)
}

func (s *Server) queryIntelligence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxResults := req.GetInt("max_results", domain.DefaultMaxResults)
	newConversation := req.GetBool("new_conversation", false)

	resp, err := s.query.QueryIntelligence(ctx, query, maxResults, newConversation, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxResults := req.GetInt("max_results", domain.DefaultMaxResults)

	chunks, err := s.query.SearchDocuments(ctx, query, maxResults, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if chunks == nil {
		chunks = []domain.DocumentChunk{}
	}
	return jsonResult(map[string]any{
		"results": chunks,
		"count":   len(chunks),
	})
}

func (s *Server) queryDatabases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxResults := req.GetInt("max_results", domain.DefaultMaxResults)

	resp, err := s.query.QueryMultipleDatabases(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) newConversation(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := s.sessions.StartNewConversation(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"session_id": sessionID})
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
