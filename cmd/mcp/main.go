// The mcp binary serves the query engine as MCP tools over stdio. Logs go to
// stderr because stdout carries the protocol.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/unimind/uniquery/internal/adapters/mcp"
	"github.com/unimind/uniquery/internal/bootstrap"
	"github.com/unimind/uniquery/internal/config"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "mcp"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.QueryUC, app.Sessions, version)
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
