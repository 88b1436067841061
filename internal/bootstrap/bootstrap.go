// Package bootstrap wires configuration into the object graph shared by the
// api and worker binaries: LLM provider, session backend, vector backend,
// database gateway, queue, and the use cases on top of them.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/unimind/uniquery/internal/config"
	"github.com/unimind/uniquery/internal/core/ports"
	"github.com/unimind/uniquery/internal/core/usecase"
	"github.com/unimind/uniquery/internal/infrastructure/chunking"
	"github.com/unimind/uniquery/internal/infrastructure/extractor/plaintext"
	"github.com/unimind/uniquery/internal/infrastructure/llm"
	"github.com/unimind/uniquery/internal/infrastructure/llm/anthropic"
	"github.com/unimind/uniquery/internal/infrastructure/llm/ollama"
	"github.com/unimind/uniquery/internal/infrastructure/llm/openai"
	"github.com/unimind/uniquery/internal/infrastructure/media"
	"github.com/unimind/uniquery/internal/infrastructure/queue/nats"
	"github.com/unimind/uniquery/internal/infrastructure/repository/postgres"
	"github.com/unimind/uniquery/internal/infrastructure/resilience"
	sessionmemory "github.com/unimind/uniquery/internal/infrastructure/session/memory"
	sessionpostgres "github.com/unimind/uniquery/internal/infrastructure/session/postgres"
	sessionredis "github.com/unimind/uniquery/internal/infrastructure/session/redis"
	sessionsqlite "github.com/unimind/uniquery/internal/infrastructure/session/sqlite"
	"github.com/unimind/uniquery/internal/infrastructure/sqldb"
	"github.com/unimind/uniquery/internal/infrastructure/storage/localfs"
	vectormemory "github.com/unimind/uniquery/internal/infrastructure/vector/memory"
	"github.com/unimind/uniquery/internal/infrastructure/vector/qdrant"
	"github.com/unimind/uniquery/internal/infrastructure/watcher"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Gateway   ports.DatabaseGateway
	Sessions  ports.SessionManager
	QueryUC   ports.QueryIntelligenceService
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	// Intelligence is the concrete query pipeline behind QueryUC, exposed so
	// binaries can attach an observer.
	Intelligence *usecase.IntelligenceUseCase

	// Watcher is non-nil only when WATCH_DIR is configured.
	Watcher *watcher.Watcher

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	text, embeddings, err := buildProviders(cfg, executor)
	if err != nil {
		return nil, err
	}
	classifier := llm.NewClassifier(text)
	generator := llm.NewGenerator(text)
	embedder := llm.NewEmbedder(embeddings)

	sessionStore, err := app.buildSessionStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	vectorStore, err := buildVectorStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	gateway, err := buildGateway(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, func() {
		_ = gateway.Close()
	})
	app.Gateway = gateway

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}
	app.Repo = repo

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.closers = append(app.closers, queue.Close)
	app.Queue = queue

	var ocr ports.OCREngine
	if cfg.OCRURL != "" {
		ocr = media.NewOCRClient(cfg.OCRURL)
	}
	var transcriber ports.Transcriber
	if cfg.TranscriberURL != "" {
		transcriber = media.NewTranscriberClient(cfg.TranscriberURL)
	}

	chunker := chunking.NewMarkdownSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := plaintext.NewExtractor(storage)

	sessions := usecase.NewSessionUseCase(sessionStore, cfg.SessionMaxTurns)
	intent := usecase.NewIntentUseCase(classifier, gateway, seconds(cfg.IntentTimeoutSeconds))
	databases := usecase.NewMultiDatabaseUseCase(gateway, generator, cfg.MaxParallelDatabases, cfg.SQLAttempts)
	documents := usecase.NewDocumentSearchUseCase(embedder, vectorStore, cfg.HybridCandidates, cfg.ExpandAdjacent)
	merger := usecase.NewMergeUseCase(generator)

	app.Sessions = sessions
	app.Intelligence = usecase.NewIntelligenceUseCase(intent, databases, documents, merger, sessions, generator, gateway, usecase.Limits{
		MaxResults:      cfg.TopK,
		DatabaseTimeout: seconds(cfg.DatabaseTimeoutSeconds),
		DocumentTimeout: seconds(cfg.DocumentTimeoutSeconds),
		MergeTimeout:    seconds(cfg.MergeTimeoutSeconds),
		AnswerTimeout:   seconds(cfg.AnswerTimeoutSeconds),
	})
	app.QueryUC = app.Intelligence
	app.IngestUC = usecase.NewIngestDocumentUseCase(repo, storage, queue)
	app.ProcessUC = usecase.NewProcessDocumentUseCase(repo, storage, extractor, ocr, transcriber, chunker, embedder, vectorStore)

	if cfg.WatchDir != "" {
		w, err := watcher.New(app.IngestUC, cfg.WatchDir, nil)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init drop-directory watcher: %w", err)
		}
		app.Watcher = w
	}

	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildProviders selects the model backend. Anthropic has no embeddings API,
// so that provider pairs Anthropic text generation with Ollama embeddings.
func buildProviders(cfg config.Config, executor *resilience.Executor) (llm.TextProvider, llm.EmbeddingProvider, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return client, client, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("llm provider openai requires OPENAI_API_KEY")
		}
		client := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel)
		return client, client, nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, nil, fmt.Errorf("llm provider anthropic requires ANTHROPIC_API_KEY")
		}
		text := anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		embeddings := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return text, embeddings, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func (a *App) buildSessionStore(ctx context.Context, cfg config.Config) (ports.SessionStore, error) {
	switch cfg.SessionBackend {
	case "memory":
		return sessionmemory.New(), nil
	case "redis":
		store := sessionredis.New(sessionredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      seconds(cfg.SessionTTLSeconds),
		})
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case "postgres":
		store, err := sessionpostgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres session store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case "sqlite":
		store, err := sessionsqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite session store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func buildVectorStore(cfg config.Config) (ports.VectorStore, error) {
	switch cfg.VectorBackend {
	case "memory":
		return vectormemory.New(), nil
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// buildGateway opens the configured database connections and starts the
// background schema refresh. An empty DATABASES_FILE yields a gateway with no
// connections; the engine then routes everything to the document index.
func buildGateway(ctx context.Context, cfg config.Config) (*sqldb.Gateway, error) {
	connections, err := config.LoadDatabases(cfg.DatabasesFile)
	if err != nil {
		return nil, fmt.Errorf("load database connections: %w", err)
	}

	configs := make([]sqldb.ConnectionConfig, len(connections))
	for i, conn := range connections {
		configs[i] = sqldb.ConnectionConfig{
			Name:             conn.Name,
			Dialect:          conn.Dialect,
			DSN:              conn.DSN,
			MaxRows:          conn.MaxRows,
			QueryTimeout:     seconds(conn.QueryTimeoutSeconds),
			SensitiveColumns: conn.SensitiveColumns,
		}
	}

	gateway, err := sqldb.NewGateway(configs)
	if err != nil {
		return nil, fmt.Errorf("init database gateway: %w", err)
	}
	gateway.SetSchemaRefreshInterval(seconds(cfg.SchemaRefreshSeconds))
	gateway.StartSchemaRefresh(ctx)
	return gateway, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
