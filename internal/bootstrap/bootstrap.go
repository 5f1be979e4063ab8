package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verirag/verirag/internal/config"
	"github.com/verirag/verirag/internal/core/ports"
	"github.com/verirag/verirag/internal/core/usecase"
	"github.com/verirag/verirag/internal/infrastructure/chunking"
	"github.com/verirag/verirag/internal/infrastructure/extractor/pdfextract"
	"github.com/verirag/verirag/internal/infrastructure/llm/openai"
	natsqueue "github.com/verirag/verirag/internal/infrastructure/queue/nats"
	"github.com/verirag/verirag/internal/infrastructure/repository/postgres"
	"github.com/verirag/verirag/internal/infrastructure/resilience"
	"github.com/verirag/verirag/internal/infrastructure/storage/localfs"
	"github.com/verirag/verirag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Repo     ports.DocumentRepository
	Queue    ports.IngestQueue
	IngestUC ports.DocumentIngestor
	QueryUC  ports.QueryService

	closeFn func()
}

// New wires every adapter behind the use cases. The queue connection is
// only opened in async mode; sync deployments never touch NATS.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := repo.CheckEmbeddingConfig(ctx, cfg.QdrantCollection, cfg.OpenAIEmbeddingModel); err != nil {
		_ = db.Close()
		return nil, err
	}

	storage, err := localfs.NewStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	llmClient, err := openai.New(openai.Settings{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		EmbeddingModel:  cfg.OpenAIEmbeddingModel,
		GenerationModel: cfg.OpenAIGenerationModel,
		Timeout:         time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
	}, executor)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	embedder := openai.NewEmbedder(llmClient)
	generator := openai.NewGenerator(llmClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := pdfextract.NewExtractor(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, extractor, chunker, embedder, vectorDB)
	verifier := usecase.NewVerifier(generator)
	queryUC := usecase.NewQueryUseCase(embedder, vectorDB, verifier)

	var queue *natsqueue.Queue
	if cfg.IngestMode == config.IngestModeAsync {
		queue, err = natsqueue.NewQueue(cfg.NATSURL, cfg.NATSSubject, log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init ingest queue: %w", err)
		}
		ingestUC.WithAsyncQueue(queue)
	}

	app := &App{
		Config:   cfg,
		Repo:     repo,
		IngestUC: ingestUC,
		QueryUC:  queryUC,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}
	if queue != nil {
		app.Queue = queue
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
