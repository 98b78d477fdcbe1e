package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/scholar-rag/internal/config"
	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/core/ports"
	"github.com/kirillkom/scholar-rag/internal/core/usecase"
	"github.com/kirillkom/scholar-rag/internal/core/workflow"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/pdf"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/search/arxiv"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/vector/memory"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/scholar-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Graph   *workflow.Graph
	Queue   *nats.Queue
	Catalog *postgres.PaperRepository
	Runs    *postgres.RunRepository

	QueryUC   *usecase.QueryUseCase
	IngestUC  *usecase.IngestUseCase
	ProcessUC *usecase.ProcessPaperUseCase
	StatsUC   *usecase.StatsUseCase

	closeFn func()
}

type options struct {
	service    string
	registerer prometheus.Registerer
	queue      bool
	onLag      func(time.Duration)
}

type Option func(*options)

// WithMetrics registers graph and upstream collectors under service.
func WithMetrics(registerer prometheus.Registerer, service string) Option {
	return func(o *options) {
		o.registerer = registerer
		o.service = service
	}
}

// WithQueueLag observes the delay between publishing and consuming paper events.
func WithQueueLag(fn func(time.Duration)) Option {
	return func(o *options) {
		o.onLag = fn
	}
}

// WithoutQueue skips the NATS connection even when it is enabled in config.
func WithoutQueue() Option {
	return func(o *options) {
		o.queue = false
	}
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{service: "scholar-rag", queue: cfg.NATSEnabled}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var resMetrics *metrics.ResilienceMetrics
	var graphOpts []workflow.Option
	if o.registerer != nil {
		resMetrics = metrics.NewResilienceMetrics(o.registerer, o.service)
		graphOpts = append(graphOpts, workflow.WithObserver(metrics.NewGraphMetrics(o.registerer, o.service)))
	}
	executor := newExecutor(cfg, resMetrics)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	catalog := postgres.NewPaperRepository(db)
	runs := postgres.NewRunRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	model, embedder := newModels(cfg, executor)
	store, err := newKnowledgeStore(ctx, cfg, db, embedder, executor)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init knowledge store: %w", err)
	}

	var searcher ports.PaperSearcher = arxiv.New(cfg.ArxivURL,
		arxiv.WithExecutor(executor),
		arxiv.WithInterval(cfg.ArxivInterval),
	)
	if cfg.ArxivCacheTTL > 0 {
		searcher = arxiv.NewCachedSearcher(searcher, cfg.ArxivCacheTTL)
	}
	chunker := chunking.NewPaperChunker(chunking.NewDefaultSplitter())

	registry := workflow.NewRegistry()
	registry.MustRegister("llm", model).
		MustRegister("store", store).
		MustRegister("search", searcher).
		MustRegister("chunker", chunker).
		MustRegister("catalog", catalog).
		MustRegister("settings", workflow.Settings{
			Domain:           cfg.Domain,
			DomainDefinition: cfg.DomainDefinition,
			OnTopicHints:     cfg.OnTopicHints,
			OffTopicHints:    cfg.OffTopicHints,
			MaxSearchResults: cfg.MaxSearchResults,
			MaxIterations:    cfg.MaxIterations,
		})
	graph, err := workflow.Build(registry, graphOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build graph: %w", err)
	}

	var queue *nats.Queue
	var events ports.IndexEventPublisher
	if o.queue {
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			OnLag:              o.onLag,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		events = queue
	}

	downloader := pdf.NewDownloader(pdf.WithExecutor(executor))
	inspector := pdf.NewInspector(storage)

	slog.InfoContext(ctx, "bootstrap_ready",
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbedProvider,
		"knowledge_store", cfg.KnowledgeStore,
		"domain", cfg.Domain,
		"max_iterations", graph.MaxIterations(),
		"queue", queue != nil,
	)

	return &App{
		Config:  cfg,
		Graph:   graph,
		Queue:   queue,
		Catalog: catalog,
		Runs:    runs,

		QueryUC:   usecase.NewQueryUseCase(graph, runs, events),
		IngestUC:  usecase.NewIngestUseCase(graph, store, events),
		ProcessUC: usecase.NewProcessPaperUseCase(catalog, downloader, storage, inspector),
		StatsUC:   usecase.NewStatsUseCase(store, catalog),

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newExecutor(cfg config.Config, m *metrics.ResilienceMetrics) *resilience.Executor {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	rc.BreakerEnabled = cfg.BreakerEnabled
	// Per-operation retry budgets; unlisted operations use RetryMaxAttempts.
	rc.OperationAttempts = map[string]int{
		"pdf.download": 2,
		"nats.publish": 2,
	}
	if m != nil {
		rc.OnRetry = m.Retry
		rc.OnStateChange = m.StateChange
	}
	return resilience.NewExecutor(rc)
}

func newModels(cfg config.Config, executor *resilience.Executor) (ports.ChatModel, ports.Embedder) {
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
		ollama.WithExecutor(executor),
		ollama.WithTemperature(cfg.Temperature),
	)
	openaiClient := openaicompat.New(cfg.OpenAIBaseURL, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel,
		openaicompat.WithAPIKey(cfg.OpenAIAPIKey),
		openaicompat.WithExecutor(executor),
		openaicompat.WithTemperature(cfg.Temperature),
	)

	var model ports.ChatModel = ollama.NewChatModel(ollamaClient)
	if cfg.LLMProvider == "openai" {
		model = openaiClient
	}

	var embedder ports.Embedder
	switch cfg.EmbedProvider {
	case "openai":
		embedder = openaicompat.NewEmbedder(openaiClient)
	case "hash":
		embedder = hashing.New(cfg.HashDims)
	default:
		embedder = ollama.NewEmbedder(ollamaClient)
	}
	return model, embedder
}

func newKnowledgeStore(
	ctx context.Context,
	cfg config.Config,
	db *sql.DB,
	embedder ports.Embedder,
	executor *resilience.Executor,
) (ports.KnowledgeStore, error) {
	switch cfg.KnowledgeStore {
	case "memory":
		return memory.New(embedder), nil
	case "pgvector":
		store, err := pgvector.New(db, cfg.PgvectorTable, cfg.PgvectorDims, embedder)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder, qdrant.WithExecutor(executor)), nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "select knowledge store",
			fmt.Errorf("unknown backend %q", cfg.KnowledgeStore))
	}
}
