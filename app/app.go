// Package app builds the RAG service and its collaborators from configuration.
// The server and the command line tools share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"officialqa-backend/config"
	"officialqa-backend/embedding"
	"officialqa-backend/generation"
	"officialqa-backend/repository"
	"officialqa-backend/service"
	"officialqa-backend/storage"
	"officialqa-backend/vectorstore"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

// App holds the wired service and the resources it owns
type App struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Officials *repository.OfficialRepository
	Service   *service.RAGService

	gemini *genai.Client
}

// New connects to the configured backends and wires the RAG service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	needDB := cfg.VectorStore == config.VectorStorePostgres || cfg.OfficialsFile == ""
	if needDB {
		db, err := InitPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		a.DB = db
		a.Officials = repository.NewOfficialRepository(db)
	}

	if cfg.EmbeddingProvider == config.ProviderGemini || cfg.GenerationProvider == config.ProviderGemini {
		client, err := InitGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
		}
		a.gemini = client
	}

	entities, err := a.entitySource()
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.vectorStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder, err := a.embedder()
	if err != nil {
		a.Close()
		return nil, err
	}

	generator, err := a.generator()
	if err != nil {
		a.Close()
		return nil, err
	}

	if embedder.Dimensions() != store.Dimensions() {
		log.Printf("Warning: embedding provider produces %d dimensions but the store expects %d; every chunk will fail to index",
			embedder.Dimensions(), store.Dimensions())
	}

	a.Service = service.NewRAGService(
		service.WithVectorStore(store),
		service.WithEntitySource(entities),
		service.WithEmbedder(embedder),
		service.WithSynthesizer(service.NewSynthesizer(generator,
			service.WithThresholds(cfg.ConfidenceHigh, cfg.ConfidenceMedium),
			service.WithMaxContextChars(cfg.MaxContextChars),
			service.WithGenerateTimeout(cfg.GenerateTimeout),
		)),
		service.WithTopK(cfg.TopK),
		service.WithPacer(service.NewRatePacer(cfg.IngestRatePerSec, 1)),
		service.WithMaxConsecutiveFailures(cfg.IngestMaxConsecutiveFailures),
		service.WithEntityTimeout(cfg.IngestEntityTimeout),
	)

	log.Printf("RAG service ready (store=%s, embeddings=%s, generation=%s)",
		cfg.VectorStore, embedder.Name(), generator.Name())
	return a, nil
}

// Close releases the database pool and the Gemini client
func (a *App) Close() {
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			log.Printf("Warning: failed to close Gemini client: %v", err)
		}
		a.gemini = nil
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

func (a *App) entitySource() (service.EntitySource, error) {
	if a.Config.OfficialsFile == "" {
		return a.Officials, nil
	}
	officials, err := repository.LoadOfficialsFile(a.Config.OfficialsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("Serving %d officials from %s", len(officials), a.Config.OfficialsFile)
	return repository.NewStaticOfficialSource(officials)
}

func (a *App) vectorStore(ctx context.Context) (service.VectorStore, error) {
	switch a.Config.VectorStore {
	case config.VectorStorePostgres:
		return repository.NewEmbeddingRepository(a.DB, a.Config.EmbeddingDimensions,
			repository.WithEfSearch(a.Config.HNSWEfSearch)), nil
	case config.VectorStoreMemory:
		blobs, err := storage.NewStorageFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot storage: %w", err)
		}
		store := vectorstore.NewPersistentStore(blobs, a.Config.EmbeddingDimensions)
		if err := store.Load(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", a.Config.VectorStore)
	}
}

func (a *App) embedder() (*embedding.FallbackProvider, error) {
	cfg := a.Config
	var primary embedding.Provider

	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		p, err := embedding.NewGeminiProvider(a.gemini, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		primary = p
	case config.ProviderOpenAI:
		p, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		})
		if err != nil {
			log.Printf("Warning: %v; embeddings will use the local hash provider", err)
		} else {
			primary = p
		}
	case config.ProviderHash:
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbeddingProvider)
	}

	return embedding.NewFallbackProvider(primary, cfg.EmbeddingDimensions,
		embedding.WithTimeout(cfg.EmbedTimeout)), nil
}

func (a *App) generator() (generation.Generator, error) {
	cfg := a.Config
	switch cfg.GenerationProvider {
	case config.ProviderGemini:
		return generation.NewGeminiGenerator(a.gemini, cfg.GenerationModel)
	case config.ProviderOpenAI:
		return generation.NewOpenAIGenerator(generation.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.GenerationModel,
		})
	default:
		return nil, errors.New("unknown generation provider: " + cfg.GenerationProvider)
	}
}

// InitPostgres opens and pings a connection pool
func InitPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Println("Postgres connection established")
	return pool, nil
}

// InitGemini creates a Gemini client
func InitGemini(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}
