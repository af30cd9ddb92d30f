package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/analysis"
	"linkedin-optimizer/internal/content"
	"linkedin-optimizer/internal/extract"
	"linkedin-optimizer/internal/llm"
	"linkedin-optimizer/internal/llm/gemini"
	"linkedin-optimizer/internal/llm/openai"
	"linkedin-optimizer/internal/optimizations"
	"linkedin-optimizer/internal/profile"
	"linkedin-optimizer/internal/progress"
	"linkedin-optimizer/internal/prompts"
	"linkedin-optimizer/internal/queue"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/server"
	"linkedin-optimizer/internal/shared/storage/db"
	"linkedin-optimizer/internal/shared/storage/object"
	localstore "linkedin-optimizer/internal/shared/storage/object/local"
	s3store "linkedin-optimizer/internal/shared/storage/object/s3"
	"linkedin-optimizer/internal/shared/telemetry"
	"linkedin-optimizer/internal/workflow"
)

const (
	llmRetryAttempts  = 3
	llmRetryBaseDelay = 500 * time.Millisecond
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Objects   object.ObjectStore
	Queue     queue.Client
	Progress  progress.Store
	LLM       llm.Generator
	Prompts   *prompts.Catalog
	Workflow  *workflow.Workflow
	Generator *content.Generator
	Handler   *optimizations.Handler
}

// Build wires the application from configuration.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	catalog, err := buildPrompts(cfg)
	if err != nil {
		return nil, err
	}
	generator, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, LLM: generator, Prompts: catalog}

	if app.Progress, app.DB, err = buildProgress(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Objects, err = buildObjects(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}

	rec := progress.NewRecorder(app.Progress)
	app.Generator = content.NewGenerator(generator, catalog, rec)
	app.Workflow = workflow.New(workflow.Deps{
		Collector: profile.NewCollector(generator, extract.PDFExtractor{}, catalog, rec),
		Analyzer:  analysis.NewAnalyzer(generator, catalog, rec),
		Generator: app.Generator,
		Store:     app.Progress,
	})
	app.Handler = optimizations.NewHandler(optimizations.Deps{
		Workflow:      app.Workflow,
		Posts:         app.Generator,
		Objects:       app.Objects,
		Queue:         app.Queue,
		MaxFileSize:   cfg.MaxFileSize,
		Provider:      cfg.LLMProvider,
		HasDefaultKey: cfg.DefaultAPIKey() != "",
	})
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		Optimizations: app.Handler,
	})

	return app, nil
}

func buildPrompts(cfg config.Config) (*prompts.Catalog, error) {
	if strings.TrimSpace(cfg.PromptsFile) == "" {
		return prompts.Default(), nil
	}
	catalog, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return catalog, nil
}

// buildLLM returns the configured provider. Without a server key the
// generator only works with a per-request key.
func buildLLM(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	var bind func(apiKey string) (llm.Generator, error)
	switch cfg.LLMProvider {
	case "gemini":
		opts := gemini.Options{
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			JSONMode:    true,
		}
		bind = func(apiKey string) (llm.Generator, error) {
			return gemini.NewClient(ctx, apiKey, opts)
		}
	default:
		opts := openai.Options{
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     timeout,
			JSONMode:    true,
		}
		bind = func(apiKey string) (llm.Generator, error) {
			return openai.NewClient(apiKey, opts)
		}
	}

	key := cfg.DefaultAPIKey()
	if key == "" {
		telemetry.Warn("bootstrap.llm.no_default_key", map[string]any{"provider": cfg.LLMProvider})
		return llm.WithRetry(llm.Unconfigured{Provider: cfg.LLMProvider, Bind: bind}, llmRetryAttempts, llmRetryBaseDelay), nil
	}
	g, err := bind(key)
	if err != nil {
		return nil, fmt.Errorf("build %s client: %w", cfg.LLMProvider, err)
	}
	return llm.WithRetry(g, llmRetryAttempts, llmRetryBaseDelay), nil
}

func buildProgress(ctx context.Context, cfg config.Config) (progress.Store, *sql.DB, error) {
	ttl := time.Duration(cfg.ResultTTLDays) * 24 * time.Hour
	switch cfg.ProgressStore {
	case "dynamodb":
		client, err := progress.NewDynamoClient(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, nil, err
		}
		store := progress.NewDynamoStore(client, cfg.DynamoTable, ttl)
		store.Environment = cfg.Env
		return store, nil, nil
	case "postgres":
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return progress.NewPGStore(sqlDB, ttl), sqlDB, nil
	case "memory":
		return progress.NewMemoryStore(ttl), nil, nil
	default:
		telemetry.Warn("bootstrap.progress.disabled", map[string]any{"store": cfg.ProgressStore})
		return progress.DisabledStore{}, nil, nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		return db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	}
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	return db.Connect(ctx, cfg.DatabaseURL, opts)
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
}
