package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/documents"
	"slidebanai-backend/internal/expand"
	"slidebanai-backend/internal/export"
	"slidebanai-backend/internal/export/googleslides"
	"slidebanai-backend/internal/extract"
	"slidebanai-backend/internal/llm"
	openai "slidebanai-backend/internal/llm/openai"
	"slidebanai-backend/internal/outline"
	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/presentations"
	"slidebanai-backend/internal/preview"
	"slidebanai-backend/internal/queue"
	"slidebanai-backend/internal/shared/auth"
	"slidebanai-backend/internal/shared/config"
	"slidebanai-backend/internal/shared/server"
	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/storage/db"
	"slidebanai-backend/internal/shared/storage/object"
	localstore "slidebanai-backend/internal/shared/storage/object/local"
	s3store "slidebanai-backend/internal/shared/storage/object/s3"
	"slidebanai-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Redis  *redis.Client

	Signer               *auth.Signer
	CreditsService       *credits.Service
	DocumentsService     *documents.Service
	PresentationsService *presentations.Service
	Orchestrator         *pipeline.Orchestrator
	FinalizeProcessor    FinalizeProcessor

	CreditsHandler      *credits.Handler
	DocumentsHandler    *documents.Handler
	PresentationHandler *presentations.Handler
}

// FinalizeProcessor allows callers to override finalize processing for tests.
type FinalizeProcessor interface {
	ProcessFinalize(ctx context.Context, presentationID string) (pipeline.State, error)
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.Configure(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := buildRedis(cfg)
	if err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Redis:  redisClient,
		Signer: signer,
	}

	if err := buildServices(ctx, app); err != nil {
		return nil, err
	}

	var limiter middleware.RateLimitBackend = middleware.NewMemoryLimiter(nil)
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		Verifier:            signer,
		RateLimiter:         limiter,
		CreditsHandler:      app.CreditsHandler,
		DocumentHandler:     app.DocumentsHandler,
		PresentationHandler: app.PresentationHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.DefaultLambdaOptions().WithOverrides(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.DefaultServerOptions().WithOverrides(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func buildRedis(cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && isDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"reason": "OPENAI_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Options{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.GenerationTimeout,
	})
}

func buildExporter(ctx context.Context, cfg config.Config) (pipeline.DeckExporter, error) {
	keyJSON := []byte(strings.TrimSpace(cfg.GoogleServiceAccountKey))
	if len(keyJSON) == 0 && strings.TrimSpace(cfg.GoogleServiceAccountFile) != "" {
		b, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read google service account file: %w", err)
		}
		keyJSON = b
	}
	if len(keyJSON) == 0 {
		telemetry.Warn("bootstrap.export_unconfigured", map[string]any{"reason": "no google service account"})
		return export.Unconfigured{}, nil
	}
	client, err := googleslides.NewFromServiceAccount(ctx, keyJSON, cfg.ExportTimeout)
	if err != nil {
		return nil, err
	}
	return export.New(client), nil
}

func buildServices(ctx context.Context, app *App) error {
	cfg := app.Config

	var docRepo documents.DocumentsRepo
	var presRepo presentations.Repo
	plan := credits.Plan{Name: cfg.CreditsPlan, Limit: cfg.CreditsLimit, Period: credits.DefaultPlan().Period}
	var creditSvc *credits.Service

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		presRepo = &presentations.PGRepo{DB: app.DB}
		creditSvc = credits.NewPostgresService(credits.NewPGStore(app.DB, plan))
	} else {
		docRepo = documents.NewMemoryRepo()
		presRepo = presentations.NewMemoryRepo()
		creditSvc = credits.NewService(plan)
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return err
	}
	exporter, err := buildExporter(ctx, cfg)
	if err != nil {
		return err
	}

	limits := deck.SlideLimits{Min: cfg.MinSlides, Max: cfg.MaxSlides, Default: cfg.DefaultSlides}
	extractor := extract.New(extract.NewTesseractEngine(cfg.OCRTesseractPath, cfg.OCRLanguage))

	orch := &pipeline.Orchestrator{
		Extractor: extractor,
		Outliner:  outline.New(llmClient, limits),
		Expander:  expand.New(llmClient),
		Exporter:  exporter,
		Credits:   creditSvc,
		Limits:    limits,
		Budgets: pipeline.Budgets{
			Extraction: cfg.ExtractTimeout,
			Generation: cfg.GenerationTimeout,
			Export:     cfg.ExportTimeout,
		},
		Costs: pipeline.Costs{Outline: cfg.CreditsOutlineCost, Finalize: cfg.CreditsFinalizeCost},
	}

	presSvc := &presentations.Service{
		Repo:         presRepo,
		Pipeline:     orch,
		Queue:        app.Queue,
		Previews:     preview.NewPublisher(app.Store),
		Credits:      creditSvc,
		FinalizeCost: cfg.CreditsFinalizeCost,
	}
	docSvc := &documents.Service{Extractor: extractor, Repo: docRepo}

	app.CreditsService = creditSvc
	app.DocumentsService = docSvc
	app.PresentationsService = presSvc
	app.Orchestrator = orch
	app.FinalizeProcessor = presSvc
	app.CreditsHandler = credits.NewHandler(creditSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc, cfg.MaxUploadBytes)
	app.PresentationHandler = presentations.NewHandler(presSvc, cfg.MaxUploadBytes)
	return nil
}
