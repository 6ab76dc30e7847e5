package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"summary-backend/internal/documents"
	"summary-backend/internal/llm"
	"summary-backend/internal/llm/gemini"
	"summary-backend/internal/llm/openai"
	"summary-backend/internal/services/health"
	"summary-backend/internal/shared/auth"
	"summary-backend/internal/shared/config"
	"summary-backend/internal/shared/server"
	"summary-backend/internal/shared/server/middleware"
	"summary-backend/internal/shared/storage/db"
	"summary-backend/internal/shared/storage/object"
	localstore "summary-backend/internal/shared/storage/object/local"
	s3store "summary-backend/internal/shared/storage/object/s3"
	"summary-backend/internal/shared/telemetry"
	"summary-backend/internal/summaries"
	"summary-backend/internal/validation"
)

// devJWTSecret signs and verifies tokens in dev when no secret is set.
const devJWTSecret = "dev-only-jwt-secret"

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Repo             documents.Repo
	LLM              *llm.Gateway
	Verifier         *auth.Verifier
	Health           *health.Service
	DocumentsService *documents.Service
	SummariesService *summaries.Service
	DocumentsHandler *documents.Handler
	SummariesHandler *summaries.Handler
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gateway, err := buildGateway(cfg.LLM)
	if err != nil {
		return nil, err
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		LLM:      gateway,
		Verifier: verifier,
		Repo:     buildRepo(cfg, sqlDB),
	}
	buildServices(app)

	var tokens middleware.TokenVerifier
	if verifier != nil {
		tokens = verifier
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        tokens,
		Health:          app.Health,
		DocumentHandler: app.DocumentsHandler,
		SummaryHandler:  app.SummariesHandler,
	})

	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_missing", map[string]any{"fallback": "memory"})
		} else {
			telemetry.Error("bootstrap.database_missing", map[string]any{"fallback": "none"})
		}
		return nil, nil
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"fallback": "memory", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildRepo(cfg config.Config, sqlDB *sql.DB) documents.Repo {
	switch {
	case sqlDB != nil:
		return documents.NewPGRepo(sqlDB)
	case cfg.IsDevLike():
		return documents.NewMemoryRepo()
	default:
		return nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "none":
		return nil, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildGateway(cfg config.LLMConfig) (*llm.Gateway, error) {
	primary, err := buildProvider(cfg, cfg.PrimaryKind, cfg.PrimaryName, cfg.PrimaryBaseURL, cfg.PrimaryModel, cfg.PrimaryAPIKey)
	if err != nil {
		return nil, err
	}
	secondary, err := buildProvider(cfg, cfg.SecondaryKind, cfg.SecondaryName, cfg.SecondaryBaseURL, cfg.SecondaryModel, cfg.SecondaryAPIKey)
	if err != nil {
		return nil, err
	}
	gateway := llm.NewGateway(primary, secondary)
	if !gateway.Configured() {
		telemetry.Warn("bootstrap.llm_unconfigured", nil)
	}
	return gateway, nil
}

// buildProvider returns nil for disabled slots and slots without a key.
func buildProvider(cfg config.LLMConfig, kind, name, baseURL, model, apiKey string) (llm.Provider, error) {
	if kind == "none" || strings.TrimSpace(apiKey) == "" {
		return nil, nil
	}
	if kind == "gemini" {
		client, err := gemini.NewClient(context.Background(), name, model, apiKey)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	client, err := openai.NewClient(openai.Config{
		Name:    name,
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		Timeout: cfg.Timeout,
		Referer: cfg.Referer,
		AppName: cfg.AppName,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildVerifier(cfg config.Config) (*auth.Verifier, error) {
	secret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if secret == "" {
		if !cfg.IsDevLike() {
			telemetry.Error("bootstrap.auth_unconfigured", map[string]any{"effect": "all api requests are rejected"})
			return nil, nil
		}
		telemetry.Warn("bootstrap.auth_dev_secret", nil)
		secret = devJWTSecret
	}
	return auth.NewVerifier(secret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
}

func buildServices(app *App) {
	v := validation.New(validation.Limits{
		MaxFileBytes: app.Config.Limits.MaxFileBytes,
		MaxTextChars: app.Config.Limits.MaxTextChars,
		MaxTextWords: app.Config.Limits.MaxTextWords,
	})

	app.DocumentsService = documents.NewService(app.Repo, app.Store, v, app.Config.BackupTimeout)
	app.SummariesService = summaries.NewService(app.Repo, app.LLM, v)
	if app.Config.GenerateTimeout > 0 {
		app.SummariesService.GenerateTimeout = app.Config.GenerateTimeout
	}
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.SummariesHandler = summaries.NewHandler(app.SummariesService)

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Health = health.NewService(pinger, app.LLM)
}
