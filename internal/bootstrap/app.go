package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-memdb"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/queue"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/server"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/storage/db"
	"docflow-backend/internal/shared/storage/memstore"
	"docflow-backend/internal/shared/storage/object"
	localstore "docflow-backend/internal/shared/storage/object/local"
	s3store "docflow-backend/internal/shared/storage/object/s3"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/signatures"
	"docflow-backend/internal/users"
)

const devJWTSecret = "docflow-dev-secret"

// App holds the wired dependency graph.
type App struct {
	Config config.Config
	Router *gin.Engine
	// DB is nil when running on in-memory repositories.
	DB      *sql.DB
	Mem     *memdb.MemDB
	Store   object.ObjectStore
	Metrics *metrics.Metrics
	Tokens  *auth.Tokens
	// Queue carries integrity audit jobs; nil when AUDIT_QUEUE_URL is unset.
	Queue queue.Client

	UsersRepo      users.Repo
	DocumentsRepo  documents.DocumentsRepo
	SignaturesRepo signatures.Repo

	UsersService      *users.Service
	DocumentsService  *documents.Service
	SignaturesService *signatures.Service

	UsersHandler      *users.Handler
	DocumentsHandler  *documents.Handler
	SignaturesHandler *signatures.Handler
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New()
	if err != nil {
		return nil, err
	}
	tokens, err := buildTokens(cfg)
	if err != nil {
		return nil, err
	}
	auditQueue, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Metrics: m,
		Tokens:  tokens,
		Queue:   auditQueue,
	}
	if err := buildRepos(app); err != nil {
		return nil, err
	}
	buildServices(app)

	var ping func(context.Context) error
	if app.DB != nil {
		ping = app.DB.PingContext
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		Tokens:           tokens,
		Metrics:          m,
		Ping:             ping,
		DocumentHandler:  app.DocumentsHandler,
		SignatureHandler: app.SignaturesHandler,
		UserHandler:      app.UsersHandler,
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() || cfg.Env == "test" {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	defaults := db.DefaultServerOptions()
	if db.IsLambdaRuntime() {
		defaults = db.DefaultLambdaOptions()
	}
	opts, err := db.OptionsFromEnv(defaults)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_store", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			KMSKeyID:        cfg.SSEKMSKeyID,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.AuditQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.AuditQueueURL)
}

func buildTokens(cfg config.Config) (*auth.Tokens, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		if !cfg.IsDevLike() && cfg.Env != "test" {
			return nil, errors.New("JWT_SECRET is required")
		}
		telemetry.Warn("bootstrap.dev_jwt_secret", nil)
		secret = devJWTSecret
	}
	return auth.NewTokens(secret, cfg.JWTIssuer, cfg.JWTTTL), nil
}

func buildRepos(app *App) error {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.SignaturesRepo = &signatures.PGRepo{DB: app.DB}
		return nil
	}
	mem, err := memstore.New()
	if err != nil {
		return fmt.Errorf("memstore: %w", err)
	}
	app.Mem = mem
	app.UsersRepo = users.NewMemoryRepo()
	app.DocumentsRepo = documents.NewMemoryRepo(mem)
	app.SignaturesRepo = signatures.NewMemoryRepo(mem)
	return nil
}

func buildServices(app *App) {
	cfg := app.Config
	app.UsersService = users.NewService(app.UsersRepo)
	app.DocumentsService = documents.NewService(app.Store, app.DocumentsRepo, app.Metrics, cfg.MaxUploadBytes)
	app.SignaturesService = signatures.NewService(app.SignaturesRepo, app.UsersService, app.DocumentsService, app.Metrics)

	app.UsersHandler = users.NewHandler(app.UsersService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.SignaturesHandler = signatures.NewHandler(app.SignaturesService, signLimiter(cfg))
}

// signLimiter throttles signing per user; a non-positive rate disables it.
func signLimiter(cfg config.Config) gin.HandlerFunc {
	if cfg.SignRatePerSec <= 0 {
		return nil
	}
	burst := cfg.SignRateBurst
	if burst <= 0 {
		burst = 1
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        map[string]middleware.RateLimitRule{"SIGN": {Rate: cfg.SignRatePerSec, Burst: burst}},
		DefaultGroup: "SIGN",
		Limiter:      middleware.NewRateLimiter(time.Now),
	})
}
