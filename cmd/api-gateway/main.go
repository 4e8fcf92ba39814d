package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/alumni-mentorship-api/api/swagger"
	"github.com/noah-isme/alumni-mentorship-api/internal/handler"
	internalmiddleware "github.com/noah-isme/alumni-mentorship-api/internal/middleware"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	"github.com/noah-isme/alumni-mentorship-api/internal/seed"
	"github.com/noah-isme/alumni-mentorship-api/internal/service"
	"github.com/noah-isme/alumni-mentorship-api/pkg/cache"
	"github.com/noah-isme/alumni-mentorship-api/pkg/config"
	"github.com/noah-isme/alumni-mentorship-api/pkg/database"
	"github.com/noah-isme/alumni-mentorship-api/pkg/jobs"
	"github.com/noah-isme/alumni-mentorship-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/alumni-mentorship-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/alumni-mentorship-api/pkg/middleware/requestid"
	"github.com/noah-isme/alumni-mentorship-api/pkg/storage"
)

// @title Alumni Mentorship API
// @version 1.0.0
// @description Mentor matching and mentorship connection lifecycle for the alumni network
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type mentorStore interface {
	ListAll(ctx context.Context) ([]models.MentorProfile, error)
	List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, int, error)
	FindByID(ctx context.Context, alumniID string) (*models.MentorProfile, error)
	Upsert(ctx context.Context, mentor *models.MentorProfile) error
	Deactivate(ctx context.Context, alumniID string) error
}

type requestStore interface {
	Create(ctx context.Context, req *models.MenteeRequest) error
	FindByID(ctx context.Context, id string) (*models.MenteeRequest, error)
	List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.MenteeRequestStatus) (*models.MenteeRequest, error)
}

type connectionStore interface {
	Create(ctx context.Context, conn *models.MentorshipConnection) error
	FindByID(ctx context.Context, id string) (*models.MentorshipConnection, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.MentorshipConnection, error)
	Update(ctx context.Context, id string, mutate func(*models.MentorshipConnection) error) (*models.MentorshipConnection, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ConnectionFilter) ([]models.MentorshipConnection, int, error)
}

type alumniDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Alumni, error)
	SearchIDs(ctx context.Context, term string) ([]string, error)
}

type repositories struct {
	alumni      alumniDirectory
	mentors     mentorStore
	requests    requestStore
	connections connectionStore
	checks      map[string]handler.ReadinessCheck
	close       func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer repos.close() //nolint:errcheck

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, suggestion cache disabled", zap.Error(err))
	}
	var cacheSvc *service.CacheService
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, cfg.Redis.Namespace, logr), metricsSvc, cfg.Matching.CacheTTL, logr, true)
		repos.checks["redis"] = redisCheck(redisClient)
	}

	validate := service.NewValidator()
	connectionSvc := service.NewConnectionService(repos.connections, repos.requests, repos.alumni, cacheSvc, metricsSvc, validate, logr)
	requestSvc := service.NewMenteeRequestService(repos.requests, cacheSvc, validate, logr)
	mentorSvc := service.NewMentorService(repos.mentors, cacheSvc, validate, logr)
	matchSvc := service.NewMatchService(repos.requests, repos.mentors, cacheSvc, metricsSvc, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})

	exportHandler, err := buildExports(ctx, cfg, connectionSvc, validate, logr)
	if err != nil {
		logr.Fatal("failed to init exports", zap.Error(err))
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, repos.checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	r.Use(internalmiddleware.ResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Mentorship: handler.NewMentorshipHandler(connectionSvc),
		Requests:   handler.NewMenteeRequestHandler(requestSvc, matchSvc),
		Mentors:    handler.NewMentorHandler(mentorSvc),
		Exports:    exportHandler,
	}
	if metricsSvc != nil {
		handlers.Metrics = metricsHandler
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, internalmiddleware.JWT(tokenSvc), logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StoragePostgres {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &repositories{
			alumni:      repository.NewAlumniRepository(db),
			mentors:     repository.NewMentorRepository(db),
			requests:    repository.NewMenteeRequestRepository(db),
			connections: repository.NewConnectionRepository(db),
			checks:      map[string]handler.ReadinessCheck{"postgres": postgresCheck(db)},
			close:       db.Close,
		}, nil
	}

	store := repository.NewMemoryStore()
	if cfg.Storage.SeedMockData {
		if _, err := seed.Load(ctx, store, seed.Options{Seed: cfg.Storage.SeedValue, Mentors: cfg.Storage.SeedMentors}, logr); err != nil {
			return nil, err
		}
	}
	return &repositories{
		alumni:      store.Alumni(),
		mentors:     store.Mentors(),
		requests:    store.Requests(),
		connections: store.Connections(),
		checks:      map[string]handler.ReadinessCheck{},
		close:       func() error { return nil },
	}, nil
}

// buildExports wires the connection report pipeline. A disabled pipeline
// still mounts the routes, which answer FEATURE_DISABLED.
func buildExports(ctx context.Context, cfg *config.Config, connections *service.ConnectionService, validate *validator.Validate, logr *zap.Logger) (*handler.ExportHandler, error) {
	if !cfg.Exports.Enabled {
		return handler.NewExportHandler(nil), nil
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(connections, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	jobRepo := repository.NewExportJobRepository()
	worker := service.NewExportWorker(jobRepo, exporter, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		JobTimeout: cfg.Exports.JobTimeout,
		Logger:     logr,
	})
	queue.Start(ctx)
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()

	jobSvc := service.NewExportJobService(jobRepo, queue, exporter, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	jobSvc.StartCleanup(ctx)

	return handler.NewExportHandler(jobSvc), nil
}

func postgresCheck(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func redisCheck(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
