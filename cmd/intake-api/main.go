package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fvu-intake/api/swagger"
	"github.com/noah-isme/fvu-intake/internal/handler"
	"github.com/noah-isme/fvu-intake/internal/middleware"
	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/internal/repository"
	"github.com/noah-isme/fvu-intake/internal/service"
	"github.com/noah-isme/fvu-intake/pkg/backend"
	"github.com/noah-isme/fvu-intake/pkg/cache"
	"github.com/noah-isme/fvu-intake/pkg/clock"
	"github.com/noah-isme/fvu-intake/pkg/config"
	"github.com/noah-isme/fvu-intake/pkg/database"
	"github.com/noah-isme/fvu-intake/pkg/export"
	"github.com/noah-isme/fvu-intake/pkg/jobs"
	"github.com/noah-isme/fvu-intake/pkg/logger"
	corsmiddleware "github.com/noah-isme/fvu-intake/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fvu-intake/pkg/middleware/requestid"
	"github.com/noah-isme/fvu-intake/pkg/storage"
)

// @title FVU Intake API
// @version 1.0.0
// @description Validation, report generation and resilient submission of Forensic Video Unit requests.
// @BasePath /api/v1
// @schemes http

type draftRepository interface {
	Get(ctx context.Context, scope string, formType models.FormType) (*models.Draft, error)
	Save(ctx context.Context, scope string, draft models.Draft, ttl time.Duration) error
	Delete(ctx context.Context, scope string, formType models.FormType) error
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	clk := clock.Real{}
	checks := make(map[string]handler.ReadinessCheck)

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	engine, err := service.NewEngine(cfg, clk, logr)
	if err != nil {
		return err
	}
	validation, documents := engine.Validation, engine.Documents

	draftRepo, err := newDraftRepository(ctx, cfg, logr, checks)
	if err != nil {
		return err
	}
	drafts := service.NewDraftService(draftRepo, clk, service.DraftConfig{
		TTL:      cfg.Drafts.TTL(),
		Debounce: cfg.Drafts.AutosaveDebounce,
	}, metrics, logr)
	defer drafts.Close()

	identity, err := newIdentityService(ctx, cfg, clk, logr, checks)
	if err != nil {
		return err
	}

	artifacts, queue, err := newArtifactService(cfg, clk, metrics, logr)
	if err != nil {
		return err
	}
	if queue != nil {
		queue.Start(ctx)
		defer queue.Stop()
		go cleanupArtifacts(ctx, artifacts, logr)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return err
	}
	renderer := export.NewPDFRenderer("Forensic Video Unit")
	submissions := service.NewSubmissionService(validation, documents, renderer, transport, drafts, identity, artifacts, metrics, clk, service.SubmissionConfig{
		MaxAttempts:    cfg.Submission.MaxAttempts,
		BaseDelay:      cfg.Submission.BaseDelay,
		MaxDelay:       cfg.Submission.MaxDelay,
		AttemptTimeout: cfg.Submission.AttemptTimeout,
		RenderTimeout:  cfg.Submission.RenderTimeout,
	}, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handlers := handler.Handlers{
		Intake:   handler.NewIntakeHandler(validation, documents, renderer, export.NewCSVExporter(), submissions, clk),
		Drafts:   handler.NewDraftHandler(drafts),
		Identity: handler.NewIdentityHandler(identity),
		Metrics:  handler.NewMetricsHandler(metrics, checks),
	}
	if artifacts != nil {
		handlers.Artifacts = handler.NewArtifactHandler(artifacts)
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "transport", transport.Name(), "drafts", cfg.Drafts.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newDraftRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (draftRepository, error) {
	switch cfg.Drafts.Backend {
	case config.DraftBackendFile:
		store, err := storage.NewLocalStorage(cfg.Drafts.Dir)
		if err != nil {
			return nil, err
		}
		return repository.NewFileDraftRepository(store, logr), nil
	case config.DraftBackendRedis, "":
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return repository.NewRedisDraftRepository(client, cfg.Drafts.KeyPrefix, logr), nil
	default:
		return nil, fmt.Errorf("unknown draft backend %q", cfg.Drafts.Backend)
	}
}

func newIdentityService(ctx context.Context, cfg *config.Config, clk clock.Clock, logr *zap.Logger, checks map[string]handler.ReadinessCheck) (*service.IdentityService, error) {
	if !cfg.Identity.Enabled {
		return service.NewIdentityService(nil, false, clk, logr), nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	repo := repository.NewIdentityRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare identity table: %w", err)
	}
	checks["postgres"] = db.PingContext
	return service.NewIdentityService(repo, true, clk, logr), nil
}

func newArtifactService(cfg *config.Config, clk clock.Clock, metrics *service.MetricsService, logr *zap.Logger) (*service.ArtifactService, *jobs.Queue[service.ArchiveJob], error) {
	if cfg.Submission.ArtifactArchiveDir == "" {
		return nil, nil, nil
	}
	store, err := storage.NewLocalStorage(cfg.Submission.ArtifactArchiveDir)
	if err != nil {
		return nil, nil, err
	}
	var signer *storage.SignedURLSigner
	if cfg.Submission.ArtifactSecret != "" {
		signer = storage.NewSignedURLSigner(cfg.Submission.ArtifactSecret, cfg.Submission.ArtifactLinkTTL, clk)
	} else {
		logr.Sugar().Warnw("ARTIFACT_SIGNING_SECRET not set, archived artifacts have no download links")
	}
	artifacts := service.NewArtifactService(store, signer, clk, service.ArtifactConfig{
		APIPrefix: cfg.APIPrefix,
		TTL:       cfg.Submission.ArtifactTTL,
	}, logr)
	archive := func(ctx context.Context, job jobs.Job[service.ArchiveJob]) error {
		if err := artifacts.HandleArchiveJob(ctx, job); err != nil {
			return err
		}
		metrics.ObserveArtifactArchive(true)
		return nil
	}
	queue := jobs.NewQueue("artifact-archive", archive, jobs.QueueConfig[service.ArchiveJob]{
		Workers:       2,
		MaxRetries:    3,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: 30 * time.Second,
		OnDrop: func(job jobs.Job[service.ArchiveJob], _ error) {
			metrics.ObserveArtifactArchive(false)
		},
		Logger: logr,
	})
	artifacts.UseQueue(queue)
	return artifacts, queue, nil
}

func cleanupArtifacts(ctx context.Context, artifacts *service.ArtifactService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := artifacts.Cleanup(0)
			if err != nil {
				logr.Sugar().Warnw("artifact cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("artifact cleanup", "removed", len(removed))
			}
		}
	}
}

func newTransport(cfg *config.Config) (backend.Transport, error) {
	client := backend.NewHTTPClient(cfg.Submission.AttemptTimeout + 5*time.Second)
	switch cfg.Submission.Transport {
	case config.TransportLegacy:
		return backend.NewLegacyTransport(cfg.Submission.LegacyEndpointURL, client), nil
	case config.TransportCloud, "":
		return backend.NewCloudTransport(cfg.Submission.CloudEndpointURL, client), nil
	default:
		return nil, fmt.Errorf("unknown submission transport %q", cfg.Submission.Transport)
	}
}
