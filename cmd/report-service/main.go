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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/inventory-report-api/api/swagger"
	"github.com/noah-isme/inventory-report-api/internal/handler"
	internalmiddleware "github.com/noah-isme/inventory-report-api/internal/middleware"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	"github.com/noah-isme/inventory-report-api/internal/service"
	"github.com/noah-isme/inventory-report-api/pkg/cache"
	"github.com/noah-isme/inventory-report-api/pkg/config"
	"github.com/noah-isme/inventory-report-api/pkg/export"
	"github.com/noah-isme/inventory-report-api/pkg/jobs"
	"github.com/noah-isme/inventory-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/inventory-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/inventory-report-api/pkg/middleware/requestid"
	"github.com/noah-isme/inventory-report-api/pkg/storage"
)

// @title Inventory Report API
// @version 1.0.0
// @description Aggregates inventory, order and supplier reports from the product, stock, order and supplier services.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	providers := repository.NewProviders(cfg.Providers, metrics, logr)

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	reportCache := service.NewReportCache(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, redisClient != nil)

	reportService := service.NewReportService(
		service.ReportProviders{
			Products:  providers.Products,
			Stocks:    providers.Stocks,
			Orders:    providers.Orders,
			Suppliers: providers.Suppliers,
		},
		reportCache,
		metrics,
		service.NewLogDiagnostics(logr, metrics),
		logr,
		service.ReportServiceConfig{
			Loaders: service.LoaderConfig{
				MaxConcurrency: cfg.Providers.MaxConcurrency,
				BatchWait:      cfg.Providers.BatchWait,
			},
		},
	)

	var exportJobs *service.ExportJobService
	if cfg.Exports.Enabled {
		var queue *jobs.Queue[service.ExportTask]
		exportJobs, queue, err = buildExports(cfg, reportService, metrics, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to init exports", "error", err)
		}
		queue.Start(ctx)
		defer queue.Stop()
		exportJobs.StartCleanup(ctx)
	}

	var validator internalmiddleware.TokenValidator
	if cfg.Auth.Secret != "" {
		validator = service.NewTokenValidator(cfg.Auth.Secret)
	} else if cfg.Auth.Enabled {
		logr.Sugar().Fatalw("AUTH_ENABLED requires JWT_SECRET")
	}

	var reportHandler *handler.ReportHandler
	if exportJobs != nil {
		reportHandler = handler.NewReportHandler(reportService, exportJobs)
	} else {
		reportHandler = handler.NewReportHandler(reportService, nil)
	}
	metricsHandler := handler.NewMetricsHandler(metrics, cacheRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// Download links are capability URLs; the signed token is the credential.
	api.GET("/reports/export/:token", reportHandler.DownloadExport)

	reports := api.Group("/reports")
	reports.Use(internalmiddleware.Auth(validator, cfg.Auth.Enabled))
	reports.POST("/generate", reportHandler.Generate)
	reports.POST("/exports", reportHandler.CreateExport)
	reports.GET("/exports/:id", reportHandler.ExportStatus)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "api_prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

func buildExports(cfg *config.Config, reports *service.ReportService, metrics *service.MetricsService, logr *zap.Logger) (*service.ExportJobService, *jobs.Queue[service.ExportTask], error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("export storage: %w", err)
	}
	if cfg.Exports.SignedURLSecret == "" {
		return nil, nil, errors.New("EXPORTS_SIGNED_URL_SECRET is required when exports are enabled")
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	exporter := service.NewExportService(reports, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.Renderers())

	jobRepo := repository.NewExportJobRepository()
	worker := service.NewExportWorker(jobRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("report-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		JobTimeout: cfg.Exports.JobTimeout,
		Logger:     logr,
	})
	queue.OnGiveUp(worker.GiveUp)

	jobService := service.NewExportJobService(jobRepo, queue, exporter, metrics, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	return jobService, queue, nil
}
