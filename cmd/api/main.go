package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/api"
	"github.com/gargarushee/VisualMemorySearch/internal/api/middleware"
	"github.com/gargarushee/VisualMemorySearch/internal/config"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/repository"
	"github.com/gargarushee/VisualMemorySearch/internal/service"
	"github.com/gargarushee/VisualMemorySearch/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	screenshotRepo := repository.NewScreenshotRepository(db)
	jobRepo := repository.NewJobRepository(db)

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()
	if s3Storage, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	ocrService := service.NewOCRService(&cfg.OCR)
	vlmService := service.NewVLMService(&cfg.VLM)
	embedder := service.NewJinaEmbedder(&cfg.Embedding)

	jobTracker := service.NewJobTracker(jobRepo, log)
	ingestService := service.NewIngestService(
		screenshotRepo,
		objectStorage,
		jobTracker,
		ocrService,
		vlmService,
		embedder,
		cfg.Ingest.Workers,
		log,
	)
	libraryService := service.NewLibraryService(screenshotRepo, objectStorage, log)
	searchService := service.NewSearchService(
		screenshotRepo,
		objectStorage,
		embedder,
		cfg.Search.DefaultLimit,
		cfg.Search.MaxLimit,
		cfg.Search.Workers,
		log,
	)

	deps := api.RouterDeps{
		Ingest:    ingestService,
		Jobs:      jobTracker,
		Library:   libraryService,
		Search:    searchService,
		Snapshots: jobRepo,
		Log:       log,
	}
	if local, ok := objectStorage.(*storage.LocalStorage); ok {
		deps.StaticUploadsDir = local.Root()
	}

	router := api.SetupRouter(deps, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
