package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/config"
	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/repository"
	"github.com/gargarushee/VisualMemorySearch/internal/service"
	"github.com/gargarushee/VisualMemorySearch/internal/storage"
)

// Bulk importer: ingests every screenshot in a directory through the same
// pipeline the API uses, then waits for the job to finish.
func main() {
	var (
		dir        = flag.String("dir", "", "directory of screenshots to ingest")
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "config file path")
		workers    = flag.Int("workers", 0, "override ingest worker count")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -dir <directory> [-config <path>] [-workers <n>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}

	log := logger.NewDefault()
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

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

	jobTracker := service.NewJobTracker(repository.NewJobRepository(db), log)
	ingestService := service.NewIngestService(
		repository.NewScreenshotRepository(db),
		objectStorage,
		jobTracker,
		service.NewOCRService(&cfg.OCR),
		service.NewVLMService(&cfg.VLM),
		service.NewJinaEmbedder(&cfg.Embedding),
		cfg.Ingest.Workers,
		log,
	)

	files, err := collectImages(*dir)
	if err != nil {
		log.WithError(err).Fatal("Failed to read directory")
	}
	if len(files) == 0 {
		log.Fatal("No png/jpg/jpeg files found")
	}

	jobID, err := ingestService.StartIngestion(ctx, files)
	if err != nil {
		log.WithError(err).Fatal("Failed to start ingestion")
	}
	log.WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		logger.FieldCount: len(files),
	}).Info("Ingestion started")

	for {
		job, err := jobTracker.Get(jobID)
		if err != nil {
			log.WithError(err).Fatal("Lost track of job")
		}
		if job.Status.Terminal() {
			log.WithFields(logger.Fields{
				logger.FieldJobID: jobID,
				"status":          string(job.Status),
				"progress":        job.Progress,
				"total":           job.Total,
			}).Info("Ingestion finished")
			if job.Status != domain.JobStatusCompleted {
				os.Exit(1)
			}
			return
		}
		fmt.Printf("\rprogress: %d/%d", job.Progress, job.Total)
		time.Sleep(200 * time.Millisecond)
	}
}

func collectImages(dir string) ([]service.UploadFile, error) {
	var files []service.UploadFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable file %s: %v", path, err)
			return nil
		}
		files = append(files, service.UploadFile{Filename: filepath.Base(path), Data: data})
		return nil
	})
	return files, err
}
