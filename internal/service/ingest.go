package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/storage"
	"github.com/google/uuid"
)

// ErrEmptyBatch is returned when an ingestion is started with no files.
var ErrEmptyBatch = errors.New("no files in batch")

// ErrUnsupportedFormat is returned for files that are not png or jpeg.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// UploadFile is one file of an ingestion batch.
type UploadFile struct {
	Filename string
	Data     []byte
}

// stagedFile is a file that passed validation and has its blob and
// pending record in place, waiting for the derivation pipeline.
type stagedFile struct {
	shot *domain.Screenshot
	data []byte
}

// IngestService drives uploaded screenshots through the derivation
// pipeline: text extraction, visual description, embedding, persistence.
// Stages fail independently per file; a failed stage degrades the record
// instead of aborting it, and no file's failure touches its siblings.
type IngestService struct {
	store     ScreenshotStore
	blobs     storage.ObjectStorage
	jobs      *JobTracker
	extractor TextExtractor
	describer ImageDescriber
	embedder  Embedder
	workers   int
	log       *logger.Logger
}

// NewIngestService creates the ingestion service.
func NewIngestService(
	store ScreenshotStore,
	blobs storage.ObjectStorage,
	jobs *JobTracker,
	extractor TextExtractor,
	describer ImageDescriber,
	embedder Embedder,
	workers int,
	log *logger.Logger,
) *IngestService {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &IngestService{
		store:     store,
		blobs:     blobs,
		jobs:      jobs,
		extractor: extractor,
		describer: describer,
		embedder:  embedder,
		workers:   workers,
		log:       log,
	}
}

// StartIngestion accepts a batch of files and returns the id of the job
// tracking it. Files are staged synchronously (blob stored, pending record
// created) so the caller gets immediate validation feedback; the derivation
// pipeline then runs in the background and the caller polls job status.
// A batch where no file could be staged yields a job already in the failed
// state.
func (s *IngestService) StartIngestion(ctx context.Context, files []UploadFile) (string, error) {
	if len(files) == 0 {
		return "", ErrEmptyBatch
	}

	log := s.log.WithField(logger.FieldComponent, "ingest")

	staged := make([]stagedFile, 0, len(files))
	for _, f := range files {
		sf, err := s.stageFile(ctx, f)
		if err != nil {
			log.WithError(err).WithField("filename", f.Filename).
				Warn("file rejected during staging")
			continue
		}
		staged = append(staged, *sf)
	}

	// Rejected files never enter the job: total counts staged files only,
	// so progress always refers to files actually being processed.
	jobID := s.jobs.Create(ctx, len(staged))
	log = log.WithField(logger.FieldJobID, jobID)

	if len(staged) == 0 {
		if err := s.jobs.Fail(ctx, jobID); err != nil {
			log.WithError(err).Error("failed to mark unstartable job as failed")
		}
		log.Warn("no files could be staged, batch failed")
		return jobID, nil
	}

	log.WithField(logger.FieldCount, len(staged)).Info("ingestion batch started")

	// The pipeline outlives the upload request, so it runs on a background
	// context rather than the request's.
	go s.runBatch(context.Background(), jobID, staged)

	return jobID, nil
}

// stageFile validates the file, stores its blob, and creates the pending
// screenshot record.
func (s *IngestService) stageFile(ctx context.Context, f UploadFile) (*stagedFile, error) {
	if len(f.Data) == 0 {
		return nil, errors.New("empty file")
	}

	format, err := imageFormat(f.Filename)
	if err != nil {
		return nil, err
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	sum := md5.Sum(f.Data)
	hash := fmt.Sprintf("%x", sum)
	key := fmt.Sprintf("%s/%s.%s", hash[:2], hash, format)

	contentType := mimeTypeForFormat(format)
	if err := s.blobs.Upload(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	shot := &domain.Screenshot{
		ID:         uuid.New().String(),
		Filename:   f.Filename,
		StorageKey: key,
		FileSize:   int64(len(f.Data)),
		Width:      width,
		Height:     height,
		Format:     format,
		Processed:  false,
		UploadedAt: time.Now(),
	}
	if err := s.store.Create(ctx, shot); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return &stagedFile{shot: shot, data: f.Data}, nil
}

// runBatch fans the staged files out to a bounded worker pool. Every file
// advances the job exactly once, whatever happened to it.
func (s *IngestService) runBatch(ctx context.Context, jobID string, staged []stagedFile) {
	log := s.log.WithFields(logger.Fields{
		logger.FieldComponent: "ingest",
		logger.FieldJobID:     jobID,
	})
	start := time.Now()

	itemsChan := make(chan stagedFile)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemsChan {
				s.processFile(ctx, item.shot, item.data)
				if err := s.jobs.Advance(ctx, jobID); err != nil {
					log.WithError(err).
						WithField(logger.FieldScreenshotID, item.shot.ID).
						Error("failed to advance job")
				}
			}
		}()
	}

	for _, item := range staged {
		itemsChan <- item
	}
	close(itemsChan)
	wg.Wait()

	log.WithFields(logger.Fields{
		logger.FieldCount:      len(staged),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("ingestion batch finished")
}

// processFile runs the three derivation stages and persists the result.
// Stage failures degrade the record; only a persistence failure leaves it
// unprocessed, and even then the attempt is finished as far as the job is
// concerned.
func (s *IngestService) processFile(ctx context.Context, shot *domain.Screenshot, data []byte) {
	log := s.log.WithFields(logger.Fields{
		logger.FieldComponent:    "ingest",
		logger.FieldScreenshotID: shot.ID,
	})

	var degraded domain.StageList

	ocrText, err := s.extractor.ExtractText(ctx, data, shot.Format)
	if err != nil {
		degraded = append(degraded, domain.StageOCR)
		log.WithError(err).WithField(logger.FieldStage, string(domain.StageOCR)).
			Warn("text extraction failed, recording empty text")
		ocrText = ""
	}

	description, err := s.describer.DescribeImage(ctx, data, shot.Format)
	if err != nil {
		degraded = append(degraded, domain.StageDescription)
		log.WithError(err).WithField(logger.FieldStage, string(domain.StageDescription)).
			Warn("description failed, recording empty description")
		description = ""
	}

	embedText := buildEmbeddingText(shot.Filename, ocrText, description)
	embedding, err := s.embedder.Embed(ctx, embedText)
	model := s.embedder.Model()
	if err != nil {
		degraded = append(degraded, domain.StageEmbedding)
		log.WithError(err).WithField(logger.FieldStage, string(domain.StageEmbedding)).
			Warn("embedding failed, using lexical fallback")
		embedding = lexicalEmbedding(embedText, s.embedder.Dimensions())
		model = "lexical-fallback"
	}

	shot.OCRText = ocrText
	shot.VisualDescription = description
	shot.Embedding = embedding
	shot.EmbeddingModel = model
	shot.DegradedStages = degraded
	shot.Processed = true

	if err := s.store.Update(ctx, shot); err != nil {
		// The record stays unprocessed and out of search until re-ingested.
		log.WithError(err).Error("failed to persist processed screenshot")
	}
}

// imageFormat validates the filename extension and returns the normalized
// format name.
func imageFormat(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "png", "jpg", "jpeg":
		return ext, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
