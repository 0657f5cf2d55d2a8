package service

import (
	"context"
	"errors"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

// Capability failures. The ingestion worker absorbs these per file and records
// the affected stage as degraded; they never abort sibling files in a batch.
var (
	// ErrExtractionFailed indicates the OCR capability could not produce text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrDescriptionUnavailable indicates the vision model could not be used,
	// for example when no API credentials are configured.
	ErrDescriptionUnavailable = errors.New("visual description unavailable")

	// ErrEmbeddingFailed indicates the embedding capability returned no vector.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// TextExtractor extracts on-screen text from an image.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageData []byte, format string) (string, error)
}

// ImageDescriber generates a visual description of an image.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, imageData []byte, format string) (string, error)
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
	Model() string
}

// ScreenshotStore is the persistence surface the ingestion and search
// services need from the screenshot repository.
type ScreenshotStore interface {
	Create(ctx context.Context, shot *domain.Screenshot) error
	Update(ctx context.Context, shot *domain.Screenshot) error
	GetByID(ctx context.Context, id string) (*domain.Screenshot, error)
	ListProcessed(ctx context.Context) ([]domain.Screenshot, error)
	List(ctx context.Context, limit, offset int) ([]domain.Screenshot, error)
	Delete(ctx context.Context, id string) error
}

// JobStore persists job snapshots. Persistence is best-effort: a failed save
// never affects the in-memory tracker state.
type JobStore interface {
	Save(ctx context.Context, job *domain.ProcessingJob) error
}
