package service

import (
	"context"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/storage"
)

// LibraryService covers the non-search record operations: listing,
// fetching, and deleting screenshots together with their blobs.
type LibraryService struct {
	store ScreenshotStore
	blobs storage.ObjectStorage
	log   *logger.Logger
}

// NewLibraryService creates the library service.
func NewLibraryService(store ScreenshotStore, blobs storage.ObjectStorage, log *logger.Logger) *LibraryService {
	if log == nil {
		log = logger.NewDefault()
	}
	return &LibraryService{store: store, blobs: blobs, log: log}
}

// Get returns one screenshot by id.
func (s *LibraryService) Get(ctx context.Context, id string) (*domain.Screenshot, error) {
	return s.store.GetByID(ctx, id)
}

// List returns screenshots ordered by upload time, newest first.
func (s *LibraryService) List(ctx context.Context, limit, offset int) ([]domain.Screenshot, error) {
	return s.store.List(ctx, limit, offset)
}

// Delete removes the record and its backing file. The record goes first;
// once it is gone the screenshot is absent from search, and a leaked blob
// is only wasted space.
func (s *LibraryService) Delete(ctx context.Context, id string) error {
	shot, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, shot.StorageKey); err != nil {
		s.log.WithError(err).WithField(logger.FieldScreenshotID, id).
			Warn("failed to delete blob, record already removed")
	}
	return nil
}

// PreviewURL returns the public URL for a screenshot's stored file.
func (s *LibraryService) PreviewURL(shot *domain.Screenshot) string {
	return s.blobs.GetURL(shot.StorageKey)
}
