package repository

import (
	"context"
	"fmt"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"gorm.io/gorm"
)

// ScreenshotRepository handles screenshot data operations.
type ScreenshotRepository struct {
	db *gorm.DB
}

// NewScreenshotRepository creates a new ScreenshotRepository.
func NewScreenshotRepository(db *gorm.DB) *ScreenshotRepository {
	return &ScreenshotRepository{db: db}
}

// Create inserts a new screenshot record.
func (r *ScreenshotRepository) Create(ctx context.Context, shot *domain.Screenshot) error {
	return r.db.WithContext(ctx).Create(shot).Error
}

// Update saves all fields of an existing screenshot record.
func (r *ScreenshotRepository) Update(ctx context.Context, shot *domain.Screenshot) error {
	return r.db.WithContext(ctx).Save(shot).Error
}

// GetByID retrieves a screenshot by its ID.
func (r *ScreenshotRepository) GetByID(ctx context.Context, id string) (*domain.Screenshot, error) {
	var shot domain.Screenshot
	if err := r.db.WithContext(ctx).First(&shot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shot, nil
}

// ListProcessed retrieves every processed screenshot, most recent first.
// The hybrid scorer walks the whole processed corpus per query.
func (r *ScreenshotRepository) ListProcessed(ctx context.Context) ([]domain.Screenshot, error) {
	var shots []domain.Screenshot
	if err := r.db.WithContext(ctx).
		Where("processed = ?", true).
		Order("uploaded_at DESC").
		Find(&shots).Error; err != nil {
		return nil, fmt.Errorf("failed to list processed screenshots: %w", err)
	}
	return shots, nil
}

// List retrieves screenshots with pagination, most recent first.
func (r *ScreenshotRepository) List(ctx context.Context, limit, offset int) ([]domain.Screenshot, error) {
	var shots []domain.Screenshot
	query := r.db.WithContext(ctx).Order("uploaded_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&shots).Error; err != nil {
		return nil, err
	}
	return shots, nil
}

// Count returns the total number of screenshot records.
func (r *ScreenshotRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Screenshot{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a screenshot by ID. Deleting an absent ID is not an error.
func (r *ScreenshotRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Screenshot{}, "id = ?", id).Error
}
