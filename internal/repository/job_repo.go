package repository

import (
	"context"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository persists best-effort snapshots of processing jobs.
// The in-memory job tracker is authoritative; these rows only let status
// polling answer (with possibly stale data) after a restart.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Save upserts a job snapshot keyed by job ID.
func (r *JobRepository) Save(ctx context.Context, job *domain.ProcessingJob) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(job).Error
}

// GetByID retrieves a job snapshot by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	var job domain.ProcessingJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
