package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/google/uuid"
)

// ErrJobNotFound is returned when a job id is unknown to the tracker.
var ErrJobNotFound = errors.New("job not found")

// JobTracker tracks ingestion jobs in memory. The tracker is the
// authoritative source for job status; snapshots are mirrored to the
// store on a best-effort basis so status survives restarts, but a store
// failure never blocks or fails job progress.
type JobTracker struct {
	mu    sync.RWMutex
	jobs  map[string]*trackedJob
	store JobStore
	log   *logger.Logger
}

// trackedJob guards its own state so concurrent Advance calls on one job
// never contend with lookups of other jobs.
type trackedJob struct {
	mu  sync.Mutex
	job domain.ProcessingJob
}

// NewJobTracker creates a tracker. store may be nil when persistence is
// not wanted, e.g. in tests.
func NewJobTracker(store JobStore, log *logger.Logger) *JobTracker {
	return &JobTracker{
		jobs:  make(map[string]*trackedJob),
		store: store,
		log:   log,
	}
}

// Create registers a new job for total items and returns its id.
func (t *JobTracker) Create(ctx context.Context, total int) string {
	id := uuid.New().String()
	tj := &trackedJob{
		job: domain.ProcessingJob{
			ID:        id,
			Status:    domain.JobStatusProcessing,
			Progress:  0,
			Total:     total,
			CreatedAt: time.Now(),
		},
	}

	t.mu.Lock()
	t.jobs[id] = tj
	t.mu.Unlock()

	t.snapshot(ctx, tj.job)
	return id
}

// Advance increments the job's progress by one. When progress reaches
// the total the job transitions to completed. Advancing an unknown job
// returns ErrJobNotFound; advancing a terminal job is a no-op so late
// worker completions after a Fail cannot resurrect the job.
func (t *JobTracker) Advance(ctx context.Context, id string) error {
	tj, err := t.lookup(id)
	if err != nil {
		return err
	}

	tj.mu.Lock()
	if tj.job.Status.Terminal() {
		tj.mu.Unlock()
		return nil
	}
	tj.job.Progress++
	if tj.job.Progress >= tj.job.Total {
		tj.job.Progress = tj.job.Total
		tj.job.Status = domain.JobStatusCompleted
		now := time.Now()
		tj.job.CompletedAt = &now
	}
	snap := tj.job
	tj.mu.Unlock()

	t.snapshot(ctx, snap)
	return nil
}

// Fail marks the job failed. Progress made so far is kept.
func (t *JobTracker) Fail(ctx context.Context, id string) error {
	tj, err := t.lookup(id)
	if err != nil {
		return err
	}

	tj.mu.Lock()
	if tj.job.Status.Terminal() {
		tj.mu.Unlock()
		return nil
	}
	tj.job.Status = domain.JobStatusFailed
	now := time.Now()
	tj.job.CompletedAt = &now
	snap := tj.job
	tj.mu.Unlock()

	t.snapshot(ctx, snap)
	return nil
}

// Get returns a copy of the job's current state.
func (t *JobTracker) Get(id string) (domain.ProcessingJob, error) {
	tj, err := t.lookup(id)
	if err != nil {
		return domain.ProcessingJob{}, err
	}

	tj.mu.Lock()
	snap := tj.job
	tj.mu.Unlock()
	return snap, nil
}

func (t *JobTracker) lookup(id string) (*trackedJob, error) {
	t.mu.RLock()
	tj, ok := t.jobs[id]
	t.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return tj, nil
}

func (t *JobTracker) snapshot(ctx context.Context, job domain.ProcessingJob) {
	if t.store == nil {
		return
	}
	if err := t.store.Save(ctx, &job); err != nil && t.log != nil {
		t.log.WithError(err).WithField(logger.FieldJobID, job.ID).
			Warn("failed to persist job snapshot")
	}
}
