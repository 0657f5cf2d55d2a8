package service

import (
	"context"
	"sync"
	"testing"

	"github.com/gargarushee/VisualMemorySearch/internal/domain"
)

func TestJobTrackerLifecycle(t *testing.T) {
	tracker := NewJobTracker(nil, nil)
	ctx := context.Background()

	id := tracker.Create(ctx, 3)
	job, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("Get after Create: %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Errorf("new job status = %s, want %s", job.Status, domain.JobStatusProcessing)
	}
	if job.Progress != 0 || job.Total != 3 {
		t.Errorf("new job progress/total = %d/%d, want 0/3", job.Progress, job.Total)
	}
	if job.CompletedAt != nil {
		t.Error("new job should not have a completion timestamp")
	}

	for i := 1; i <= 3; i++ {
		if err := tracker.Advance(ctx, id); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		job, _ = tracker.Get(id)
		if job.Progress != i {
			t.Errorf("progress after advance %d = %d", i, job.Progress)
		}
	}

	job, _ = tracker.Get(id)
	if job.Status != domain.JobStatusCompleted {
		t.Errorf("status after final advance = %s, want %s", job.Status, domain.JobStatusCompleted)
	}
	if job.CompletedAt == nil {
		t.Error("completed job missing completion timestamp")
	}

	// Terminal states are one-way.
	if err := tracker.Advance(ctx, id); err != nil {
		t.Fatalf("Advance on completed job: %v", err)
	}
	if err := tracker.Fail(ctx, id); err != nil {
		t.Fatalf("Fail on completed job: %v", err)
	}
	job, _ = tracker.Get(id)
	if job.Status != domain.JobStatusCompleted {
		t.Errorf("terminal status changed to %s", job.Status)
	}
	if job.Progress != 3 {
		t.Errorf("progress moved past total: %d", job.Progress)
	}
}

func TestJobTrackerNotFound(t *testing.T) {
	tracker := NewJobTracker(nil, nil)
	ctx := context.Background()

	if _, err := tracker.Get("nope"); err != ErrJobNotFound {
		t.Errorf("Get unknown id: err = %v, want ErrJobNotFound", err)
	}
	if err := tracker.Advance(ctx, "nope"); err != ErrJobNotFound {
		t.Errorf("Advance unknown id: err = %v, want ErrJobNotFound", err)
	}
	if err := tracker.Fail(ctx, "nope"); err != ErrJobNotFound {
		t.Errorf("Fail unknown id: err = %v, want ErrJobNotFound", err)
	}
}

func TestJobTrackerFail(t *testing.T) {
	tracker := NewJobTracker(nil, nil)
	ctx := context.Background()

	id := tracker.Create(ctx, 5)
	if err := tracker.Advance(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Fail(ctx, id); err != nil {
		t.Fatal(err)
	}

	job, _ := tracker.Get(id)
	if job.Status != domain.JobStatusFailed {
		t.Errorf("status = %s, want %s", job.Status, domain.JobStatusFailed)
	}
	if job.Progress != 1 {
		t.Errorf("progress after fail = %d, want 1", job.Progress)
	}
	if job.CompletedAt == nil {
		t.Error("failed job missing completion timestamp")
	}

	// Late worker completions must not resurrect a failed job.
	if err := tracker.Advance(ctx, id); err != nil {
		t.Fatal(err)
	}
	job, _ = tracker.Get(id)
	if job.Status != domain.JobStatusFailed || job.Progress != 1 {
		t.Errorf("failed job mutated: status=%s progress=%d", job.Status, job.Progress)
	}
}

// N workers each advancing once must land on exactly progress == N.
func TestJobTrackerConcurrentAdvance(t *testing.T) {
	tracker := NewJobTracker(nil, nil)
	ctx := context.Background()

	const n = 64
	id := tracker.Create(ctx, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tracker.Advance(ctx, id); err != nil {
				t.Errorf("concurrent Advance: %v", err)
			}
		}()
	}
	wg.Wait()

	job, err := tracker.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if job.Progress != n {
		t.Errorf("final progress = %d, want %d", job.Progress, n)
	}
	if job.Status != domain.JobStatusCompleted {
		t.Errorf("final status = %s, want %s", job.Status, domain.JobStatusCompleted)
	}
}

// Concurrent reads during active advances must always observe a consistent
// snapshot: progress within [0, total] and completed implying full progress.
func TestJobTrackerReadDuringAdvance(t *testing.T) {
	tracker := NewJobTracker(nil, nil)
	ctx := context.Background()

	const n = 32
	id := tracker.Create(ctx, n)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			_ = tracker.Advance(ctx, id)
		}
	}()

	for {
		job, err := tracker.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if job.Progress < 0 || job.Progress > job.Total {
			t.Fatalf("inconsistent snapshot: progress=%d total=%d", job.Progress, job.Total)
		}
		if job.Status == domain.JobStatusCompleted && job.Progress != job.Total {
			t.Fatalf("completed with partial progress %d/%d", job.Progress, job.Total)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}
