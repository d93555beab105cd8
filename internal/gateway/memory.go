package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/renderd/internal/models"
)

// Memory keeps jobs in a map. It is the default when no DATABASE_URL is
// configured, and what tests run against.
type Memory struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.RenderJob
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[uuid.UUID]models.RenderJob)}
}

func (g *Memory) Close() error { return nil }

func (g *Memory) CreateJob(ctx context.Context, job *models.RenderJob) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	g.jobs[job.ID] = *job
	return nil
}

func (g *Memory) UpdateProgress(ctx context.Context, id uuid.UUID, status models.JobStatus, progress int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	job, ok := g.jobs[id]
	if !ok {
		return fmt.Errorf("job not found")
	}
	job.Status = status
	if progress > job.Progress {
		job.Progress = progress
	}
	g.jobs[id] = job
	return nil
}

func (g *Memory) MarkComplete(ctx context.Context, id uuid.UUID, outputPath string, duration float64, fileSize int64, warnings []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	job, ok := g.jobs[id]
	if !ok {
		return fmt.Errorf("job not found")
	}
	now := time.Now()
	job.Status = models.StatusCompleted
	job.Progress = 100
	job.OutputPath = outputPath
	job.Duration = duration
	job.FileSize = fileSize
	job.Warnings = warnings
	job.CompletedAt = &now
	g.jobs[id] = job
	return nil
}

func (g *Memory) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	job, ok := g.jobs[id]
	if !ok {
		return fmt.Errorf("job not found")
	}
	now := time.Now()
	job.Status = models.StatusFailed
	job.ErrorMessage = message
	job.CompletedAt = &now
	g.jobs[id] = job
	return nil
}

func (g *Memory) GetJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	job, ok := g.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	out := job
	return &out, nil
}

func (g *Memory) ListJobs(ctx context.Context, limit int) ([]models.RenderJob, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	jobs := make([]models.RenderJob, 0, len(g.jobs))
	for _, job := range g.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
