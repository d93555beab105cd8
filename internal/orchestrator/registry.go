package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/renderd/internal/models"
)

// registry is the authoritative in-memory view of every job this process has
// seen. It enforces the lifecycle rules the rest of the orchestrator relies
// on: progress never decreases, and terminal jobs never change again.
type registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*jobEntry
}

type jobEntry struct {
	job       models.RenderJob
	cancelled bool
}

func newRegistry() *registry {
	return &registry{entries: make(map[uuid.UUID]*jobEntry)}
}

func (r *registry) add(job models.RenderJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[job.ID] = &jobEntry{job: job}
}

func (r *registry) get(id uuid.UUID) (models.RenderJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return models.RenderJob{}, false
	}
	return e.job, true
}

// setProgress advances a job's status and progress. Regressions and writes to
// terminal jobs are ignored.
func (r *registry) setProgress(id uuid.UUID, status models.JobStatus, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.job.Terminal() {
		return
	}
	e.job.Status = status
	if progress > e.job.Progress {
		e.job.Progress = progress
	}
}

func (r *registry) complete(id uuid.UUID, outputPath string, duration float64, fileSize int64, warnings []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.job.Terminal() {
		return
	}
	now := time.Now()
	e.job.Status = models.StatusCompleted
	e.job.Progress = 100
	e.job.OutputPath = outputPath
	e.job.Duration = duration
	e.job.FileSize = fileSize
	e.job.Warnings = warnings
	e.job.CompletedAt = &now
}

func (r *registry) fail(id uuid.UUID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.job.Terminal() {
		return
	}
	now := time.Now()
	e.job.Status = models.StatusFailed
	e.job.ErrorMessage = message
	e.job.CompletedAt = &now
}

// requestCancel flags a non-terminal job for cooperative cancellation and
// reports whether the flag was set.
func (r *registry) requestCancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.job.Terminal() {
		return false
	}
	e.cancelled = true
	return true
}

func (r *registry) isCancelled(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return ok && e.cancelled
}
