// Package gateway persists render job lifecycle state so callers can query
// jobs after a worker restart.
package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/clipforge/renderd/internal/models"
)

// Gateway mirrors the orchestrator's in-memory registry into durable storage.
// Implementations tolerate being called concurrently from worker goroutines.
type Gateway interface {
	CreateJob(ctx context.Context, job *models.RenderJob) error
	UpdateProgress(ctx context.Context, id uuid.UUID, status models.JobStatus, progress int) error
	MarkComplete(ctx context.Context, id uuid.UUID, outputPath string, duration float64, fileSize int64, warnings []string) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error)
	ListJobs(ctx context.Context, limit int) ([]models.RenderJob, error)
	Close() error
}
