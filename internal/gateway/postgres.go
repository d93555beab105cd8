package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clipforge/renderd/internal/models"
)

// Postgres stores render jobs in a render_jobs table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (g *Postgres) Close() error {
	return g.db.Close()
}

func (g *Postgres) CreateJob(ctx context.Context, job *models.RenderJob) error {
	query := `
		INSERT INTO render_jobs (
			id, owner_id, status, progress
		) VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return g.db.QueryRowContext(
		ctx, query,
		job.ID, job.OwnerID, job.Status, job.Progress,
	).Scan(&job.CreatedAt)
}

func (g *Postgres) UpdateProgress(ctx context.Context, id uuid.UUID, status models.JobStatus, progress int) error {
	query := `
		UPDATE render_jobs
		SET status = $2, progress = GREATEST(progress, $3)
		WHERE id = $1
	`

	_, err := g.db.ExecContext(ctx, query, id, status, progress)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func (g *Postgres) MarkComplete(ctx context.Context, id uuid.UUID, outputPath string, duration float64, fileSize int64, warnings []string) error {
	query := `
		UPDATE render_jobs
		SET status = $2, progress = 100, output_path = $3,
		    duration = $4, file_size = $5, warnings = $6,
		    completed_at = NOW()
		WHERE id = $1
	`

	_, err := g.db.ExecContext(ctx, query, id, models.StatusCompleted,
		outputPath, duration, fileSize, pq.Array(warnings))
	if err != nil {
		return fmt.Errorf("failed to mark job complete: %w", err)
	}
	return nil
}

func (g *Postgres) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE render_jobs
		SET status = $2, error_message = $3, completed_at = NOW()
		WHERE id = $1
	`

	_, err := g.db.ExecContext(ctx, query, id, models.StatusFailed, message)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (g *Postgres) GetJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	query := `
		SELECT
			id, owner_id, status, progress, output_path, duration,
			file_size, error_message, warnings, created_at, completed_at
		FROM render_jobs
		WHERE id = $1
	`

	job := &models.RenderJob{}
	var outputPath, errorMessage sql.NullString
	var duration sql.NullFloat64
	var fileSize sql.NullInt64

	err := g.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.OwnerID, &job.Status, &job.Progress,
		&outputPath, &duration, &fileSize, &errorMessage,
		pq.Array(&job.Warnings), &job.CreatedAt, &job.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.OutputPath = outputPath.String
	job.Duration = duration.Float64
	job.FileSize = fileSize.Int64
	job.ErrorMessage = errorMessage.String

	return job, nil
}

func (g *Postgres) ListJobs(ctx context.Context, limit int) ([]models.RenderJob, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, owner_id, status, progress, output_path, duration,
			file_size, error_message, warnings, created_at, completed_at
		FROM render_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := g.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.RenderJob
	for rows.Next() {
		var job models.RenderJob
		var outputPath, errorMessage sql.NullString
		var duration sql.NullFloat64
		var fileSize sql.NullInt64

		err := rows.Scan(
			&job.ID, &job.OwnerID, &job.Status, &job.Progress,
			&outputPath, &duration, &fileSize, &errorMessage,
			pq.Array(&job.Warnings), &job.CreatedAt, &job.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		job.OutputPath = outputPath.String
		job.Duration = duration.Float64
		job.FileSize = fileSize.Int64
		job.ErrorMessage = errorMessage.String
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
