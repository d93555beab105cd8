// Package notify pushes job lifecycle events to interested consumers.
// Delivery is best-effort: a render never fails because an event did not
// reach anyone.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/models"
)

// EventsChannel is the Redis pub/sub channel lifecycle events publish to.
const EventsChannel = "renderd:events"

// Event is one lifecycle notification.
type Event struct {
	JobID    uuid.UUID        `json:"job_id"`
	Status   models.JobStatus `json:"status"`
	Progress int              `json:"progress"`
	VideoURL string           `json:"video_url,omitempty"`
	Error    string           `json:"error,omitempty"`
	At       time.Time        `json:"at"`
}

// Notifier receives job lifecycle events. Implementations must not block the
// render pipeline and must not return errors to it.
type Notifier interface {
	OnProgress(jobID uuid.UUID, status models.JobStatus, progress int)
	OnComplete(jobID uuid.UUID, videoURL string)
	OnFailed(jobID uuid.UUID, message string)
}

// LogNotifier writes events to the structured log. It is the fallback when no
// Redis is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OnProgress(jobID uuid.UUID, status models.JobStatus, progress int) {
	n.logger.Info().
		Str("job_id", jobID.String()).
		Str("status", string(status)).
		Int("progress", progress).
		Msg("job progress")
}

func (n *LogNotifier) OnComplete(jobID uuid.UUID, videoURL string) {
	n.logger.Info().
		Str("job_id", jobID.String()).
		Str("video_url", videoURL).
		Msg("job completed")
}

func (n *LogNotifier) OnFailed(jobID uuid.UUID, message string) {
	n.logger.Warn().
		Str("job_id", jobID.String()).
		Str("error", message).
		Msg("job failed")
}

// RedisNotifier publishes events to a pub/sub channel so other processes can
// follow job progress live.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedis(redisURL string, logger zerolog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisNotifier{client: client, channel: EventsChannel, logger: logger}, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) publish(event Event) {
	event.At = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn().Err(err).Msg("failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Warn().Err(err).Str("job_id", event.JobID.String()).Msg("failed to publish event")
	}
}

func (n *RedisNotifier) OnProgress(jobID uuid.UUID, status models.JobStatus, progress int) {
	n.publish(Event{JobID: jobID, Status: status, Progress: progress})
}

func (n *RedisNotifier) OnComplete(jobID uuid.UUID, videoURL string) {
	n.publish(Event{JobID: jobID, Status: models.StatusCompleted, Progress: 100, VideoURL: videoURL})
}

func (n *RedisNotifier) OnFailed(jobID uuid.UUID, message string) {
	n.publish(Event{JobID: jobID, Status: models.StatusFailed, Error: message})
}
