package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/clipforge/renderd/internal/models"
)

// RenderQueueKey is the Redis list render submissions land on. External
// producers push JSON-encoded Jobs; workers block-pop from it.
const RenderQueueKey = "renderd:jobs"

// Job is one queued render request: the timeline to render plus the identity
// the orchestrator assigned at submission.
type Job struct {
	ID        uuid.UUID       `json:"id"`
	Timeline  models.Timeline `json:"timeline"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue is the transport render jobs travel through between submission and a
// worker picking them up.
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue blocks up to timeout and returns (nil, nil) when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	Length(ctx context.Context) (int64, error)
	Close() error
}

// RedisQueue backs the queue with a Redis list so submissions survive worker
// restarts and can come from other processes.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedis(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client, key: RenderQueueKey}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
