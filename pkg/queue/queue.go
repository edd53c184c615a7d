package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueImageCleanup is the Redis list key for image cleanup jobs.
	QueueImageCleanup = "worker:image_cleanup"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds each blocking pop so workers notice shutdown.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeImageCleanup JobType = "image_cleanup"
)

// ImageCleanupPayload names a stored image whose removal failed inline.
type ImageCleanupPayload struct {
	Image string `json:"image"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueImageCleanup schedules removal of a stored advertising image.
func (q *Queue) EnqueueImageCleanup(ctx context.Context, stored string) error {
	body, err := json.Marshal(ImageCleanupPayload{Image: stored})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      JobTypeImageCleanup,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	if err := q.push(ctx, QueueImageCleanup, job); err != nil {
		return err
	}
	q.logger.Debug("image cleanup queued", zap.String("job_id", job.ID), zap.String("image", stored))
	return nil
}

// Dequeue blocks for up to PollTimeout. A timeout or an unreadable entry yields a nil job.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, PollTimeout, QueueImageCleanup).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP replies [key, value]
	if len(result) != 2 {
		return nil, nil
	}
	job := &Job{}
	if err := json.Unmarshal([]byte(result[1]), job); err != nil {
		q.logger.Warn("dropping unreadable job", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return job, nil
}

// Retry bumps the attempt counter and requeues the job, or parks it in QueueDLQ once
// MaxRetries attempts have failed.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	if job.Attempt < MaxRetries {
		if err := q.push(ctx, QueueImageCleanup, job); err != nil {
			return err
		}
		q.logger.Info("job requeued", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.push(ctx, QueueDLQ, job); err != nil {
		q.logger.Error("dead-letter push failed", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	q.logger.Warn("job dead-lettered", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// DecodeImageCleanup unpacks the payload of an image_cleanup job.
func DecodeImageCleanup(job *Job) (ImageCleanupPayload, error) {
	var p ImageCleanupPayload
	if job.Type != JobTypeImageCleanup {
		return p, fmt.Errorf("unexpected job type %q", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", job.Type, err)
	}
	return p, nil
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}
