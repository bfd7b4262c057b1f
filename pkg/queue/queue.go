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
	// QueueArtifacts is the Redis list key for artifact mirror jobs.
	QueueArtifacts = "worker:artifacts"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the default number of attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the default delay between retries.
	RetryBackoff = 5 * time.Second
	// dequeueWait bounds a single BLPOP so shutdown is noticed promptly.
	dequeueWait = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeArtifactMirror JobType = "artifact_mirror"
)

// ArtifactMirrorPayload asks the worker to copy a short-lived vendor video into the artifacts bucket.
type ArtifactMirrorPayload struct {
	InterviewID uuid.UUID `json:"interview_id"`
	TurnID      uuid.UUID `json:"turn_id"`
	SourceURL   string    `json:"source_url"`
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
	client     redis.Cmdable
	logger     *zap.Logger
	maxRetries int
}

// NewQueue creates a new Redis-backed job queue. maxRetries <= 0 uses MaxRetries.
func NewQueue(client redis.Cmdable, maxRetries int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = MaxRetries
	}
	return &Queue{client: client, logger: logger, maxRetries: maxRetries}
}

// EnqueueArtifactMirror enqueues an artifact mirror job.
func (q *Queue) EnqueueArtifactMirror(ctx context.Context, payload ArtifactMirrorPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeArtifactMirror,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueArtifacts, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued artifact mirror job",
		zap.String("job_id", job.ID),
		zap.String("interview_id", payload.InterviewID.String()),
		zap.String("turn_id", payload.TurnID.String()),
	)
	return nil
}

// Dequeue waits briefly for a job. It returns a nil job when none arrived in time.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, dequeueWait, QueueArtifacts).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. Once the attempt count reaches the
// retry limit the job is pushed to the DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= q.maxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueArtifacts, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
