// Package worker copies short-lived vendor video into durable artifact storage.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/pkg/queue"
)

const (
	downloadTimeout  = 2 * time.Minute
	defaultVideoType = "video/mp4"
	// MaxVideoSize bounds a mirrored vendor clip.
	MaxVideoSize = 200 * 1024 * 1024
)

// Jobs is the queue the processor drains.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Interviews reads interviews and records mirrored video URLs.
type Interviews interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	UpdateTurnMirror(ctx context.Context, id, turnID uuid.UUID, url string) error
}

// MirrorProcessor processes artifact mirror jobs: download from the vendor URL, save to
// artifact storage, record the durable URL on the turn.
type MirrorProcessor struct {
	interviews Interviews
	artifacts  artifacts.Store
	jobs       Jobs
	http       *resty.Client
	backoff    time.Duration
	logger     *zap.Logger
}

// NewMirrorProcessor creates an artifact mirror processor. backoff <= 0 uses queue.RetryBackoff.
func NewMirrorProcessor(iv Interviews, store artifacts.Store, jobs Jobs, backoff time.Duration, logger *zap.Logger) *MirrorProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = queue.RetryBackoff
	}
	return &MirrorProcessor{
		interviews: iv,
		artifacts:  store,
		jobs:       jobs,
		http:       resty.New().SetTimeout(downloadTimeout),
		backoff:    backoff,
		logger:     logger,
	}
}

// Process executes one artifact mirror job.
func (p *MirrorProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeArtifactMirror {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ArtifactMirrorPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	log := p.logger.With(
		zap.String(logger.FieldInterview, payload.InterviewID.String()),
		zap.String("turn_id", payload.TurnID.String()),
	)

	iv, err := p.interviews.Get(ctx, payload.InterviewID)
	if err != nil {
		return fmt.Errorf("load interview: %w", err)
	}
	turn := findTurn(iv, payload.TurnID)
	if turn == nil {
		return fmt.Errorf("turn not found: %s", payload.TurnID)
	}
	if turn.MirroredVideoURL != "" {
		log.Info("video already mirrored")
		return nil
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(payload.SourceURL)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode())
	}
	if resp.RawResponse.ContentLength > MaxVideoSize {
		return fmt.Errorf("video too large: %d bytes", resp.RawResponse.ContentLength)
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		contentType = defaultVideoType
	}
	url, err := p.artifacts.Save(ctx, artifacts.KindVideo, contentType,
		io.LimitReader(body, MaxVideoSize), resp.RawResponse.ContentLength)
	if err != nil {
		return fmt.Errorf("save video: %w", err)
	}

	if err := p.interviews.UpdateTurnMirror(ctx, payload.InterviewID, payload.TurnID, url); err != nil {
		log.Error("record mirrored video failed", zap.Error(err))
		return fmt.Errorf("update turn: %w", err)
	}
	log.Info("video mirrored", zap.String("url", url))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *MirrorProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("mirror worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *MirrorProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func findTurn(iv *models.Interview, turnID uuid.UUID) *models.ConversationTurn {
	for i := range iv.Conversation {
		if iv.Conversation[i].ID == turnID {
			return &iv.Conversation[i]
		}
	}
	return nil
}
