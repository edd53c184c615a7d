package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autoparts-market/backend/pkg/queue"
	"github.com/autoparts-market/backend/pkg/storage"
)

// JobSource is the part of *queue.Queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ImageCleanupProcessor removes advertising images whose inline removal failed.
type ImageCleanupProcessor struct {
	images  storage.ImageStore
	queue   JobSource
	backoff time.Duration
	logger  *zap.Logger
}

// NewImageCleanupProcessor creates an image cleanup processor.
func NewImageCleanupProcessor(images storage.ImageStore, q JobSource, logger *zap.Logger) *ImageCleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageCleanupProcessor{images: images, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one image cleanup job. A file that is already gone counts as done.
func (p *ImageCleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeImageCleanup(job)
	if err != nil {
		return err
	}
	if !storage.IsLocallyOwned(payload.Image) {
		p.logger.Info("skipping image not owned by store", zap.String("image", payload.Image))
		return nil
	}
	if err := p.images.Remove(ctx, payload.Image); err != nil {
		return fmt.Errorf("remove image: %w", err)
	}
	p.logger.Info("image cleanup completed", zap.String("image", payload.Image), zap.Int("attempt", job.Attempt))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ImageCleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("image cleanup worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
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
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *ImageCleanupProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
