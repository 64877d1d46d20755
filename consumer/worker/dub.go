package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/infra/produce"
	"github.com/vidlingo/dub-orchestrator/repository"
)

// DubConsumer pulls dub work items off the process queue and runs them
// through the executor with a bounded number of concurrent jobs.
type DubConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
	executor   *Executor
	slots      chan struct{}
}

func NewDubConsumer(channel *amqp.Channel, infraClient *infra.Infra, repo *repository.Repository, executor *Executor, workerCount int) *DubConsumer {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &DubConsumer{
		channel:    channel,
		infra:      infraClient,
		repository: repo,
		executor:   executor,
		slots:      make(chan struct{}, workerCount),
	}
}

func (c *DubConsumer) Start(ctx context.Context) error {
	// Prefetch matches the worker slots so the broker never hands this
	// instance more claimed jobs than it can run.
	if err := c.channel.Qos(cap(c.slots), 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		produce.DubProcessQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register dub consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Started listening on queue %s with %d worker slots", produce.DubProcessQueue, cap(c.slots))

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Dub Consumer] Channel closed")
					return
				}
				c.slots <- struct{}{}
				go func(msg amqp.Delivery) {
					defer func() { <-c.slots }()
					c.handleDubJob(ctx, msg)
				}(msg)
			}
		}
	}()

	return nil
}

func (c *DubConsumer) handleDubJob(ctx context.Context, msg amqp.Delivery) {
	var payload produce.DubJobMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Dub Consumer] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Dub Consumer] Invalid job ID %q", payload.JobID)
		_ = msg.Nack(false, false)
		return
	}

	// The HTTP request that queued this work is long gone; processing runs
	// on its own context.
	bgCtx := context.Background()

	cancelled, err := c.infra.Redis.IsDubCancelled(bgCtx, payload.JobID)
	if err != nil {
		c.infra.Logger.WarningWithContextf(ctx, "[Dub Consumer] Cancellation check failed for job %s: %v", jobID, err)
	}
	if cancelled {
		c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Job %s was cancelled, skipping", jobID)
		_ = msg.Ack(false)
		return
	}

	job, err := c.repository.DubJobRepo.FindByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.infra.Logger.WarningWithContextf(ctx, "[Dub Consumer] Job %s no longer exists, skipping", jobID)
			_ = msg.Ack(false)
			return
		}
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Dub Consumer] Failed to load job %s", jobID)
		_ = msg.Nack(false, true) // Requeue
		return
	}

	if job.Status.IsTerminal() {
		c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Job %s already %s, skipping", jobID, job.Status)
		_ = msg.Ack(false)
		return
	}

	video, err := c.repository.VideoRepo.FindByID(job.VideoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.infra.Logger.ErrorWithContextf(ctx, err, "[Dub Consumer] Video %s for job %s is gone", job.VideoID, jobID)
			c.executor.fail(bgCtx, job, fmt.Errorf("video %s not found", job.VideoID))
			_ = msg.Ack(false)
			return
		}
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Dub Consumer] Failed to load video %s", job.VideoID)
		_ = msg.Nack(false, true)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Processing job %s (attempt %d)", jobID, payload.Attempt)

	outcome := c.executor.Execute(bgCtx, job, video)

	switch outcome {
	case OutcomeCompleted:
		c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Job %s completed", jobID)
	case OutcomeRetryScheduled:
		c.infra.Logger.InfoWithContextf(ctx, "[Dub Consumer] Job %s re-queued for retry", jobID)
	case OutcomeFailed:
		c.infra.Logger.WarningWithContextf(ctx, "[Dub Consumer] Job %s failed", jobID)
	}

	// The attempt reached a terminal outcome either way; re-delivery is
	// handled through the retry queue, not broker requeueing.
	_ = msg.Ack(false)
}
