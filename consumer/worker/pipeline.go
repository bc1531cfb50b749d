package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tnqbao/gau-focus-service/entity"
	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/infra/produce"
)

// PipelineRunner is the part of the coordinator a consumer drives
type PipelineRunner interface {
	Run(ctx context.Context, id string) (*entity.Job, error)
	Resume(ctx context.Context, id string) (*entity.Job, error)
}

type PipelineConsumer struct {
	channel *amqp.Channel
	infra   *infra.Infra
	runner  PipelineRunner
}

func NewPipelineConsumer(channel *amqp.Channel, infra *infra.Infra, runner PipelineRunner) *PipelineConsumer {
	return &PipelineConsumer{
		channel: channel,
		infra:   infra,
		runner:  runner,
	}
}

func (c *PipelineConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.PipelineQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register pipeline consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Pipeline Consumer] Started listening for pipeline jobs on queue: %s", produce.PipelineQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Pipeline Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Pipeline Consumer] Channel closed")
					return
				}
				c.handlePipelineRun(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *PipelineConsumer) handlePipelineRun(ctx context.Context, msg amqp.Delivery) {
	var payload produce.PipelineRunMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Pipeline Consumer] Failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}
	if payload.JobID == "" {
		c.infra.Logger.ErrorWithContextf(ctx, nil, "[Pipeline Consumer] Message has no job id")
		_ = msg.Nack(false, false)
		return
	}

	var drive func(context.Context, string) (*entity.Job, error)
	switch payload.Mode {
	case produce.PipelineModeRun, "":
		drive = c.runner.Run
		if msg.Redelivered {
			// an earlier attempt may have left the job in flight
			c.infra.Logger.InfoWithContextf(ctx, "[Pipeline Consumer] Redelivered run for job %s, resuming", payload.JobID)
			drive = c.runner.Resume
		}
	case produce.PipelineModeResume:
		drive = c.runner.Resume
	default:
		c.infra.Logger.ErrorWithContextf(ctx, nil, "[Pipeline Consumer] Unknown mode %q for job %s", payload.Mode, payload.JobID)
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Pipeline Consumer] Received %s for job %s", payload.Mode, payload.JobID)

	// a shutdown must not strand the job between stages
	job, err := drive(context.WithoutCancel(ctx), payload.JobID)
	switch {
	case err == nil:
		c.infra.Logger.InfoWithContextf(ctx, "[Pipeline Consumer] Job %s finished as %s", payload.JobID, job.State)
		_ = msg.Ack(false)
	case errors.Is(err, entity.ErrStorageUnavailable):
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Pipeline Consumer] Job store unavailable for job %s, requeueing", payload.JobID)
		_ = msg.Nack(false, true)
	case errors.Is(err, entity.ErrProcessing), errors.Is(err, entity.ErrUpload):
		// the failure is recorded on the job; redelivery would only conflict
		c.infra.Logger.WarningWithContextf(ctx, "[Pipeline Consumer] Job %s failed: %v", payload.JobID, err)
		_ = msg.Ack(false)
	case errors.Is(err, entity.ErrConflict), errors.Is(err, entity.ErrNotFound):
		c.infra.Logger.WarningWithContextf(ctx, "[Pipeline Consumer] Dropping %s for job %s: %v", payload.Mode, payload.JobID, err)
		_ = msg.Ack(false)
	default:
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Pipeline Consumer] Unexpected error for job %s", payload.JobID)
		_ = msg.Nack(false, false)
	}
}
