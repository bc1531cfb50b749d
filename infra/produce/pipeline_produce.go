package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PipelineExchange = "focus.exchange"
	PipelineQueue    = "focus.pipeline"

	PipelineRunRoutingKey    = "focus.pipeline.run"
	PipelineResumeRoutingKey = "focus.pipeline.resume"
)

const (
	PipelineModeRun    = "run"
	PipelineModeResume = "resume"
)

// PipelineRunMessage asks a consumer to drive one job through the pipeline
type PipelineRunMessage struct {
	JobID     string `json:"job_id"`
	Mode      string `json:"mode"` // "run" or "resume"
	Timestamp int64  `json:"timestamp"`
}

// Publisher is the subset of *amqp.Channel used for publishing
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PipelineProduceService hands pipeline runs to the consumer fleet
type PipelineProduceService struct {
	publisher Publisher
	now       func() time.Time
}

// InitPipelineProduceService declares the exchange and queue, then returns the service
func InitPipelineProduceService(channel *amqp.Channel) *PipelineProduceService {
	err := channel.ExchangeDeclare(
		PipelineExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to declare Pipeline exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		PipelineQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Pipeline queue: " + err.Error())
	}

	for _, key := range []string{PipelineRunRoutingKey, PipelineResumeRoutingKey} {
		if err := channel.QueueBind(PipelineQueue, key, PipelineExchange, false, nil); err != nil {
			panic("Failed to bind Pipeline queue: " + err.Error())
		}
	}

	return NewPipelineProduceService(channel)
}

func NewPipelineProduceService(publisher Publisher) *PipelineProduceService {
	return &PipelineProduceService{publisher: publisher, now: time.Now}
}

// Dispatch publishes a run request for a CREATED job
func (s *PipelineProduceService) Dispatch(ctx context.Context, jobID string) error {
	return s.publish(ctx, PipelineRunRoutingKey, PipelineRunMessage{JobID: jobID, Mode: PipelineModeRun})
}

// DispatchResume publishes a resume request for a job left in flight
func (s *PipelineProduceService) DispatchResume(ctx context.Context, jobID string) error {
	return s.publish(ctx, PipelineResumeRoutingKey, PipelineRunMessage{JobID: jobID, Mode: PipelineModeResume})
}

func (s *PipelineProduceService) publish(ctx context.Context, routingKey string, msg PipelineRunMessage) error {
	msg.Timestamp = s.now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.publisher.PublishWithContext(
		ctx,
		PipelineExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.JobID,
		},
	)
}
