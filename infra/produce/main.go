package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	PipelineService *PipelineProduceService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	pipelineService := InitPipelineProduceService(channel)
	if pipelineService == nil {
		panic("Failed to initialize Pipeline produce service")
	}

	produceInstance = &Produce{
		PipelineService: pipelineService,
	}

	return produceInstance
}
