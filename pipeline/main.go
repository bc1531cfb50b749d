package pipeline

import (
	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/repository"
)

// InitCoordinator wires the simulated backends, the job store and the
// configured dispatcher into a Coordinator.
func InitCoordinator(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *Coordinator {
	env := cfg.EnvConfig

	processor := NewSimulatedProcessor(env.Pipeline.VideoQuality, env.Pipeline.ProcessingDelay)
	uploader := NewPresignedUploader(infra.Minio, infra.Minio.Bucket, infra.Minio.PresignExpiry)

	opts := Options{
		ProcessTimeout: env.Pipeline.ProcessTimeout,
		UploadTimeout:  env.Pipeline.UploadTimeout,
		Logger:         infra.Logger,
	}
	if env.Pipeline.DispatchMode == config.DispatchModeAMQP {
		if infra.Produce == nil {
			panic("DISPATCH_MODE=amqp but RabbitMQ producer is not initialized")
		}
		opts.Dispatcher = infra.Produce.PipelineService
	}

	return NewCoordinator(repo.JobRepo, processor, uploader, opts)
}
