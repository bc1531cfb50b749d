package infra

import (
	"context"
	"log"

	"github.com/cockroachdb/errors"

	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/infra/produce"
)

type Infra struct {
	Redis       *RedisClient    // nil when Redis is not configured
	Postgres    *PostgresClient // nil with STORE_DRIVER=memory
	Logger      *LoggerClient
	Telemetry   *TelemetryClient
	RabbitMQ    *RabbitMQClient  // nil unless DISPATCH_MODE=amqp
	Produce     *produce.Produce // nil unless DISPATCH_MODE=amqp
	Minio       *MinioClient
	RateLimiter *RateLimiter
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetryClient(cfg.EnvConfig)
	if telemetry == nil {
		panic("Failed to initialize Telemetry service")
	}

	var postgres *PostgresClient
	if cfg.EnvConfig.Store.Driver == config.StoreDriverPostgres {
		postgres = InitPostgresClient(cfg.EnvConfig)
		if postgres == nil {
			panic("Failed to initialize Postgres service")
		}
	}

	// Redis is optional; the rate limiter keeps counters in memory without it
	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		log.Println("Warning: Redis unavailable, rate limiting is per-process")
	}

	var rabbitMQ *RabbitMQClient
	var produceService *produce.Produce
	if cfg.EnvConfig.Pipeline.DispatchMode == config.DispatchModeAMQP {
		rabbitMQ = InitRabbitMQClient(cfg.EnvConfig)
		if rabbitMQ == nil {
			panic("Failed to initialize RabbitMQ service")
		}

		produceService = produce.InitProduce(rabbitMQ.Channel)
		if produceService == nil {
			panic("Failed to initialize Produce service")
		}
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	rateLimiter := NewRateLimiter(redis, cfg.EnvConfig.RateLimit.MaxRequests, cfg.EnvConfig.RateLimit.Window)

	infraInstance = &Infra{
		Redis:       redis,
		Postgres:    postgres,
		Logger:      logger,
		Telemetry:   telemetry,
		RabbitMQ:    rabbitMQ,
		Produce:     produceService,
		Minio:       minio,
		RateLimiter: rateLimiter,
	}

	return infraInstance
}

// Close flushes telemetry and releases every connection that was opened.
func (i *Infra) Close(ctx context.Context) error {
	var err error
	if i.RabbitMQ != nil {
		err = errors.CombineErrors(err, i.RabbitMQ.Close())
	}
	if i.Redis != nil {
		err = errors.CombineErrors(err, i.Redis.Close())
	}
	if i.Postgres != nil {
		err = errors.CombineErrors(err, i.Postgres.Close())
	}
	if i.Telemetry != nil {
		err = errors.CombineErrors(err, i.Telemetry.Shutdown(ctx))
	}
	return errors.CombineErrors(err, i.Logger.Shutdown(ctx))
}
