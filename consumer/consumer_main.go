package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/consumer/worker"
	infraPkg "github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/pipeline"
	"github.com/tnqbao/gau-focus-service/repository"
)

func main() {
	err := godotenv.Load("../.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	if cfg.EnvConfig.Pipeline.DispatchMode != config.DispatchModeAMQP {
		log.Fatalf("Consumer requires DISPATCH_MODE=%s", config.DispatchModeAMQP)
	}

	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	coordinator := pipeline.InitCoordinator(cfg, infra, repo)

	// Initialize context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelineConsumer := worker.NewPipelineConsumer(infra.RabbitMQ.Channel, infra, coordinator)
	if err := pipelineConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Pipeline consumer: %v", err)
		log.Fatalf("Failed to start Pipeline consumer: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := infra.Close(shutdownCtx); err != nil {
		log.Printf("Error closing infra: %v", err)
	}

	log.Println("Consumer exited properly")
}
