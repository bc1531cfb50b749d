package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/http/controller"
	routes "github.com/tnqbao/gau-focus-service/http/route"
	infraPkg "github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/pipeline"
	"github.com/tnqbao/gau-focus-service/repository"
)

func main() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	coordinator := pipeline.InitCoordinator(cfg, infra, repo)

	ctrl := controller.NewController(cfg, infra, repo, coordinator)

	router := routes.SetupRouter(ctrl)

	server := &http.Server{
		Addr:    ":" + cfg.EnvConfig.Port,
		Handler: router,
	}

	go func() {
		log.Println("HTTP Server started on :" + cfg.EnvConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if err := infra.Close(ctx); err != nil {
		log.Printf("Error closing infra: %v", err)
	}

	log.Println("Server exited properly")
}
