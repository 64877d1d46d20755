package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/consumer/worker"
	"github.com/vidlingo/dub-orchestrator/engine/remote"
	infraPkg "github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engines := remote.NewEngineSet(cfg.EnvConfig, infra.Redis)

	executor := worker.NewExecutor(
		cfg.EnvConfig,
		engines,
		repo.DubJobRepo,
		repo.VideoRepo,
		infra.Minio,
		infra.Produce.DubService,
		infra.Logger,
	)

	dubConsumer := worker.NewDubConsumer(infra.RabbitMQ.Channel, infra, repo, executor, cfg.EnvConfig.Pipeline.WorkerCount)
	if err := dubConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Dub consumer: %v", err)
		log.Fatalf("Failed to start Dub consumer: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	infra.Logger.Shutdown(shutdownCtx)
	infra.RabbitMQ.Close()

	infra.Logger.InfoWithContextf(context.Background(), "Consumer exited properly")
}
