package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"procurement-backend/cmd"
	"procurement-backend/internal/database"
	"procurement-backend/internal/messaging"
)

func main() {
	log.Println("Starting Worker Process...")

	cmd.LoadEnvFile()

	var cfg cmd.ServiceConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the worker binary; without it run the api binary alone, it processes analyses in-process")
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := cmd.BuildCatalogStore(cfg)
	llmClient := cmd.BuildLLMClient(cfg)
	pipe := cmd.BuildPipeline(cfg, store)

	receiver := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)

	worker := messaging.NewWorker(db, pipe, llmClient, cfg.WorkerConcurrency)
	worker.Start(receiver)

	log.Println("Worker started. Waiting for tasks. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received, waiting for workers to finish...")

	receiver.Close()
	worker.Wait()

	log.Println("Worker process stopped.")
}
