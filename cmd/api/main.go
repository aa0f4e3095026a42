package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"procurement-backend/cmd"
	"procurement-backend/internal/api"
	"procurement-backend/internal/chat"
	"procurement-backend/internal/database"
	"procurement-backend/internal/extractor"
	"procurement-backend/internal/messaging"
	"procurement-backend/internal/queryexec"
	"procurement-backend/internal/semantic"
)

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg cmd.ServiceConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := cmd.BuildCatalogStore(cfg)
	llmClient := cmd.BuildLLMClient(cfg)

	index := semantic.NewIndex(llmClient)
	if llmClient != nil {
		// Best effort at startup; searches against an empty index surface
		// ErrEmptyIndex and the executor degrades to SQL-only answers.
		if err := index.Reindex(context.Background(), store); err != nil {
			log.Printf("could not build semantic index, semantic answers degraded: %v", err)
		}
	}

	var publisher messaging.Publisher
	if cfg.RabbitMQURL != "" {
		rabbitPublisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	} else {
		// Local single-binary mode: in-memory queue with an in-process
		// worker pool instead of RabbitMQ plus a separate worker binary.
		log.Println("RABBITMQ_URL not set, running analysis workers in-process")
		queue := messaging.NewInMemoryQueue()
		defer queue.Close()
		publisher = queue

		worker := messaging.NewWorker(db, cmd.BuildPipeline(cfg, store), llmClient, cfg.WorkerConcurrency)
		worker.Start(queue)
	}

	ext := extractor.New(llmClient, store)
	executor := queryexec.New(llmClient, store, index)
	orchestrator := chat.NewOrchestrator(db, ext, executor, publisher)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	chatHandler := api.NewChatService(db, orchestrator)

	r.Route("/api/v1", func(r chi.Router) {
		chatHandler.AddRoutes(r)
	})

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
