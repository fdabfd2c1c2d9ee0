package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-backend/cmd"
	"chat-backend/internal/api"
	"chat-backend/internal/dashboard"
	"chat-backend/internal/database"
	"chat-backend/internal/llm"
	"chat-backend/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	DatabaseURL        string `env:"DATABASE_URL,notEmpty,required"`
	LLMBaseURL         string `env:"LLM_BASE_URL,notEmpty,required"`
	LLMAPIKey          string `env:"LLM_API_KEY"`
	APIPort            string `env:"API_PORT" envDefault:"8001"`
	DashboardAuthToken string `env:"DASHBOARD_AUTH_TOKEN"`

	ExportStorageType string `env:"EXPORT_STORAGE_TYPE" envDefault:"local"` // "local" or "s3"
	ExportDir         string `env:"EXPORT_DIR" envDefault:"./exports"`
	ExportBucket      string `env:"EXPORT_BUCKET" envDefault:"chat-exports"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

func createObjectStore(cfg APIConfig) (storage.ObjectStore, error) {
	if cfg.ExportStorageType == "s3" {
		return storage.NewS3ObjectStore(cfg.ExportBucket, storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	}
	return storage.NewLocalObjectStore(cfg.ExportDir)
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	gateway := llm.NewGateway(cfg.LLMBaseURL)
	if cfg.LLMAPIKey != "" {
		gateway.SetCredential(cfg.LLMAPIKey)
	}

	objectStore, err := createObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create export store: %v", err)
	}

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

	r.Get("/health", api.RestHandler(func(r *http.Request) (any, error) { return nil, nil }))

	chatService := api.NewChatService(db, gateway, storage.NewExporter(db, objectStore))
	chatService.AddRoutes(r)

	dashboardService := api.NewDashboardService(dashboard.NewStats(db), cfg.DashboardAuthToken)
	dashboardService.AddRoutes(r)

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
