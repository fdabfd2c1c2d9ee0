package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
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
	"gorm.io/gorm"
)

type Config struct {
	Root       string `env:"ROOT" envDefault:"./chat-desk"`
	Port       int    `env:"PORT" envDefault:"3001"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"http://localhost:11434"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
}

func createDatabase(root string) *gorm.DB {
	path := filepath.Join(root, "db", "chat-desk.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.NewDatabase(path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	return db
}

func createServer(db *gorm.DB, gateway *llm.Gateway, exporter *storage.Exporter, port int) *http.Server {
	r := chi.NewRouter()

	// A local frontend is served from another port, so CORS stays wide open.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	chatService := api.NewChatService(db, gateway, exporter)
	chatService.AddRoutes(r)

	// No auth token in local mode, the dashboard is only reachable from the
	// same machine.
	dashboardService := api.NewDashboardService(dashboard.NewStats(db), "")
	dashboardService.AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db := createDatabase(cfg.Root)

	gateway := llm.NewGateway(cfg.LLMBaseURL)
	if cfg.LLMAPIKey != "" {
		gateway.SetCredential(cfg.LLMAPIKey)
	}

	objectStore, err := storage.NewLocalObjectStore(filepath.Join(cfg.Root, "exports"))
	if err != nil {
		log.Fatalf("Failed to create export store: %v", err)
	}

	server := createServer(db, gateway, storage.NewExporter(db, objectStore), cfg.Port)

	log.Printf("chat backend listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on port %d: %v", cfg.Port, err)
	}
}
