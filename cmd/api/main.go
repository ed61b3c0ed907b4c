package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.temporal.io/sdk/client"

	"dev/bravebird/auto-checkin-go/pkg/api"
	"dev/bravebird/auto-checkin-go/pkg/config"
	"dev/bravebird/auto-checkin-go/pkg/database"
)

func main() {
	log.Println("Starting Auto Check-in API Server")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := database.New(cfg.MySQLDSN)
	if err != nil {
		log.Printf("Warning: Failed to connect to database: %v", err)
		log.Println("Running without database persistence")
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHostPort,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	// Create API handlers
	handlers := api.NewHandlers(db, temporalClient, api.Defaults{
		Account:       cfg.Account,
		Password:      cfg.Password,
		LoginURL:      cfg.LoginURL,
		ScreenshotDir: cfg.ScreenshotDir,
	})

	// Setup router
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	// API routes
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Check-in runs
	apiRouter.HandleFunc("/checkins", handlers.TriggerCheckin).Methods("POST")
	apiRouter.HandleFunc("/runs", handlers.ListRuns).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", handlers.GetRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/cancel", handlers.CancelRun).Methods("POST")

	// WebSocket for real-time updates
	apiRouter.HandleFunc("/runs/{id}/stream", handlers.StreamRunUpdates).Methods("GET")

	// Screenshots
	apiRouter.HandleFunc("/screenshots/{filename}", handlers.ServeScreenshot).Methods("GET")

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
