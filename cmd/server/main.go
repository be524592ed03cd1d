package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/T-6891/Dementor-API/internal/auth"
	"github.com/T-6891/Dementor-API/internal/config"
	"github.com/T-6891/Dementor-API/internal/handler"
	"github.com/T-6891/Dementor-API/internal/metric"
	"github.com/T-6891/Dementor-API/internal/repository/sqlite"
	"github.com/T-6891/Dementor-API/internal/service"
)

const version = "1.2.0"

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (overrides discovery)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Dementor CMDB API...")

	// Load configuration
	var (
		cfg  *config.Config
		from string
		err  error
	)
	if *configPath != "" {
		cfg, from, err = config.LoadFromPath(*configPath)
	} else {
		cfg, from, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if from != "" {
		log.Printf("Config loaded from %s", from)
	} else {
		log.Println("No config file found, using defaults")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Metrics
	metrics := metric.New()

	// Open the store
	store, err := sqlite.New(cfg.Database.Path,
		sqlite.WithQueryTimeout(cfg.Database.QueryTimeout.Std()),
		sqlite.WithMetrics(metrics),
	)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	// Permission gateway
	gateway := auth.NewGateway(cfg.APIKeys)
	log.Printf("API key table loaded: %d clients", len(cfg.APIKeys))

	// Services
	entitySvc := service.NewEntityService(store, store, cfg.Pagination)
	relationshipSvc := service.NewRelationshipService(store, store, cfg.Pagination)
	healthSvc := service.NewHealthService(store, cfg.AppName, version)

	// HTTP handlers and routes
	mux := handler.Routes(
		handler.NewEntityHandler(entitySvc),
		handler.NewRelationshipHandler(relationshipSvc),
		handler.NewHealthHandler(healthSvc),
		gateway,
		metrics,
	)

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover,
		handler.CORS,
		handler.Logger,
		handler.Instrument(metrics),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      http.TimeoutHandler(finalHandler, cfg.Server.RequestTimeout.Std(), "request timed out"),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
