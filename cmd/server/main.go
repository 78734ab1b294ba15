// Package main is the entry point for the eFIR server. It exposes the
// identity registry and FIR report store over a small REST API:
// registration and login, FIR filing with field validation, public
// status enquiry by FIR number, per-owner listings, and an append-only
// status history behind a strict workflow state machine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efir/efir-server/internal/config"
	"github.com/efir/efir-server/internal/handlers"
	"github.com/efir/efir-server/internal/middleware"
	"github.com/efir/efir-server/internal/services"
	"github.com/efir/efir-server/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting eFIR Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"storage", cfg.StorageBackend,
	)

	ctx := context.Background()

	// Initialize the store for the configured backend
	store, cleanup, err := newStore(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize storage: %v", err)
	}
	defer cleanup()

	// Initialize services
	registry := services.NewRegistryService(store, sugar)
	reports := services.NewReportService(store, sugar)

	if cfg.SeedDemoAccount {
		if err := registry.EnsureDemoAccount(ctx); err != nil {
			sugar.Fatalf("Failed to seed demo account: %v", err)
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(registry, cfg.JWTSecret, sugar)
	firHandler := handlers.NewFIRHandler(reports, registry, sugar)
	healthHandler := handlers.NewHealthHandler(store, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		// Identity registry
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWTSecret))
			r.Get("/", authHandler.Profile)
			r.Put("/", authHandler.UpdateProfile)
		})

		// Report store
		r.Route("/firs", func(r chi.Router) {
			r.Get("/count", firHandler.Count)
			r.Get("/{firNumber}", firHandler.Enquiry) // public status enquiry

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(cfg.JWTSecret))
				r.Post("/", firHandler.Submit)
				r.Get("/mine", firHandler.Mine)
				r.Patch("/{firNumber}/status", firHandler.UpdateStatus)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}

// newStore builds the storage backend selected by configuration and
// returns it with a cleanup func for deferred release.
func newStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return storage.NewKVStore(storage.NewMemoryKV()), func() {}, nil

	case config.BackendFile:
		return storage.NewKVStore(storage.NewFileKV(cfg.DataFile)), func() {}, nil

	case config.BackendRedis:
		kv, err := storage.NewRedisKV(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewKVStore(kv), func() { kv.Close() }, nil

	case config.BackendPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(pool, sugar)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() { pool.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
