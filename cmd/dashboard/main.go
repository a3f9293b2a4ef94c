package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/analytics"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/cache"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/handlers"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/llm"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/config"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/crypto"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/logger"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	logg.Info("starting LLM dashboard",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logg.Fatal("failed to apply schema", zap.Error(err))
	}
	logg.Info("connected to PostgreSQL")

	// Initialize Redis. The dashboard degrades to uncached reads and no
	// rate limiting when it is unreachable.
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		logg.Warn("Redis unavailable, caching and rate limiting disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logg.Info("connected to Redis")
	}

	cipher, err := crypto.New(cfg.EncryptionKey)
	if err != nil {
		logg.Fatal("failed to initialize encryption", zap.Error(err))
	}

	dashCache := cache.New(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, cfg.CacheEnabled, logg)
	recorder := llm.NewRecorder(db, dashCache, logg)
	orchestrator := llm.NewOrchestrator(db, cipher, recorder, cfg.GroqBaseURL, logg)
	engine := analytics.NewEngine(db, dashCache, logg)

	// Handlers
	tracesHandler := handlers.NewTracesHandler(db, recorder, dashCache, logg)
	analyticsHandler := handlers.NewAnalyticsHandler(engine, logg)
	settingsHandler := handlers.NewSettingsHandler(db, cipher, orchestrator, logg)
	llmHandler := handlers.NewLLMHandler(orchestrator, logg)
	feedbackHandler := handlers.NewFeedbackHandler(db, logg)
	middleware := handlers.NewMiddleware(cfg.JWTSecret, redisClient, cfg.DefaultRateLimit, logg)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RequestID)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Use(middleware.RateLimit)

		r.Route("/traces", func(r chi.Router) {
			r.Get("/", tracesHandler.List)
			r.Post("/", tracesHandler.Create)
			r.Get("/recent", tracesHandler.Recent)
			r.Get("/search", tracesHandler.Search)
			r.Get("/export", tracesHandler.Export)
			r.With(middleware.RequireAuth).Post("/clear", tracesHandler.Clear)
			r.Get("/{id}", tracesHandler.Get)
			r.Get("/{id}/feedback", feedbackHandler.ListForTrace)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", analyticsHandler.Overview)
			r.Get("/charts", analyticsHandler.Charts)
			r.Get("/models", analyticsHandler.ModelStats)
			r.Get("/error-rate", analyticsHandler.ErrorRate)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/", settingsHandler.GetConfig)
			r.Post("/api-key", settingsHandler.SetAPIKey)
			r.Post("/test-connection", settingsHandler.TestConnection)
			r.Get("/models", settingsHandler.Models)
			r.Post("/default-model", settingsHandler.SetDefaultModel)
		})

		r.Post("/llm/test", llmHandler.TestCall)
		r.Post("/feedback", feedbackHandler.Create)
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logg.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logg.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown error", zap.Error(err))
	}

	logg.Info("server stopped")
}
