// Rommaana insurance agents server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/rommaana-agents/internal/api"
	"github.com/ashureev/rommaana-agents/internal/app"
	"github.com/ashureev/rommaana-agents/internal/config"
	"github.com/ashureev/rommaana-agents/internal/conversation"
	"github.com/ashureev/rommaana-agents/internal/convlog"
	"github.com/ashureev/rommaana-agents/internal/identity"
	"github.com/ashureev/rommaana-agents/internal/metrics"
	"github.com/ashureev/rommaana-agents/internal/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize agents", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := services.Close(); closeErr != nil {
			slog.Error("Failed to close conversation store", "error", closeErr)
		}
	}()

	if !services.Retriever.Heartbeat(ctx) {
		slog.Warn("Vector store is unreachable, RAG answers will have no sources", "url", cfg.Knowledge.ChromaURL)
	}

	conversationLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = conversationLogger.Close() }()

	// Initialize handlers.
	baseHandler := api.NewHandler(logger, cfg.MaxBodyBytes)
	chatHandler := api.NewChatHandler(baseHandler, services.Agents, conversationLogger, cfg.FrontendURL, cfg.IsDevelopment())
	knowledgeDeps := api.KnowledgeDeps{
		RAG:             services.Knowledge,
		DefaultNotebook: cfg.Bridge.DefaultNotebook,
		Vision:          services.Vision,
	}
	if services.Notebooks != nil {
		knowledgeDeps.Notebooks = services.Notebooks
	}
	knowledgeHandler := api.NewKnowledgeHandler(baseHandler, knowledgeDeps)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(corsOrigins(cfg)))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute, logger)
			go limiter.Run(ctx, time.Minute)
			r.Use(limiter.Middleware)
		}
		chatHandler.RegisterRoutes(r)
		knowledgeHandler.RegisterRoutes(r)
	})

	// Generation can take as long as the provider timeout, and websocket
	// connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	conversation.StartSweeper(ctx, cfg.Conversation.SweepInterval, logger, services.Sweepers...)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// corsOrigins allows any origin in development and only the frontend otherwise.
func corsOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
