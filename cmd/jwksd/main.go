// Package main is the entry point for the JWKS resolver lookup service.
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

	"github.com/joho/godotenv"

	"github.com/tendant/jwks-resolver/internal/config"
	jwkshttp "github.com/tendant/jwks-resolver/internal/http"
	"github.com/tendant/jwks-resolver/internal/jwks"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Key set client
	fetcher := jwks.NewHTTPFetcher(
		jwks.WithTimeout(cfg.FetchTimeout),
		jwks.WithMaxBodyBytes(cfg.MaxBodyBytes),
		jwks.WithFetchLogger(logger),
	)
	client := jwks.NewClient(cfg.URI, jwks.WithFetcher(fetcher), jwks.WithLogger(logger))

	// Create HTTP server
	server := jwkshttp.NewServer(cfg.Addr(), client,
		jwkshttp.WithLogger(logger),
		jwkshttp.WithRateLimit(cfg.RateLimit),
		jwkshttp.WithCORS(cfg.CORSOrigins),
		jwkshttp.WithReadinessCheck(func(ctx context.Context) error {
			_, err := client.GetSigningKeys(ctx)
			return err
		}),
	)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started", "addr", cfg.Addr(), "jwks_uri", cfg.URI)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
