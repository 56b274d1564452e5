package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/api"
	"github.com/storylens/storylens/internal/config"
	"github.com/storylens/storylens/internal/extract"
	"github.com/storylens/storylens/internal/pipeline"
	"github.com/storylens/storylens/internal/storage"
	"github.com/storylens/storylens/internal/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	prober, err := video.NewProber(cfg.FFprobePath, logger)
	if err != nil {
		logger.Error("ffprobe not available", "error", err)
		os.Exit(1)
	}

	extractor, err := extract.NewExtractor(cfg.FFmpegPath, logger)
	if err != nil {
		logger.Error("ffmpeg not available", "error", err)
		os.Exit(1)
	}

	client := ai.NewClient(ai.ClientConfig{
		Endpoint:    cfg.EndpointURL,
		APIKey:      cfg.EndpointAPIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
		Retry:       retryPolicy(cfg),
	}, logger)

	service := pipeline.NewService(prober, extractor, client, storage.JSONTimelineStore{}, cfg.OutputDir, logger)

	app := &api.App{
		Service: service,
		Logger:  logger,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("server starting",
		"addr", addr,
		"output_dir", cfg.OutputDir,
		"endpoint", cfg.EndpointURL,
		"model", cfg.Model,
	)

	if err := http.ListenAndServe(addr, api.NewRouter(app)); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func retryPolicy(cfg *config.Config) ai.RetryPolicy {
	if cfg.RetryAttempts <= 1 {
		return ai.NoRetry{}
	}
	return ai.ExponentialBackoff{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}
