package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/config"
	"github.com/storylens/storylens/internal/extract"
	"github.com/storylens/storylens/internal/pipeline"
	"github.com/storylens/storylens/internal/storage"
	"github.com/storylens/storylens/internal/video"
)

func main() {
	var (
		videoPath = flag.String("video", "", "Path to the video file")
		modesFlag = flag.String("modes", "time", "Comma-separated extraction modes: time,keyframe,scene")
		fps       = flag.Float64("fps", 0, "Sampling rate for time mode (frames per second)")
		threshold = flag.Float64("threshold", 0, "Scene-change threshold for scene mode")
		narrative = flag.Bool("narrative", false, "Run narrative scene analysis over the extracted frames")
		flow      = flag.Bool("flow", false, "Run pairwise flow analysis over the extracted frames")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *videoPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze-video -video <path> [-modes time,keyframe,scene] [-fps N] [-threshold T] [-narrative] [-flow]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if *fps > 0 {
		cfg.SampleFPS = *fps
	}
	if *threshold > 0 {
		cfg.SceneThreshold = *threshold
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *videoPath, *modesFlag, *narrative, *flow); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, videoPath, modesFlag string, narrative, flow bool) error {
	modes, err := parseModes(modesFlag)
	if err != nil {
		return err
	}

	prober, err := video.NewProber(cfg.FFprobePath, logger)
	if err != nil {
		return err
	}
	extractor, err := extract.NewExtractor(cfg.FFmpegPath, logger)
	if err != nil {
		return err
	}
	client := ai.NewClient(ai.ClientConfig{
		Endpoint:    cfg.EndpointURL,
		APIKey:      cfg.EndpointAPIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
	}, logger)

	service := pipeline.NewService(prober, extractor, client, storage.JSONTimelineStore{}, cfg.OutputDir, logger)

	info, err := service.Probe(ctx, videoPath)
	if err != nil {
		return err
	}
	fmt.Printf("Video: %s\n", videoPath)
	fmt.Printf("  duration: %.2fs  fps: %.2f  resolution: %dx%d  codec: %s  frames: %d\n",
		info.Duration, info.FPS, info.Width, info.Height, info.Codec, info.TotalFrames)

	outcome, err := service.ExtractFrames(ctx, videoPath, pipeline.ExtractOptions{
		Modes:          modes,
		SampleFPS:      cfg.SampleFPS,
		KeyframeRate:   cfg.KeyframeRate,
		SceneThreshold: cfg.SceneThreshold,
	})
	if err != nil {
		return err
	}
	if outcome.Reused {
		fmt.Printf("Reusing %d existing frames in %s\n", len(outcome.Records), outcome.FrameDir)
	} else {
		fmt.Printf("Extracted %d frames into %s\n", len(outcome.Records), outcome.FrameDir)
	}
	if len(outcome.Records) == 0 {
		return fmt.Errorf("no frames to analyze")
	}

	paths := make([]string, 0, len(outcome.Records))
	for _, rec := range outcome.Records {
		paths = append(paths, rec.Path)
	}

	session, err := service.StartBatchAnalysis(paths, outcome.FrameDir)
	if err != nil {
		return err
	}

	fmt.Println("\nAnalyzing frames:")
	for update := range session.Updates {
		switch update.Type {
		case "frame":
			marker := "✓"
			if !update.Result.Success {
				marker = "✗"
			}
			fmt.Printf("  %s [%d/%d] %s\n", marker, update.Done, update.Total, update.Result.Path)
		case "cancelled":
			return fmt.Errorf("analysis cancelled after %d of %d frames", update.Done, update.Total)
		}
	}
	fmt.Printf("Results written to %s\n", storage.ResultsFile)

	if flow {
		fmt.Println("\nFrame-to-frame flow:")
		flowResult, err := service.AnalyzeFlow(ctx, paths, func(done, total int, pair ai.PairComparison) {
			marker := "✓"
			if !pair.Success {
				marker = "✗"
			}
			fmt.Printf("  %s [%d/%d] pair %d\n", marker, done, total, pair.PairIndex)
		})
		if err != nil {
			return err
		}
		for _, pair := range flowResult.Pairs {
			if pair.Success && pair.Comparison != nil {
				fmt.Printf("  pair %d: %s\n", pair.PairIndex, pair.Comparison.ActionDescription)
			}
		}
	}

	if narrative {
		fmt.Println("\nNarrative analysis:")
		result, reused, err := service.AnalyzeNarrative(ctx, paths, outcome.FrameDir)
		if err != nil {
			return err
		}
		if reused {
			fmt.Println("  (served from cache)")
		}
		fmt.Printf("  scene:      %s\n", result.SceneID)
		fmt.Printf("  summary:    %s\n", result.Summary.WhatHappened)
		fmt.Printf("  importance: %d  confidence: %.2f\n", result.StorySignals.Importance, result.Confidence)
	}

	return nil
}

func parseModes(s string) ([]extract.Mode, error) {
	var modes []extract.Mode
	for _, part := range strings.Split(s, ",") {
		switch m := extract.Mode(strings.TrimSpace(part)); m {
		case extract.ModeTime, extract.ModeKeyframe, extract.ModeScene:
			modes = append(modes, m)
		default:
			return nil, fmt.Errorf("unknown extraction mode %q", part)
		}
	}
	return modes, nil
}
