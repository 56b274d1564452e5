package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/extract"
	"github.com/storylens/storylens/internal/storage"
	"github.com/storylens/storylens/internal/video"
)

type mockAnalyzer struct {
	frameCalls     int
	narrativeCalls int
	failPath       string
	narrative      *ai.SceneAnalysis
}

func (m *mockAnalyzer) AnalyzeFrame(ctx context.Context, path string) ai.AnalysisResult {
	m.frameCalls++
	if path == m.failPath {
		return ai.AnalysisResult{Path: path, Error: "mock failure"}
	}
	return ai.AnalysisResult{Success: true, Path: path, Analysis: &ai.FrameAnalysis{Summary: "ok"}}
}

func (m *mockAnalyzer) CompareFrames(ctx context.Context, startPath, endPath string) ai.FrameComparisonResult {
	return ai.FrameComparisonResult{Success: true, StartPath: startPath, EndPath: endPath}
}

func (m *mockAnalyzer) AnalyzeFlow(ctx context.Context, paths []string, progress ai.ProgressFunc) (*ai.FlowResult, error) {
	flow := &ai.FlowResult{Success: true}
	for i := 0; i < len(paths)-1; i++ {
		flow.Pairs = append(flow.Pairs, ai.PairComparison{PairIndex: i, Success: true})
	}
	return flow, nil
}

func (m *mockAnalyzer) AnalyzeNarrative(ctx context.Context, paths []string) (*ai.SceneAnalysis, error) {
	m.narrativeCalls++
	result := *m.narrative
	result.SceneID = ai.SceneID(paths)
	result.Frames = append([]string(nil), paths...)
	result.Timestamp = time.Now()
	return &result, nil
}

type mockProber struct{}

func (mockProber) Probe(ctx context.Context, path string) (*video.VideoInfo, error) {
	return &video.VideoInfo{Duration: 10, FPS: 25, TotalFrames: 250}, nil
}

type mockExtractor struct {
	records []extract.FrameRecord
	calls   int
}

func (m *mockExtractor) Extract(ctx context.Context, req extract.Request) (*extract.Result, error) {
	m.calls++
	return &extract.Result{RunID: "run-1", Records: m.records}, nil
}

func newTestService(t *testing.T, analyzer Analyzer, extractor FrameSource) (*Service, string) {
	t.Helper()
	outputDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(mockProber{}, extractor, analyzer, storage.JSONTimelineStore{}, outputDir, logger)
	return svc, outputDir
}

func TestExtractFramesReusesExistingDirectory(t *testing.T) {
	extractor := &mockExtractor{}
	svc, outputDir := newTestService(t, &mockAnalyzer{}, extractor)

	frameDir := storage.FrameDir(outputDir, "/videos/clip.mp4")
	require.NoError(t, os.MkdirAll(frameDir, 0755))
	for _, name := range []string{"time_00001.png", "key_00001.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(frameDir, name), []byte("x"), 0644))
	}

	outcome, err := svc.ExtractFrames(context.Background(), "/videos/clip.mp4", ExtractOptions{Modes: []extract.Mode{extract.ModeTime}})
	require.NoError(t, err)

	assert.True(t, outcome.Reused)
	assert.Equal(t, 0, extractor.calls, "reuse must skip extraction")
	require.Len(t, outcome.Records, 2)
	assert.Equal(t, extract.ModeKeyframe, outcome.Records[0].Mode)
	assert.Equal(t, extract.ModeTime, outcome.Records[1].Mode)
	assert.Equal(t, 1, outcome.Records[0].Ordinal)
	assert.Equal(t, 2, outcome.Records[1].Ordinal)
}

func TestExtractFramesFreshRun(t *testing.T) {
	extractor := &mockExtractor{records: []extract.FrameRecord{
		{Path: "/out/time_00001.png", Mode: extract.ModeTime, Ordinal: 1},
	}}
	svc, _ := newTestService(t, &mockAnalyzer{}, extractor)

	outcome, err := svc.ExtractFrames(context.Background(), "/videos/clip.mp4", ExtractOptions{Modes: []extract.Mode{extract.ModeTime}})
	require.NoError(t, err)

	assert.False(t, outcome.Reused)
	assert.Equal(t, "run-1", outcome.RunID)
	assert.Equal(t, 1, extractor.calls)
}

func collectUpdates(t *testing.T, session *BatchSession) []Update {
	t.Helper()
	var updates []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case update, ok := <-session.Updates:
			if !ok {
				return updates
			}
			updates = append(updates, update)
		case <-timeout:
			t.Fatal("timed out waiting for session updates")
		}
	}
}

func TestBatchAnalysisSequentialProgress(t *testing.T) {
	analyzer := &mockAnalyzer{}
	svc, outputDir := newTestService(t, analyzer, &mockExtractor{})

	frameDir := filepath.Join(outputDir, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))

	paths := []string{"a.png", "b.png", "c.png"}
	session, err := svc.StartBatchAnalysis(paths, frameDir)
	require.NoError(t, err)

	updates := collectUpdates(t, session)

	require.Len(t, updates, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "frame", updates[i].Type)
		assert.Equal(t, i+1, updates[i].Done)
		assert.Equal(t, 3, updates[i].Total)
		assert.Equal(t, paths[i], updates[i].Result.Path)
	}
	assert.Equal(t, "complete", updates[3].Type)
	assert.Equal(t, "complete", session.Status())

	// Batch export is written next to the frames.
	_, err = os.Stat(filepath.Join(frameDir, storage.ResultsFile))
	assert.NoError(t, err)
}

func TestBatchAnalysisIsolatesFailures(t *testing.T) {
	analyzer := &mockAnalyzer{failPath: "b.png"}
	svc, outputDir := newTestService(t, analyzer, &mockExtractor{})

	frameDir := filepath.Join(outputDir, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))

	session, err := svc.StartBatchAnalysis([]string{"a.png", "b.png", "c.png"}, frameDir)
	require.NoError(t, err)
	collectUpdates(t, session)

	results := session.Results()
	require.Len(t, results, 3, "one unit's failure must not halt siblings")
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
}

func TestNarrativeCacheAndTimelineMerge(t *testing.T) {
	analyzer := &mockAnalyzer{narrative: &ai.SceneAnalysis{
		Summary:    ai.SceneSummary{WhatHappened: "a scene"},
		Confidence: 0.9,
	}}
	svc, outputDir := newTestService(t, analyzer, &mockExtractor{})

	frameDir := filepath.Join(outputDir, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))

	paths := []string{"a.png", "b.png", "c.png"}

	first, reused, err := svc.AnalyzeNarrative(context.Background(), paths, frameDir)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, 1, analyzer.narrativeCalls)

	// Identical ordered list: served from cache, no new request.
	second, reused, err := svc.AnalyzeNarrative(context.Background(), paths, frameDir)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, 1, analyzer.narrativeCalls)
	assert.Equal(t, first.SceneID, second.SceneID)

	// Same set reordered: fresh request, but the identity collides and the
	// timeline entry is replaced in place rather than appended.
	reordered := []string{"c.png", "a.png", "b.png"}
	third, reused, err := svc.AnalyzeNarrative(context.Background(), reordered, frameDir)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, 2, analyzer.narrativeCalls)
	assert.Equal(t, first.SceneID, third.SceneID)

	scenes, err := svc.Timeline(frameDir)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
}

func TestRemoveScene(t *testing.T) {
	analyzer := &mockAnalyzer{narrative: &ai.SceneAnalysis{Confidence: 0.5}}
	svc, outputDir := newTestService(t, analyzer, &mockExtractor{})

	frameDir := filepath.Join(outputDir, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))

	result, _, err := svc.AnalyzeNarrative(context.Background(), []string{"a.png", "b.png"}, frameDir)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveScene(frameDir, result.SceneID))

	scenes, err := svc.Timeline(frameDir)
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

func TestStopSession(t *testing.T) {
	svc, outputDir := newTestService(t, &mockAnalyzer{}, &mockExtractor{})

	frameDir := filepath.Join(outputDir, "clip")
	require.NoError(t, os.MkdirAll(frameDir, 0755))

	session, err := svc.StartBatchAnalysis([]string{"a.png"}, frameDir)
	require.NoError(t, err)
	collectUpdates(t, session)

	assert.Error(t, svc.StopSession("missing"))
	assert.NoError(t, svc.StopSession(session.ID))
}
