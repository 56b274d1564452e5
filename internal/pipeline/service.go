package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/extract"
	"github.com/storylens/storylens/internal/metrics"
	"github.com/storylens/storylens/internal/scene"
	"github.com/storylens/storylens/internal/storage"
	"github.com/storylens/storylens/internal/video"
)

// Prober reads video metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (*video.VideoInfo, error)
}

// FrameSource produces frame records for a video.
type FrameSource interface {
	Extract(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// Analyzer is the inference surface the pipeline drives.
type Analyzer interface {
	AnalyzeFrame(ctx context.Context, path string) ai.AnalysisResult
	CompareFrames(ctx context.Context, startPath, endPath string) ai.FrameComparisonResult
	AnalyzeFlow(ctx context.Context, paths []string, progress ai.ProgressFunc) (*ai.FlowResult, error)
	AnalyzeNarrative(ctx context.Context, paths []string) (*ai.SceneAnalysis, error)
}

// Service orchestrates probing, extraction, analysis, the narrative result
// cache and the persisted timeline. One logical workflow runs per
// user-initiated action; the service never parallelizes model calls.
type Service struct {
	prober     Prober
	extractor  FrameSource
	analyzer   Analyzer
	store      scene.Store
	cache      *scene.ResultCache
	outputDir  string
	logger     *slog.Logger
	sessions   map[string]*BatchSession
	sessionsMu sync.RWMutex
}

func NewService(prober Prober, extractor FrameSource, analyzer Analyzer, store scene.Store, outputDir string, logger *slog.Logger) *Service {
	return &Service{
		prober:    prober,
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
		cache:     &scene.ResultCache{},
		outputDir: outputDir,
		logger:    logger,
		sessions:  make(map[string]*BatchSession),
	}
}

func (s *Service) Probe(ctx context.Context, path string) (*video.VideoInfo, error) {
	return s.prober.Probe(ctx, path)
}

// ExtractOptions selects the extraction modes and their parameters for one
// run against a video.
type ExtractOptions struct {
	Modes          []extract.Mode
	SampleFPS      float64
	KeyframeRate   float64
	SceneThreshold float64
}

// ExtractionOutcome reports where the frames live and whether a prior
// extraction directory was reused instead of re-extracted.
type ExtractionOutcome struct {
	RunID    string                `json:"run_id,omitempty"`
	FrameDir string                `json:"frame_dir"`
	Records  []extract.FrameRecord `json:"records"`
	Reused   bool                  `json:"reused"`
}

// ExtractFrames runs extraction for a video, or reuses the existing frame
// directory when one is already populated.
func (s *Service) ExtractFrames(ctx context.Context, videoPath string, opts ExtractOptions) (*ExtractionOutcome, error) {
	frameDir := storage.FrameDir(s.outputDir, videoPath)

	if storage.HasFrames(frameDir) {
		frames, err := storage.ListFrames(frameDir)
		if err != nil {
			return nil, err
		}
		s.logger.Info("reusing existing frames", "dir", frameDir, "count", len(frames))
		return &ExtractionOutcome{
			FrameDir: frameDir,
			Records:  recordsFromExisting(frames),
			Reused:   true,
		}, nil
	}

	start := time.Now()
	result, err := s.extractor.Extract(ctx, extract.Request{
		VideoPath:      videoPath,
		OutputDir:      frameDir,
		Modes:          opts.Modes,
		SampleFPS:      opts.SampleFPS,
		KeyframeRate:   opts.KeyframeRate,
		SceneThreshold: opts.SceneThreshold,
	})
	if err != nil {
		return nil, err
	}
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	for _, rec := range result.Records {
		metrics.FramesExtractedTotal.WithLabelValues(string(rec.Mode)).Inc()
	}

	return &ExtractionOutcome{
		RunID:    result.RunID,
		FrameDir: frameDir,
		Records:  result.Records,
		Reused:   false,
	}, nil
}

// recordsFromExisting rebuilds frame records from a reused directory
// listing. Timing metadata is not recoverable from filenames alone, so
// records carry mode and ordinal only.
func recordsFromExisting(frames []string) []extract.FrameRecord {
	records := make([]extract.FrameRecord, 0, len(frames))
	for i, path := range frames {
		records = append(records, extract.FrameRecord{
			Path:    path,
			Mode:    modeFromFilename(path),
			Ordinal: i + 1,
		})
	}
	return records
}

func modeFromFilename(path string) extract.Mode {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "key_"):
		return extract.ModeKeyframe
	case strings.HasPrefix(base, "scene_"):
		return extract.ModeScene
	default:
		return extract.ModeTime
	}
}

func (s *Service) AnalyzeFrame(ctx context.Context, path string) ai.AnalysisResult {
	result := s.analyzer.AnalyzeFrame(ctx, path)
	metrics.RecordAnalysis("frame", result.Success)
	return result
}

func (s *Service) CompareFrames(ctx context.Context, startPath, endPath string) ai.FrameComparisonResult {
	result := s.analyzer.CompareFrames(ctx, startPath, endPath)
	metrics.RecordAnalysis("compare", result.Success)
	return result
}

func (s *Service) AnalyzeFlow(ctx context.Context, paths []string, progress ai.ProgressFunc) (*ai.FlowResult, error) {
	start := time.Now()
	flow, err := s.analyzer.AnalyzeFlow(ctx, paths, progress)
	if err != nil {
		metrics.RecordAnalysis("flow", false)
		return flow, err
	}
	metrics.RecordAnalysis("flow", flow.Success)
	metrics.RequestDuration.WithLabelValues("flow").Observe(time.Since(start).Seconds())
	return flow, nil
}

// AnalyzeNarrative returns the cached result without a network call when the
// candidate frame list matches the cached list exactly; otherwise it issues
// a fresh request and merges the result into the directory's timeline.
func (s *Service) AnalyzeNarrative(ctx context.Context, paths []string, frameDir string) (*ai.SceneAnalysis, bool, error) {
	if cached, ok := s.cache.Get(paths); ok {
		s.logger.Info("narrative cache hit", "scene_id", cached.SceneID)
		return cached, true, nil
	}

	result, err := s.analyzer.AnalyzeNarrative(ctx, paths)
	if err != nil {
		metrics.RecordAnalysis("narrative", false)
		return nil, false, err
	}
	metrics.RecordAnalysis("narrative", true)

	s.cache.Put(paths, result)

	timeline, err := scene.LoadTimeline(frameDir, s.store)
	if err != nil {
		return nil, false, err
	}
	if err := timeline.Merge(*result); err != nil {
		return nil, false, err
	}

	s.logger.Info("narrative analysis merged", "scene_id", result.SceneID, "frames", len(paths))
	return result, false, nil
}

// Timeline returns the persisted ordered timeline for a frame directory.
func (s *Service) Timeline(frameDir string) ([]ai.SceneAnalysis, error) {
	timeline, err := scene.LoadTimeline(frameDir, s.store)
	if err != nil {
		return nil, err
	}
	return timeline.Scenes(), nil
}

// RemoveScene deletes a scene from a directory's timeline and persists the
// shrunken document.
func (s *Service) RemoveScene(frameDir, sceneID string) error {
	timeline, err := scene.LoadTimeline(frameDir, s.store)
	if err != nil {
		return err
	}
	return timeline.Remove(sceneID)
}

// Update is one progress notification from a batch analysis session.
type Update struct {
	Type   string             `json:"type"` // frame, complete, cancelled
	Done   int                `json:"done"`
	Total  int                `json:"total"`
	Result *ai.AnalysisResult `json:"result,omitempty"`
}

// BatchSession tracks one sequential batch of single-frame analyses.
type BatchSession struct {
	ID         string
	FrameDir   string
	StartedAt  time.Time
	Updates    chan Update
	CancelFunc context.CancelFunc

	mu      sync.Mutex
	status  string
	results []ai.AnalysisResult
}

func (b *BatchSession) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *BatchSession) setStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

func (b *BatchSession) Results() []ai.AnalysisResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ai.AnalysisResult(nil), b.results...)
}

func (b *BatchSession) addResult(result ai.AnalysisResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, result)
}

// StartBatchAnalysis analyzes frames one by one in a background workflow.
// Units run sequentially so the running count is well defined; one frame's
// failure is recorded against that frame and does not halt its siblings.
func (s *Service) StartBatchAnalysis(framePaths []string, frameDir string) (*BatchSession, error) {
	if len(framePaths) == 0 {
		return nil, fmt.Errorf("no frames to analyze")
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &BatchSession{
		ID:         uuid.New().String(),
		FrameDir:   frameDir,
		StartedAt:  time.Now(),
		Updates:    make(chan Update, len(framePaths)+1),
		CancelFunc: cancel,
		status:     "running",
	}

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	go s.runBatch(ctx, session, framePaths)

	return session, nil
}

func (s *Service) runBatch(ctx context.Context, session *BatchSession, framePaths []string) {
	defer close(session.Updates)

	total := len(framePaths)
	s.logger.Info("batch analysis started", "session", session.ID, "frames", total)

	for i, path := range framePaths {
		select {
		case <-ctx.Done():
			session.setStatus("cancelled")
			session.Updates <- Update{Type: "cancelled", Done: i, Total: total}
			s.logger.Info("batch analysis cancelled", "session", session.ID, "done", i)
			return
		default:
		}

		result := s.AnalyzeFrame(ctx, path)
		if !result.Success {
			s.logger.Warn("frame analysis failed", "session", session.ID, "path", path, "error", result.Error)
		}
		session.addResult(result)
		session.Updates <- Update{Type: "frame", Done: i + 1, Total: total, Result: &result}
	}

	if err := storage.SaveResults(session.FrameDir, session.Results()); err != nil {
		s.logger.Error("saving batch results", "session", session.ID, "error", err)
	}

	session.setStatus("complete")
	session.Updates <- Update{Type: "complete", Done: total, Total: total}
	s.logger.Info("batch analysis complete", "session", session.ID, "frames", total)
}

func (s *Service) Session(id string) (*BatchSession, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// StopSession cancels a running batch; the current unit finishes, further
// units are not started.
func (s *Service) StopSession(id string) error {
	s.sessionsMu.RLock()
	session, ok := s.sessions[id]
	s.sessionsMu.RUnlock()

	if !ok {
		return fmt.Errorf("session not found")
	}
	session.CancelFunc()
	return nil
}
