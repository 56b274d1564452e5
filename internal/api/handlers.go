package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storylens/storylens/internal/ai"
	"github.com/storylens/storylens/internal/extract"
	"github.com/storylens/storylens/internal/pipeline"
	"github.com/storylens/storylens/internal/video"
)

// Service is the pipeline surface the handlers drive.
type Service interface {
	Probe(ctx context.Context, path string) (*video.VideoInfo, error)
	ExtractFrames(ctx context.Context, videoPath string, opts pipeline.ExtractOptions) (*pipeline.ExtractionOutcome, error)
	AnalyzeFrame(ctx context.Context, path string) ai.AnalysisResult
	CompareFrames(ctx context.Context, startPath, endPath string) ai.FrameComparisonResult
	AnalyzeFlow(ctx context.Context, paths []string, progress ai.ProgressFunc) (*ai.FlowResult, error)
	AnalyzeNarrative(ctx context.Context, paths []string, frameDir string) (*ai.SceneAnalysis, bool, error)
	StartBatchAnalysis(framePaths []string, frameDir string) (*pipeline.BatchSession, error)
	Session(id string) (*pipeline.BatchSession, bool)
	StopSession(id string) error
	Timeline(frameDir string) ([]ai.SceneAnalysis, error)
	RemoveScene(frameDir, sceneID string) error
}

type App struct {
	Service Service
	Logger  *slog.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) ProbeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	info, err := app.Service.Probe(r.Context(), req.Path)
	if err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "info": info})
}

func (app *App) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path           string   `json:"path"`
		Modes          []string `json:"modes"`
		SampleFPS      float64  `json:"sample_fps"`
		KeyframeRate   float64  `json:"keyframe_rate"`
		SceneThreshold float64  `json:"scene_threshold"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	modes := make([]extract.Mode, 0, len(req.Modes))
	for _, m := range req.Modes {
		modes = append(modes, extract.Mode(m))
	}

	outcome, err := app.Service.ExtractFrames(r.Context(), req.Path, pipeline.ExtractOptions{
		Modes:          modes,
		SampleFPS:      req.SampleFPS,
		KeyframeRate:   req.KeyframeRate,
		SceneThreshold: req.SceneThreshold,
	})
	if err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "extraction": outcome})
}

func (app *App) AnalyzeFrameHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, app.Service.AnalyzeFrame(r.Context(), req.Path))
}

func (app *App) CompareHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartPath string `json:"start_path"`
		EndPath   string `json:"end_path"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, app.Service.CompareFrames(r.Context(), req.StartPath, req.EndPath))
}

func (app *App) FlowHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths []string `json:"paths"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	flow, err := app.Service.AnalyzeFlow(r.Context(), req.Paths, nil)
	if err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, flow)
}

func (app *App) NarrativeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths    []string `json:"paths"`
		FrameDir string   `json:"frame_dir"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	result, reused, err := app.Service.AnalyzeNarrative(r.Context(), req.Paths, req.FrameDir)
	if err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "reused": reused, "scene": result})
}

func (app *App) StartBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths    []string `json:"paths"`
		FrameDir string   `json:"frame_dir"`
	}
	if !app.decode(w, r, &req) {
		return
	}

	session, err := app.Service.StartBatchAnalysis(req.Paths, req.FrameDir)
	if err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{"success": true, "session_id": session.ID})
}

func (app *App) SessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := app.Service.Session(chi.URLParam(r, "sessionID"))
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "session not found"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  session.Status(),
		"results": session.Results(),
	})
}

func (app *App) StopSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Service.StopSession(chi.URLParam(r, "sessionID")); err != nil {
		respondJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (app *App) TimelineHandler(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "dir query parameter required"})
		return
	}

	scenes, err := app.Service.Timeline(dir)
	if err != nil {
		app.respondError(w, err)
		return
	}
	if scenes == nil {
		scenes = []ai.SceneAnalysis{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "scenes": scenes})
}

func (app *App) RemoveSceneHandler(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "dir query parameter required"})
		return
	}

	if err := app.Service.RemoveScene(dir, chi.URLParam(r, "sceneID")); err != nil {
		app.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (app *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return false
	}
	return true
}

// respondError converts the error taxonomy into a uniform failure envelope;
// callers always receive a typed outcome, never an unhandled fault.
func (app *App) respondError(w http.ResponseWriter, err error) {
	app.Logger.Error("request failed", "error", err)
	respondJSON(w, statusFor(err), map[string]any{"success": false, "error": err.Error()})
}

func statusFor(err error) int {
	var probeErr *video.ProbeError
	var extractionErr *extract.ExtractionError
	var schemaErr *ai.SchemaError

	switch {
	case errors.Is(err, ai.ErrInsufficientFrames):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrToolUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrEndpoint):
		return http.StatusBadGateway
	case errors.As(err, &schemaErr):
		return http.StatusBadGateway
	case errors.As(err, &probeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extractionErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
