package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Mode selects a frame extraction strategy. Modes are combinable in a
// single run; the combined output is globally sorted (see sortRecords).
type Mode string

const (
	ModeTime     Mode = "time"
	ModeKeyframe Mode = "keyframe"
	ModeScene    Mode = "scene"
)

// ErrToolUnavailable indicates the ffmpeg binary is missing or unspawnable.
var ErrToolUnavailable = errors.New("ffmpeg unavailable")

// ExtractionError reports a non-zero ffmpeg exit.
type ExtractionError struct {
	Mode     Mode
	ExitCode int
	Stderr   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed (exit %d): %s", e.Mode, e.ExitCode, e.Stderr)
}

// FrameRecord describes one extracted frame on disk.
type FrameRecord struct {
	Path    string   `json:"path"`
	Mode    Mode     `json:"type"`
	Ordinal int      `json:"ordinal"`
	Time    *float64 `json:"time,omitempty"`
	PTS     *int64   `json:"pts,omitempty"`
}

type Request struct {
	VideoPath      string
	OutputDir      string
	Modes          []Mode
	SampleFPS      float64 // time mode, frames per second
	KeyframeRate   float64 // keyframe mode, sampling rate for key pictures
	SceneThreshold float64 // scene mode, per-frame difference threshold
}

type Result struct {
	RunID   string        `json:"run_id"`
	Records []FrameRecord `json:"records"`
}

type Extractor struct {
	ffmpegPath string
	logger     *slog.Logger
}

func NewExtractor(ffmpegPath string, logger *slog.Logger) (*Extractor, error) {
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	logger.Debug("found ffmpeg", "path", resolved)
	return &Extractor{ffmpegPath: resolved, logger: logger}, nil
}

// Extract runs every requested mode against the video and returns the
// combined, ordered frame records. An empty result set is a valid outcome,
// not an error.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Result, error) {
	if len(req.Modes) == 0 {
		return nil, fmt.Errorf("no extraction modes requested")
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	if req.SampleFPS <= 0 {
		req.SampleFPS = 1
	}
	if req.KeyframeRate <= 0 {
		req.KeyframeRate = 1
	}
	if req.SceneThreshold <= 0 {
		req.SceneThreshold = 0.4
	}

	var records []FrameRecord
	for _, mode := range req.Modes {
		var (
			modeRecords []FrameRecord
			err         error
		)
		switch mode {
		case ModeTime:
			modeRecords, err = e.extractTime(ctx, req)
		case ModeKeyframe:
			modeRecords, err = e.extractKeyframes(ctx, req)
		case ModeScene:
			modeRecords, err = e.extractScenes(ctx, req)
		default:
			err = fmt.Errorf("unknown extraction mode %q", mode)
		}
		if err != nil {
			return nil, err
		}
		e.logger.Info("mode complete", "mode", mode, "frames", len(modeRecords))
		records = append(records, modeRecords...)
	}

	if len(req.Modes) > 1 {
		sortRecords(records)
	}

	return &Result{RunID: uuid.New().String(), Records: records}, nil
}

// extractTime writes one frame every 1/fps seconds. Output order matches
// time order by construction, so no correlation step is needed.
func (e *Extractor) extractTime(ctx context.Context, req Request) ([]FrameRecord, error) {
	pattern := filepath.Join(req.OutputDir, "time_%05d.png")
	args := []string{
		"-i", req.VideoPath,
		"-vf", fmt.Sprintf("fps=%g", req.SampleFPS),
		"-an",
		"-f", "image2",
		"-y",
		pattern,
	}

	if _, err := e.run(ctx, ModeTime, args); err != nil {
		return nil, err
	}

	files, err := listFrameFiles(req.OutputDir, "time_")
	if err != nil {
		return nil, err
	}
	return timeRecords(files, req.SampleFPS), nil
}

// extractKeyframes forwards only encoder-marked key pictures. Key-picture
// spacing is encoder-dependent, so records carry no time value.
func (e *Extractor) extractKeyframes(ctx context.Context, req Request) ([]FrameRecord, error) {
	pattern := filepath.Join(req.OutputDir, "key_%05d.png")
	args := []string{
		"-skip_frame", "nokey",
		"-i", req.VideoPath,
		"-vf", fmt.Sprintf("fps=%g", req.KeyframeRate),
		"-an",
		"-fps_mode", "vfr",
		"-f", "image2",
		"-y",
		pattern,
	}

	if _, err := e.run(ctx, ModeKeyframe, args); err != nil {
		return nil, err
	}

	files, err := listFrameFiles(req.OutputDir, "key_")
	if err != nil {
		return nil, err
	}
	return keyframeRecords(files), nil
}

// extractScenes selects frames whose difference score exceeds the threshold,
// running in variable-frame-rate mode so only selected frames are written.
// Per-frame timing arrives as showinfo lines on the log stream and is
// correlated positionally with the sorted output files.
func (e *Extractor) extractScenes(ctx context.Context, req Request) ([]FrameRecord, error) {
	pattern := filepath.Join(req.OutputDir, "scene_%05d.png")
	args := []string{
		"-i", req.VideoPath,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", req.SceneThreshold),
		"-an",
		"-fps_mode", "vfr",
		"-f", "image2",
		"-y",
		pattern,
	}

	diagnostics, err := e.run(ctx, ModeScene, args)
	if err != nil {
		return nil, err
	}

	metas, err := parseDiagnostics(strings.NewReader(diagnostics))
	if err != nil {
		return nil, fmt.Errorf("parsing scene diagnostics: %w", err)
	}

	files, err := listFrameFiles(req.OutputDir, "scene_")
	if err != nil {
		return nil, err
	}

	return sceneRecords(metas, files)
}

// run executes ffmpeg and returns its log stream on success.
func (e *Extractor) run(ctx context.Context, mode Mode, args []string) (string, error) {
	e.logger.Debug("running ffmpeg", "mode", mode, "args", args)

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExtractionError{
				Mode:     mode,
				ExitCode: exitErr.ExitCode(),
				Stderr:   logTail(stderr.String()),
			}
		}
		return "", fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	return stderr.String(), nil
}

func listFrameFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing output directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func timeRecords(files []string, fps float64) []FrameRecord {
	records := make([]FrameRecord, 0, len(files))
	for i, path := range files {
		t := float64(i+1) / fps
		records = append(records, FrameRecord{
			Path:    path,
			Mode:    ModeTime,
			Ordinal: i + 1,
			Time:    &t,
		})
	}
	return records
}

func keyframeRecords(files []string) []FrameRecord {
	records := make([]FrameRecord, 0, len(files))
	for i, path := range files {
		records = append(records, FrameRecord{
			Path:    path,
			Mode:    ModeKeyframe,
			Ordinal: i + 1,
		})
	}
	return records
}

// sortRecords orders a mixed-mode list by time ascending. Records lacking a
// time compare lexicographically by path, so mixed ordering is a best-effort
// approximation rather than a strict temporal guarantee.
func sortRecords(records []FrameRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Time != nil && b.Time != nil {
			return *a.Time < *b.Time
		}
		return a.Path < b.Path
	})
}

func logTail(s string) string {
	const maxTail = 2048
	s = strings.TrimSpace(s)
	if len(s) <= maxTail {
		return s
	}
	return "..." + s[len(s)-maxTail:]
}
