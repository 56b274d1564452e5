package video

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// VideoInfo holds container and stream metadata for a probed file.
// Immutable once returned; re-probe when a new file is selected.
type VideoInfo struct {
	Duration    float64 `json:"duration"`
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Codec       string  `json:"codec"`
	TotalFrames int     `json:"total_frames"`
	Bitrate     int     `json:"bitrate"` // kb/s
}

// ProbeError reports a failure to read video metadata.
type ProbeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe %s: %s", e.Path, e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }

type Prober struct {
	ffprobePath string
	logger      *slog.Logger
}

func NewProber(ffprobePath string, logger *slog.Logger) (*Prober, error) {
	resolved, err := exec.LookPath(ffprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	logger.Debug("found ffprobe", "path", resolved)
	return &Prober{ffprobePath: resolved, logger: logger}, nil
}

// Probe queries a video file for duration, frame rate, resolution, codec and
// bitrate. It has no side effects and may be called repeatedly.
func (p *Prober) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, &ProbeError{Path: path, Reason: "ffprobe failed", Err: err}
	}

	info, err := parseProbeOutput(path, output)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("probed video",
		"path", path,
		"duration", info.Duration,
		"fps", info.FPS,
		"codec", info.Codec,
	)
	return info, nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func parseProbeOutput(path string, data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ProbeError{Path: path, Reason: "malformed ffprobe output", Err: err}
	}

	info := &VideoInfo{}

	found := false
	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Codec = stream.CodecName
		info.Width = stream.Width
		info.Height = stream.Height
		info.FPS = parseFrameRate(stream.RFrameRate)
		found = true
		break
	}
	if !found {
		return nil, &ProbeError{Path: path, Reason: "no video stream"}
	}

	if out.Format.Duration != "" {
		duration, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, &ProbeError{Path: path, Reason: "malformed duration", Err: err}
		}
		info.Duration = duration
	}

	if out.Format.BitRate != "" {
		if bitrate, err := strconv.Atoi(out.Format.BitRate); err == nil {
			info.Bitrate = bitrate / 1000
		}
	}

	info.TotalFrames = int(math.Round(info.Duration * info.FPS))

	return info, nil
}

// parseFrameRate reduces a rational "num/den" field to a float.
// A missing denominator defaults to 1.
func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}

	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}

	den := 1.0
	if len(parts) == 2 && parts[1] != "" {
		den, err = strconv.ParseFloat(parts[1], 64)
		if err != nil || den == 0 {
			return 0
		}
	}

	return num / den
}
