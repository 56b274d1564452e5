package video

import (
	"errors"
	"testing"
)

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"}
		],
		"format": {"duration": "10.5", "bit_rate": "4500000"}
	}`)

	info, err := parseProbeOutput("test.mp4", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Codec != "h264" {
		t.Errorf("expected codec h264, got %s", info.Codec)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", info.Width, info.Height)
	}
	if info.Duration != 10.5 {
		t.Errorf("expected duration 10.5, got %f", info.Duration)
	}
	if info.Bitrate != 4500 {
		t.Errorf("expected bitrate 4500 kb/s, got %d", info.Bitrate)
	}

	// 10.5 * 29.97 = 314.68 -> 315
	if info.TotalFrames != 315 {
		t.Errorf("expected 315 total frames, got %d", info.TotalFrames)
	}
}

func TestParseProbeOutputNoVideoStream(t *testing.T) {
	data := []byte(`{
		"streams": [{"codec_type": "audio", "codec_name": "mp3"}],
		"format": {"duration": "180.0"}
	}`)

	_, err := parseProbeOutput("audio.mp3", data)
	if err == nil {
		t.Fatal("expected error for file without video stream")
	}

	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %T", err)
	}
}

func TestParseProbeOutputMalformed(t *testing.T) {
	_, err := parseProbeOutput("bad.mp4", []byte("not json at all"))
	if err == nil {
		t.Fatal("expected error for malformed output")
	}

	var probeErr *ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %T", err)
	}
}

func TestParseProbeOutputMissingBitrate(t *testing.T) {
	data := []byte(`{
		"streams": [{"codec_type": "video", "codec_name": "vp9", "width": 640, "height": 480, "r_frame_rate": "25/1"}],
		"format": {"duration": "4.0"}
	}`)

	info, err := parseProbeOutput("test.webm", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Bitrate != 0 {
		t.Errorf("expected bitrate 0 when absent, got %d", info.Bitrate)
	}
	if info.TotalFrames != 100 {
		t.Errorf("expected 100 total frames, got %d", info.TotalFrames)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		expected float64
	}{
		{"integer rate", "25/1", 25},
		{"ntsc rate", "30000/1001", 29.97002997002997},
		{"missing denominator", "24", 24},
		{"empty denominator", "24/", 0},
		{"zero denominator", "30/0", 0},
		{"empty", "", 0},
		{"garbage", "abc/def", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFrameRate(tt.rate)
			if got != tt.expected {
				t.Errorf("parseFrameRate(%q) = %f, expected %f", tt.rate, got, tt.expected)
			}
		})
	}
}
