package extract

import (
	"strings"
	"testing"
)

const sampleDiagnostics = `ffmpeg version 6.1 Copyright (c) 2000-2023 the FFmpeg developers
Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':
  Duration: 00:00:12.00, start: 0.000000, bitrate: 4500 kb/s
Stream mapping:
  Stream #0:0 -> #0:0 (h264 (native) -> png (native))
[Parsed_showinfo_1 @ 0x55e4a1b2c3d0] n:   0 pts:  15360 pts_time:0.6     duration:512
[Parsed_showinfo_1 @ 0x55e4a1b2c3d0] config in time_base: 1/25600
[Parsed_showinfo_1 @ 0x55e4a1b2c3d0] n:   1 pts:  76800 pts_time:3      duration:512
frame=    2 fps=0.0 q=-0.0 size=N/A time=00:00:03.00 bitrate=N/A speed=  21x
[Parsed_showinfo_1 @ 0x55e4a1b2c3d0] n:   2 pts: 204800 pts_time:8.125  duration:512
video:1234kB audio:0kB subtitle:0kB other streams:0kB global headers:0kB
`

func TestParseDiagnostics(t *testing.T) {
	metas, err := parseDiagnostics(strings.NewReader(sampleDiagnostics))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(metas) != 3 {
		t.Fatalf("expected 3 metadata records, got %d", len(metas))
	}

	expected := []frameMeta{
		{N: 0, PTS: 15360, PTSTime: 0.6},
		{N: 1, PTS: 76800, PTSTime: 3},
		{N: 2, PTS: 204800, PTSTime: 8.125},
	}
	for i, want := range expected {
		if metas[i] != want {
			t.Errorf("record %d: expected %+v, got %+v", i, want, metas[i])
		}
	}
}

func TestParseDiagnosticsNoMatches(t *testing.T) {
	metas, err := parseDiagnostics(strings.NewReader("only noise\nno frames here\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("expected no records, got %d", len(metas))
	}
}

func TestSceneRecords(t *testing.T) {
	metas := []frameMeta{
		{N: 0, PTS: 15360, PTSTime: 0.6},
		{N: 1, PTS: 76800, PTSTime: 3},
	}
	files := []string{"/out/scene_00001.png", "/out/scene_00002.png"}

	records, err := sceneRecords(metas, files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	for i, rec := range records {
		if rec.Path != files[i] {
			t.Errorf("record %d: expected path %s, got %s", i, files[i], rec.Path)
		}
		if rec.Ordinal != i+1 {
			t.Errorf("record %d: expected ordinal %d, got %d", i, i+1, rec.Ordinal)
		}
		if rec.Mode != ModeScene {
			t.Errorf("record %d: expected mode scene, got %s", i, rec.Mode)
		}
		if rec.Time == nil || *rec.Time != metas[i].PTSTime {
			t.Errorf("record %d: time not taken from diagnostic line", i)
		}
		if rec.PTS == nil || *rec.PTS != metas[i].PTS {
			t.Errorf("record %d: pts not taken from diagnostic line", i)
		}
	}
}

func TestSceneRecordsLengthMismatch(t *testing.T) {
	metas := []frameMeta{{N: 0, PTS: 100, PTSTime: 0.5}}
	files := []string{"/out/scene_00001.png", "/out/scene_00002.png"}

	if _, err := sceneRecords(metas, files); err == nil {
		t.Fatal("expected loud failure on length mismatch, got nil")
	}
}
