package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/storylens/storylens/internal/ai"
)

// ResultsFile holds the flat JSON export of batch single-frame analyses.
const ResultsFile = "analysis_results.json"

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// FrameDir returns the per-video frame directory inside the base output
// directory, named after the video file without its extension.
func FrameDir(outputDir, videoPath string) string {
	name := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(outputDir, name)
}

// ListFrames returns the image files already present in a frame directory,
// sorted lexicographically. A missing directory yields an empty list.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing frame directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		frames = append(frames, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}

// HasFrames reports whether a prior extraction left frames in the directory,
// in which case extraction is skipped and the directory is reused.
func HasFrames(dir string) bool {
	frames, err := ListFrames(dir)
	return err == nil && len(frames) > 0
}

// SaveResults writes the batch analysis export next to the frames.
func SaveResults(dir string, results []ai.AnalysisResult) error {
	if results == nil {
		results = []ai.AnalysisResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	path := filepath.Join(dir, ResultsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}
