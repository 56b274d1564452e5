package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/storylens/storylens/internal/ai"
)

// TimelineFile is the fixed filename of the persisted timeline document
// inside an extraction output directory.
const TimelineFile = "timeline.json"

// JSONTimelineStore persists a timeline as one flat JSON array of scene
// analyses. It implements the scene.Store port.
type JSONTimelineStore struct{}

func (JSONTimelineStore) Save(dir string, scenes []ai.SceneAnalysis) error {
	if scenes == nil {
		scenes = []ai.SceneAnalysis{}
	}
	data, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}

	path := filepath.Join(dir, TimelineFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing timeline: %w", err)
	}
	return nil
}

func (JSONTimelineStore) Load(dir string) ([]ai.SceneAnalysis, error) {
	path := filepath.Join(dir, TimelineFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading timeline: %w", err)
	}

	var scenes []ai.SceneAnalysis
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("decoding timeline: %w", err)
	}
	return scenes, nil
}
