package scene

import (
	"fmt"
	"sync"

	"github.com/storylens/storylens/internal/ai"
)

// Store is the persistence port for timelines, so the merge logic is
// testable without a filesystem.
type Store interface {
	Save(dir string, scenes []ai.SceneAnalysis) error
	Load(dir string) ([]ai.SceneAnalysis, error)
}

// Timeline is an ordered sequence of scene analyses persisted alongside an
// extraction output directory. It is persisted after every mutation and
// reloaded when an existing directory is reused.
type Timeline struct {
	mu     sync.Mutex
	dir    string
	store  Store
	scenes []ai.SceneAnalysis
}

func LoadTimeline(dir string, store Store) (*Timeline, error) {
	scenes, err := store.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading timeline: %w", err)
	}
	return &Timeline{dir: dir, store: store, scenes: scenes}, nil
}

// Merge inserts a scene analysis by identity: an entry with the same
// scene_id is replaced in place, preserving its position; otherwise the
// scene is appended.
func (t *Timeline) Merge(scene ai.SceneAnalysis) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	replaced := false
	for i := range t.scenes {
		if t.scenes[i].SceneID == scene.SceneID {
			t.scenes[i] = scene
			replaced = true
			break
		}
	}
	if !replaced {
		t.scenes = append(t.scenes, scene)
	}

	return t.persist()
}

// Remove deletes the scene with the given id; removing an unknown id is
// not an error.
func (t *Timeline) Remove(sceneID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.scenes {
		if t.scenes[i].SceneID == sceneID {
			t.scenes = append(t.scenes[:i], t.scenes[i+1:]...)
			return t.persist()
		}
	}
	return nil
}

// Scenes returns a copy of the ordered timeline.
func (t *Timeline) Scenes() []ai.SceneAnalysis {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]ai.SceneAnalysis(nil), t.scenes...)
}

func (t *Timeline) persist() error {
	if err := t.store.Save(t.dir, t.scenes); err != nil {
		return fmt.Errorf("persisting timeline: %w", err)
	}
	return nil
}
