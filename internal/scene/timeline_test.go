package scene

import (
	"testing"

	"github.com/storylens/storylens/internal/ai"
)

type memoryStore struct {
	saved     map[string][]ai.SceneAnalysis
	saveCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string][]ai.SceneAnalysis)}
}

func (m *memoryStore) Save(dir string, scenes []ai.SceneAnalysis) error {
	m.saved[dir] = append([]ai.SceneAnalysis(nil), scenes...)
	m.saveCalls++
	return nil
}

func (m *memoryStore) Load(dir string) ([]ai.SceneAnalysis, error) {
	return m.saved[dir], nil
}

func sceneWith(id, summary string) ai.SceneAnalysis {
	return ai.SceneAnalysis{
		SceneID: id,
		Summary: ai.SceneSummary{WhatHappened: summary},
	}
}

func TestTimelineMergeAppends(t *testing.T) {
	store := newMemoryStore()
	timeline, err := LoadTimeline("/out", store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := timeline.Merge(sceneWith("scene_aaa", "first")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if err := timeline.Merge(sceneWith("scene_bbb", "second")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	scenes := timeline.Scenes()
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	if scenes[0].SceneID != "scene_aaa" || scenes[1].SceneID != "scene_bbb" {
		t.Errorf("unexpected order: %s, %s", scenes[0].SceneID, scenes[1].SceneID)
	}
	if store.saveCalls != 2 {
		t.Errorf("expected persistence after every mutation, got %d saves", store.saveCalls)
	}
}

func TestTimelineMergeReplacesInPlace(t *testing.T) {
	store := newMemoryStore()
	timeline, _ := LoadTimeline("/out", store)

	timeline.Merge(sceneWith("scene_aaa", "first"))
	timeline.Merge(sceneWith("scene_bbb", "second"))
	timeline.Merge(sceneWith("scene_ccc", "third"))

	if err := timeline.Merge(sceneWith("scene_bbb", "second, revised")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	scenes := timeline.Scenes()
	if len(scenes) != 3 {
		t.Fatalf("re-merge must not change timeline length, got %d", len(scenes))
	}
	if scenes[0].SceneID != "scene_aaa" || scenes[2].SceneID != "scene_ccc" {
		t.Error("re-merge must not move other entries")
	}
	if scenes[1].Summary.WhatHappened != "second, revised" {
		t.Errorf("expected replaced content, got %q", scenes[1].Summary.WhatHappened)
	}
}

func TestTimelineRemove(t *testing.T) {
	store := newMemoryStore()
	timeline, _ := LoadTimeline("/out", store)

	timeline.Merge(sceneWith("scene_aaa", "first"))
	timeline.Merge(sceneWith("scene_bbb", "second"))

	if err := timeline.Remove("scene_aaa"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	scenes := timeline.Scenes()
	if len(scenes) != 1 || scenes[0].SceneID != "scene_bbb" {
		t.Errorf("unexpected timeline after removal: %+v", scenes)
	}

	if err := timeline.Remove("scene_unknown"); err != nil {
		t.Errorf("removing an unknown id must not fail: %v", err)
	}
}

func TestTimelineReload(t *testing.T) {
	store := newMemoryStore()
	timeline, _ := LoadTimeline("/out", store)
	timeline.Merge(sceneWith("scene_aaa", "persisted"))

	reloaded, err := LoadTimeline("/out", store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scenes := reloaded.Scenes()
	if len(scenes) != 1 || scenes[0].Summary.WhatHappened != "persisted" {
		t.Errorf("expected reloaded timeline, got %+v", scenes)
	}
}

func TestResultCacheExactOrder(t *testing.T) {
	cache := &ResultCache{}
	paths := []string{"a.png", "b.png", "c.png"}
	result := sceneWith("scene_aaa", "cached")

	cache.Put(paths, &result)

	if got, ok := cache.Get([]string{"a.png", "b.png", "c.png"}); !ok || got.SceneID != "scene_aaa" {
		t.Error("expected cache hit for identical ordered list")
	}

	// Same set, different order: identity collides but the cache demands
	// exact order equality, so this is a miss.
	if _, ok := cache.Get([]string{"c.png", "a.png", "b.png"}); ok {
		t.Error("expected cache miss for reordered list")
	}

	if _, ok := cache.Get([]string{"a.png", "b.png"}); ok {
		t.Error("expected cache miss for different set")
	}

	cache.Clear()
	if _, ok := cache.Get(paths); ok {
		t.Error("expected cache miss after clear")
	}
}
