package scene

import (
	"strings"
	"sync"

	"github.com/storylens/storylens/internal/ai"
)

// ResultCache holds the last computed narrative result, keyed on the exact
// ordered frame-path list. Reordering the same set misses the cache and
// triggers a fresh request, even though the scene identity used for the
// timeline merge afterwards collides.
type ResultCache struct {
	mu     sync.Mutex
	key    string
	result *ai.SceneAnalysis
}

func cacheKey(paths []string) string {
	return strings.Join(paths, "\x00")
}

// Get returns the cached result when the candidate list matches the cached
// list exactly, same paths in the same order.
func (c *ResultCache) Get(paths []string) (*ai.SceneAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil || c.key != cacheKey(paths) {
		return nil, false
	}
	return c.result, true
}

// Put replaces the cached result; only one result is retained.
func (c *ResultCache) Put(paths []string, result *ai.SceneAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = cacheKey(paths)
	c.result = result
}

func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = ""
	c.result = nil
}
