package sessioncache

import (
	"sync"

	"pharma.fit/pharmascout/internal/pipeline"
)

// DefaultCapacity bounds the number of retained sessions.
const DefaultCapacity = 10

// Cache is a process-local, insertion-ordered store of recent pipeline
// results keyed by session id. Past capacity the oldest session is evicted
// first. This is the only state that outlives a run; there is no persistence
// behind it.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	sessions map[string]pipeline.Result
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		sessions: make(map[string]pipeline.Result, capacity),
	}
}

// Put stores the result under the session id, evicting the oldest session
// when the cache is full. Re-putting an existing id refreshes its position.
func (c *Cache) Put(sessionID string, result pipeline.Result) {
	if c == nil || sessionID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sessions[sessionID]; exists {
		c.removeFromOrder(sessionID)
	} else if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.sessions, oldest)
	}

	c.order = append(c.order, sessionID)
	c.sessions[sessionID] = result
}

// Get returns the cached result for the session id, if still retained.
func (c *Cache) Get(sessionID string) (pipeline.Result, bool) {
	if c == nil {
		return pipeline.Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.sessions[sessionID]
	return result, ok
}

// Len reports the number of retained sessions.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Cache) removeFromOrder(sessionID string) {
	for i, id := range c.order {
		if id == sessionID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
