package syncagent

import (
	"sync"

	"github.com/mrsawy/task-management/internal/domain"
)

// TaskCache is the client-local copy of the user's task list. Events never
// patch it directly; they invalidate it and the agent refetches, so the
// cache converges even when an event payload is stale or incomplete.
type TaskCache struct {
	mu            sync.RWMutex
	tasks         []*domain.Task
	valid         bool
	invalidations uint64
}

// NewTaskCache creates an empty, invalid cache.
func NewTaskCache() *TaskCache {
	return &TaskCache{}
}

// Invalidate marks the cached list stale.
func (c *TaskCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.invalidations++
}

// Replace installs a freshly fetched list and marks the cache valid.
func (c *TaskCache) Replace(tasks []*domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = tasks
	c.valid = true
}

// Tasks returns the cached list and whether it is current.
func (c *TaskCache) Tasks() ([]*domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tasks, c.valid
}

// Invalidations returns how many times the cache has been invalidated.
func (c *TaskCache) Invalidations() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invalidations
}
