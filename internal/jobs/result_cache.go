package jobs

import (
	"errors"
	"sync"
)

// ErrNoResult is returned by exports before any job has completed.
var ErrNoResult = errors.New("no meeting processed yet")

// ResultCache holds the most recently completed meeting result.
// Every completion overwrites it; when jobs overlap the last one to finish
// wins, regardless of submission order.
type ResultCache struct {
	mu     sync.RWMutex
	result *MeetingResult
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{}
}

// Set stores a copy of r, replacing whatever was there.
func (c *ResultCache) Set(r MeetingResult) {
	cp := r.Clone()
	c.mu.Lock()
	c.result = &cp
	c.mu.Unlock()
}

// Get returns a copy of the cached result, or false if nothing completed yet.
func (c *ResultCache) Get() (MeetingResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return MeetingResult{}, false
	}
	return c.result.Clone(), true
}

// HasResult reports whether any job has completed.
func (c *ResultCache) HasResult() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result != nil
}
