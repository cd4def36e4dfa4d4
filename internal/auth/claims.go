package auth

import "sync"

// ClaimsCache remembers the verified claims of recent callers so degraded
// reads can still resolve a minimal user when neither the API nor the
// store answers.
type ClaimsCache struct {
	mu   sync.RWMutex
	seen map[string]string
}

func NewClaimsCache() *ClaimsCache {
	return &ClaimsCache{seen: make(map[string]string)}
}

func (c *ClaimsCache) Remember(userID, role string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	c.seen[userID] = role
	c.mu.Unlock()
}

// Minimal returns the skeleton user the cached claims can describe, or nil
// when the caller has never authenticated against this process.
func (c *ClaimsCache) Minimal(userID string) map[string]any {
	c.mu.RLock()
	role, ok := c.seen[userID]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return map[string]any{"id": userID, "role": role}
}
