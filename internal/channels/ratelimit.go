package channels

import (
	"sync"
	"time"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
	// memory exhaustion from attackers rotating source IPs.
	maxTrackedKeys = 4096

	rateLimitWindow  = 60 * time.Second
	rateLimitMaxHits = 30
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// WebhookRateLimiter bounds per-key request rates for the public webhook
// endpoints. Safe for concurrent use.
type WebhookRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

func NewWebhookRateLimiter() *WebhookRateLimiter {
	return &WebhookRateLimiter{entries: make(map[string]*rateLimitEntry)}
}

// Allow returns true if the key is within rate limits. Stale entries are
// pruned when the tracked-key cap is reached.
func (r *WebhookRateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= rateLimitWindow {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= rateLimitWindow {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= rateLimitMaxHits
}
