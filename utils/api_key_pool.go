package utils

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrNoKeys is returned when every key is cooling down or the pool is empty
var ErrNoKeys = errors.New("no available API keys")

// APIKeyPool spreads requests over several API keys and rests keys that failed
type APIKeyPool struct {
	keys        []string
	usageCounts map[string]int
	failures    map[string]int
	coolingDown map[string]time.Time
	cooldown    time.Duration
	now         func() time.Time
	mu          sync.Mutex
}

// NewAPIKeyPool creates a pool; an empty key list yields nil so callers can fail fast
func NewAPIKeyPool(keys []string, cooldown time.Duration) *APIKeyPool {
	if len(keys) == 0 {
		return nil
	}

	return &APIKeyPool{
		keys:        append([]string(nil), keys...),
		usageCounts: make(map[string]int),
		failures:    make(map[string]int),
		coolingDown: make(map[string]time.Time),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Size returns the number of keys in the pool
func (p *APIKeyPool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Acquire returns the least used available key, picking randomly among ties
func (p *APIKeyPool) Acquire() (string, error) {
	if p == nil {
		return "", ErrNoKeys
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	available := p.availableKeys()
	if len(available) == 0 {
		return "", ErrNoKeys
	}

	minUsage := -1
	for _, key := range available {
		if count := p.usageCounts[key]; minUsage == -1 || count < minUsage {
			minUsage = count
		}
	}

	candidates := make([]string, 0, len(available))
	for _, key := range available {
		if p.usageCounts[key] == minUsage {
			candidates = append(candidates, key)
		}
	}

	selected := candidates[rand.Intn(len(candidates))]
	p.usageCounts[selected]++
	return selected, nil
}

// Release reports the outcome of a request made with key.
// A failed key rests for the cooldown unless it is the last one standing.
func (p *APIKeyPool) Release(key string, failed bool) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !failed {
		delete(p.failures, key)
		return
	}

	p.failures[key]++
	if p.cooldown <= 0 || len(p.availableKeys()) <= 1 {
		return
	}
	p.coolingDown[key] = p.now().Add(p.cooldown)
}

// availableKeys returns keys that are not cooling down. Must be called with lock held.
func (p *APIKeyPool) availableKeys() []string {
	now := p.now()
	available := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		if until, ok := p.coolingDown[key]; ok {
			if now.Before(until) {
				continue
			}
			delete(p.coolingDown, key)
		}
		available = append(available, key)
	}
	return available
}

// Stats returns usage statistics without exposing the keys
func (p *APIKeyPool) Stats() map[string]interface{} {
	if p == nil {
		return map[string]interface{}{"total_keys": 0, "available_keys": 0}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, n := range p.usageCounts {
		total += n
	}
	available := len(p.availableKeys())

	return map[string]interface{}{
		"total_keys":     len(p.keys),
		"available_keys": available,
		"cooling_down":   len(p.keys) - available,
		"requests":       total,
	}
}
