// Package debounce suppresses duplicate identical actions from the same user
// within a short window. A marker keyed by (user_id, action signature) is set
// on first sight and expires after the window; while it exists, repeats are
// dropped. It is an expiring marker, not a queue.
package debounce

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Guard reports whether an action should be suppressed. Acquire returns true
// exactly once per (user, signature) per window.
type Guard interface {
	Acquire(ctx context.Context, userID, signature string, window time.Duration) (bool, error)
}

func key(userID, signature string) string {
	h := fnv.New64a()
	h.Write([]byte(signature))
	return fmt.Sprintf("debounce:%s:%x", userID, h.Sum64())
}

// Memory is the in-process Guard: a mutex-protected map with TTL eviction.
type Memory struct {
	mu      sync.Mutex
	markers map[string]time.Time // expiry per marker
	now     func() time.Time
}

func NewMemory() *Memory {
	m := &Memory{markers: make(map[string]time.Time), now: time.Now}

	// Cleanup goroutine, same shape as the rate limiter's visitor eviction.
	go func() {
		for {
			time.Sleep(time.Minute)
			now := m.now()
			m.mu.Lock()
			for k, expiry := range m.markers {
				if now.After(expiry) {
					delete(m.markers, k)
				}
			}
			m.mu.Unlock()
		}
	}()

	return m
}

func (m *Memory) Acquire(_ context.Context, userID, signature string, window time.Duration) (bool, error) {
	k := key(userID, signature)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.markers[k]; ok && now.Before(expiry) {
		return false, nil
	}
	m.markers[k] = now.Add(window)
	return true, nil
}
