package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/platform/clock"
)

// memoryEntry is one cached value with its expiry.
type memoryEntry struct {
	value     *domain.LearningProgress
	expiresAt time.Time
}

// Memory is an in-process Cache backed by a mutex-protected map. Expired
// entries are dropped lazily on read. Time comes from an injected clock so
// expiry is deterministic under test.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   clock.Clock
}

// NewMemory creates an empty in-process cache.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		clock:   clk,
	}
}

// Ensure Memory implements the Cache interface
var _ Cache = (*Memory)(nil)

// Get implements Cache.Get.
func (m *Memory) Get(ctx context.Context, key string) (*domain.LearningProgress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.value.Clone(), true, nil
}

// Set implements Cache.Set.
func (m *Memory) Set(
	ctx context.Context,
	key string,
	value *domain.LearningProgress,
	ttl time.Duration,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		value:     value.Clone(),
		expiresAt: m.clock.Now().Add(ttl),
	}
	return nil
}

// Delete implements Cache.Delete.
func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Len reports the number of entries currently held, expired or not.
// Intended for tests and metrics.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
