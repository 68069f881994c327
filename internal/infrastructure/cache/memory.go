package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cloudmatch/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory fuzzy-key store. It implements the
// same contract as SQLiteStore and backs the "memory" cache type as well as
// tests.
type MemoryStore struct {
	mutex          sync.RWMutex
	data           map[string]*domain.CacheEntry
	fuzzyThreshold int
	ttl            time.Duration
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(fuzzyThreshold int, ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		data:           make(map[string]*domain.CacheEntry),
		fuzzyThreshold: fuzzyThreshold,
		ttl:            ttl,
	}

	if ttl > 0 {
		go store.cleanupExpired()
	}

	return store
}

// Get returns the best stored entry whose key similarity meets the threshold
func (m *MemoryStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if entry, ok := m.data[key]; ok && !m.expired(entry) {
		m.touchLocked(entry)
		return copyEntry(entry), nil
	}

	bestScore := 0
	var best *domain.CacheEntry
	for stored, entry := range m.data {
		if m.expired(entry) {
			continue
		}
		if score := fuzzy.Ratio(key, stored); score > bestScore {
			bestScore = score
			best = entry
		}
	}
	if best == nil || bestScore < m.fuzzyThreshold {
		return nil, domain.ErrCacheMiss
	}
	m.touchLocked(best)
	return copyEntry(best), nil
}

// Put inserts or replaces the entry under the exact key
func (m *MemoryStore) Put(ctx context.Context, key string, entry *domain.CacheEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := *entry
	stored.Key = key
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.LastAccessed = time.Now().UTC()
	m.data[key] = &stored
	return nil
}

// Clear removes all entries
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.data = make(map[string]*domain.CacheEntry)
	return nil
}

// Inspect lists current entries, most recently accessed first
func (m *MemoryStore) Inspect(ctx context.Context) ([]domain.CacheEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entries := make([]domain.CacheEntry, 0, len(m.data))
	for _, entry := range m.data {
		if m.expired(entry) {
			continue
		}
		entries = append(entries, *copyEntry(entry))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccessed.After(entries[j].LastAccessed)
	})
	return entries, nil
}

func (m *MemoryStore) expired(entry *domain.CacheEntry) bool {
	return m.ttl > 0 && time.Since(entry.CreatedAt) > m.ttl
}

func (m *MemoryStore) touchLocked(entry *domain.CacheEntry) {
	entry.AccessCount++
	entry.LastAccessed = time.Now().UTC()
}

// cleanupExpired removes expired entries periodically
func (m *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mutex.Lock()
		for key, entry := range m.data {
			if m.expired(entry) {
				delete(m.data, key)
			}
		}
		m.mutex.Unlock()
	}
}

func copyEntry(entry *domain.CacheEntry) *domain.CacheEntry {
	out := *entry
	out.Results = make([]domain.MatchResult, len(entry.Results))
	copy(out.Results, entry.Results)
	return &out
}
