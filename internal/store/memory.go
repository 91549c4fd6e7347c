package store

import (
	"container/list"
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-process KV store with per-key TTL
// and bounded size. Used for development and tests; production runs
// on Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	maxKeys int
	items   map[string]*list.Element
	order   *list.List
	closed  bool
}

type storeEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e *storeEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates a memory store with the specified key limit.
func NewMemoryStore(maxKeys int) *MemoryStore {
	if maxKeys <= 0 {
		maxKeys = 100000
	}
	return &MemoryStore{
		maxKeys: maxKeys,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value. Returns nil, nil when the key is absent or
// expired.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	elem, ok := s.items[key]
	if !ok {
		return nil, nil
	}

	entry := elem.Value.(*storeEntry)
	if entry.expired(time.Now()) {
		s.removeElement(elem)
		return nil, nil
	}

	s.order.MoveToFront(elem)
	return entry.value, nil
}

// Set stores a value with an expiration.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if elem, ok := s.items[key]; ok {
		s.order.MoveToFront(elem)
		entry := elem.Value.(*storeEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		return nil
	}

	entry := &storeEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}
	elem := s.order.PushFront(entry)
	s.items[key] = elem

	for s.order.Len() > s.maxKeys {
		s.removeOldest()
	}

	return nil
}

// Increment atomically increments a counter and returns the new value.
// Counters share the keyspace with regular values, encoded as decimal
// strings (matching Redis INCR semantics); the TTL starts with the
// first increment of a window.
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	now := time.Now()

	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*storeEntry)
		if !entry.expired(now) {
			current, _ := strconv.ParseInt(string(entry.value), 10, 64)
			current++
			entry.value = []byte(strconv.FormatInt(current, 10))
			s.order.MoveToFront(elem)
			return current, nil
		}
		s.removeElement(elem)
	}

	// New counter window
	entry := &storeEntry{
		key:   key,
		value: []byte("1"),
	}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	elem := s.order.PushFront(entry)
	s.items[key] = elem

	for s.order.Len() > s.maxKeys {
		s.removeOldest()
	}

	return 1, nil
}

// Exists reports whether a key is present and unexpired.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}

	elem, ok := s.items[key]
	if !ok {
		return false, nil
	}
	if elem.Value.(*storeEntry).expired(time.Now()) {
		s.removeElement(elem)
		return false, nil
	}
	return true, nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
	}
	return nil
}

// Keys enumerates keys matching a glob pattern.
func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	now := time.Now()
	var keys []string
	var stale []*list.Element

	for key, elem := range s.items {
		if elem.Value.(*storeEntry).expired(now) {
			stale = append(stale, elem)
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}

	for _, elem := range stale {
		s.removeElement(elem)
	}

	return keys, nil
}

// Ping checks store health.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.order = list.New()
	s.closed = true
	return nil
}

// Stats returns store statistics.
func (s *MemoryStore) Stats() (size int, capacity int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len(), s.maxKeys
}

func (s *MemoryStore) removeElement(elem *list.Element) {
	s.order.Remove(elem)
	entry := elem.Value.(*storeEntry)
	delete(s.items, entry.key)
}

func (s *MemoryStore) removeOldest() {
	elem := s.order.Back()
	if elem != nil {
		s.removeElement(elem)
	}
}
