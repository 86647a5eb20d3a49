package cache

import (
	"sync"
	"time"
)

// memoItem is one memoized projection with its expiration.
type memoItem struct {
	value      any
	expiration time.Time
}

// Memo is a small TTL cache for expensive report projections. Unlike the
// match cache it holds arbitrary values and stays tiny, one entry per
// distinct query shape.
type Memo struct {
	data  map[string]memoItem
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemo creates a memo with the given TTL; ttl below 1 defaults to five
// minutes.
func NewMemo(ttl time.Duration) *Memo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memo{
		data: make(map[string]memoItem),
		ttl:  ttl,
	}
}

// Get returns the memoized value for key, if present and fresh.
func (m *Memo) Get(key string) (any, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	item, exists := m.data[key]
	if !exists || time.Now().After(item.expiration) {
		return nil, false
	}
	return item.value, true
}

// Set memoizes a value under key, dropping any stale entries it finds.
func (m *Memo) Set(key string, value any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for k, item := range m.data {
		if now.After(item.expiration) {
			delete(m.data, k)
		}
	}
	m.data[key] = memoItem{value: value, expiration: now.Add(m.ttl)}
}

// Invalidate clears every memoized projection, typically after new
// observations land.
func (m *Memo) Invalidate() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = make(map[string]memoItem)
}
