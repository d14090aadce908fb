// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package cache provides a thread-safe TTL LRU cache for resolved user
// records. The same user ids recur across enrichment requests, so a
// short-lived cache skips redundant identity-service round trips without
// changing any per-request failure semantics: only successful lookups are
// cached, and a miss simply falls through to a fresh fetch.
package cache

import (
	"sync"
	"time"

	"github.com/meetmesh/composite/internal/metrics"
	"github.com/meetmesh/composite/internal/models"
)

// entry is a node in the doubly-linked recency list.
type entry struct {
	key       int64
	value     models.UserDetail
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// UserCache is a fixed-capacity LRU cache of user details with lazy TTL
// expiration. O(1) Get, Add, and eviction.
type UserCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	items map[int64]*entry

	// head.next is most recently used, tail.prev least recently used.
	head *entry
	tail *entry

	hits   int64
	misses int64
}

// NewUserCache creates a cache with the given capacity and TTL.
func NewUserCache(capacity int, ttl time.Duration) *UserCache {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	c := &UserCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[int64]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a user by id. Returns the record and true when present
// and not expired. Found entries become most recently used.
func (c *UserCache) Get(id int64) (models.UserDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[id]; ok {
		if time.Now().After(e.expiresAt) {
			c.remove(e)
			c.miss()
			return models.UserDetail{}, false
		}
		c.moveToFront(e)
		c.hits++
		metrics.UserCacheHits.Inc()
		return e.value, true
	}

	c.miss()
	return models.UserDetail{}, false
}

// miss records a lookup failure, called with the lock held.
func (c *UserCache) miss() {
	c.misses++
	metrics.UserCacheMisses.Inc()
}

// Add inserts or refreshes a user record. At capacity the least recently
// used entry is evicted.
func (c *UserCache) Add(user models.UserDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if e, ok := c.items[user.ID]; ok {
		e.value = user
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: user.ID, value: user, expiresAt: expiresAt}
	c.addToFront(e)
	c.items[user.ID] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
	metrics.UserCacheEntries.Set(float64(len(c.items)))
}

// Remove drops a user record. Returns true if it was present.
func (c *UserCache) Remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[id]; ok {
		c.remove(e)
		return true
	}
	return false
}

// Len returns the current number of entries.
func (c *UserCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit/miss counters and the current size.
func (c *UserCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods, called with the lock held.

func (c *UserCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *UserCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *UserCache) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
	metrics.UserCacheEntries.Set(float64(len(c.items)))
}

func (c *UserCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.remove(oldest)
}
