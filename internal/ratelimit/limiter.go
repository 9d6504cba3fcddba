// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ratelimit provides a keyed token-bucket limiter for client-side
// send throttling. Each key (a session or conversation ID) gets its own
// bucket; idle buckets are evicted LRU-style so the map stays bounded.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxEntries bounds the number of per-key limiters kept in memory.
const DefaultMaxEntries = 256

// =============================================================================
// KEYED LIMITER
// =============================================================================

// Limiter is a thread-safe collection of per-key token buckets.
type Limiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	maxEntries int
	entries    map[string]*entry
	order      []string // LRU order, oldest first
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a keyed limiter allowing eventsPerSec sustained events with the
// given burst per key.
func New(eventsPerSec float64, burst int) *Limiter {
	if eventsPerSec <= 0 {
		eventsPerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limit:      rate.Limit(eventsPerSec),
		burst:      burst,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*entry),
	}
}

// WithMaxEntries overrides the LRU capacity. Used by tests.
func (l *Limiter) WithMaxEntries(n int) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > 0 {
		l.maxEntries = n
	}
	return l
}

// Allow reports whether an event for key may happen now, consuming a token
// if so.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Wait returns how long the caller must wait before the next event for key
// is permitted. Zero means the event may happen immediately; the token is
// only consumed via Allow.
func (l *Limiter) Wait(key string) time.Duration {
	r := l.bucket(key).Reserve()
	delay := r.Delay()
	r.Cancel()
	return delay
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// bucket returns the limiter for key, creating it and evicting the least
// recently used key when over capacity.
func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[key]; ok {
		e.lastSeen = time.Now()
		l.touch(key)
		return e.limiter
	}

	for len(l.entries) >= l.maxEntries && len(l.order) > 0 {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.entries, oldest)
	}

	e := &entry{
		limiter:  rate.NewLimiter(l.limit, l.burst),
		lastSeen: time.Now(),
	}
	l.entries[key] = e
	l.order = append(l.order, key)
	return e.limiter
}

// touch moves key to the most-recently-used end of the order slice.
func (l *Limiter) touch(key string) {
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			l.order = append(l.order, key)
			return
		}
	}
}
