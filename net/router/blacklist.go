// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"sync"
	"time"

	"github.com/luxfi/ids"
)

// Blacklist is a time-bounded ban list satisfying the same shape as the
// teacher's networking/benchlist.Benchlist interface (IsBenched/Bench),
// filled in here with an actual map instead of the teacher's bare
// interface declaration. Per spec.md §4.10/§7, malicious behavior bans a
// peer for a fixed duration; the ban is not permanent.
type Blacklist struct {
	mu      sync.RWMutex
	bannedUntil map[ids.NodeID]time.Time
}

// NewBlacklist constructs an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{bannedUntil: make(map[ids.NodeID]time.Time)}
}

// IsBenched reports whether nodeID is currently banned.
func (b *Blacklist) IsBenched(nodeID ids.NodeID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	until, ok := b.bannedUntil[nodeID]
	return ok && time.Now().Before(until)
}

// Bench bans nodeID for duration, extending an existing ban rather than
// shortening it.
func (b *Blacklist) Bench(nodeID ids.NodeID, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until := time.Now().Add(duration)
	if existing, ok := b.bannedUntil[nodeID]; ok && existing.After(until) {
		return
	}
	b.bannedUntil[nodeID] = until
}

// sweep drops expired entries, called periodically so the map does not
// grow unbounded across a long-running node's lifetime.
func (b *Blacklist) sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for id, until := range b.bannedUntil {
		if now.After(until) {
			delete(b.bannedUntil, id)
		}
	}
}
