// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/net/packet"
)

// peerState is one connected peer's liveness status and throttle
// bookkeeping. inFlight and window are only ever touched while holding
// the owning peerTable's mu, so peerState itself carries no lock.
type peerState struct {
	status     packet.Status
	hasStatus  bool
	inFlight   int
	windowFrom time.Time
	windowSpent time.Duration
}

// peerTable is the router's connected-peer registry, a reader-preferring
// sync.RWMutex-guarded map per spec.md §5's peer-table lock discipline
// (reads — status lookups and gossip fan-out —
// vastly outnumber the connect/disconnect/throttle writes).
type peerTable struct {
	mu    sync.RWMutex
	peers map[ids.NodeID]*peerState
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[ids.NodeID]*peerState)}
}

// connect registers a newly connected peer.
func (t *peerTable) connect(id ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.peers[id]; !ok {
		t.peers[id] = &peerState{}
	}
}

// disconnect removes a peer, e.g. on throttle violation or malicious
// behavior.
func (t *peerTable) disconnect(id ids.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

// setStatus records a peer's gossiped status snapshot.
func (t *peerTable) setStatus(id ids.NodeID, s packet.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		p = &peerState{}
		t.peers[id] = p
	}
	p.status, p.hasStatus = s, true
}

// status returns the peer's last-known status snapshot.
func (t *peerTable) status(id ids.NodeID) (packet.Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	if !ok || !p.hasStatus {
		return packet.Status{}, false
	}
	return p.status, true
}

// snapshot returns every connected peer ID, for gossip fan-out.
func (t *peerTable) snapshot() []ids.NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ids.NodeID, 0, len(t.peers))
	for id := range t.peers {
		out = append(out, id)
	}
	return out
}

// tryAcquire admits one more in-flight packet for id, enforcing maxInFlight;
// it returns false when the peer is already at its cap.
func (t *peerTable) tryAcquire(id ids.NodeID, maxInFlight int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		p = &peerState{}
		t.peers[id] = p
	}
	if p.inFlight >= maxInFlight {
		return false
	}
	p.inFlight++
	return true
}

// release gives back one in-flight slot and records processingTime against
// the peer's sliding window, returning the window's total once window has
// elapsed fewer than windowSize ago.
func (t *peerTable) release(id ids.NodeID, processingTime time.Duration, windowSize time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[id]
	if !ok {
		return 0
	}
	if p.inFlight > 0 {
		p.inFlight--
	}
	now := time.Now()
	if now.Sub(p.windowFrom) > windowSize {
		p.windowFrom = now
		p.windowSpent = 0
	}
	p.windowSpent += processingTime
	return p.windowSpent
}
