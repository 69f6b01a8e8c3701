// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txpool maintains the set of pending transactions behind two
// coupled indexes (by-hash and priority), per spec.md §4.3. The pool's
// single-writer-lock-guards-both-indexes discipline follows the teacher's
// quorum/threshold packages' sync.RWMutex convention
// (quorum/static.go, quorum/dynamic.go).
package txpool

import (
	"math/big"
	"sort"
	"sync"

	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/types"
)

// InsertResult is the outcome of Insert.
type InsertResult uint8

const (
	Inserted InsertResult = iota
	Duplicate
	Rejected
)

// AccountQuery resolves the on-chain nonce/balance a candidate transaction
// must be checked against. Implemented by the state layer (finalizer's
// account view); kept as a narrow interface so txpool never imports the
// state/storage packages directly.
type AccountQuery interface {
	AccountNonce(addr types.Address) uint64
	AccountBalance(addr types.Address) *big.Int
}

type senderEntry struct {
	tx *types.Transaction
}

// Pool is the pending-transaction set.
type Pool struct {
	mu sync.RWMutex

	maxSize int
	chainID uint64

	byHash map[types.Hash]*types.Transaction
	// bySender maps sender -> nonce -> entry, giving the per-sender
	// nonce-ordered submap spec.md §4.3 requires to locate the minimum
	// outstanding nonce.
	bySender map[types.Address]map[uint64]senderEntry
	// pinned holds hashes referenced by an in-flight period; they survive
	// eviction even if their priority would otherwise be lowest.
	pinned map[types.Hash]struct{}
}

// New constructs an empty pool.
func New(maxSize int, chainID uint64) *Pool {
	return &Pool{
		maxSize:  maxSize,
		chainID:  chainID,
		byHash:   make(map[types.Hash]*types.Transaction),
		bySender: make(map[types.Address]map[uint64]senderEntry),
		pinned:   make(map[types.Hash]struct{}),
	}
}

// Insert validates and admits tx, evicting the lowest-priority entry if the
// pool is full. sender must already be recovered and cached on tx
// (tx.CachedSender()); callers perform signature recovery once, upstream,
// since it is CPU-bound and must not be repeated under the pool lock.
func (p *Pool) Insert(tx *types.Transaction, accounts AccountQuery) (InsertResult, error) {
	sender, ok := tx.CachedSender()
	if !ok {
		return Rejected, cerr.New(cerr.KindConsistency, "txpool: insert called before sender recovery")
	}
	if tx.ChainID != p.chainID {
		return Rejected, cerr.New(cerr.KindMaliciousPeer, "txpool: chain_id mismatch: got %d want %d", tx.ChainID, p.chainID)
	}

	hash := tx.Hash()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byHash[hash]; exists {
		return Duplicate, nil
	}

	accountNonce := accounts.AccountNonce(sender)
	if tx.Nonce < accountNonce {
		return Rejected, cerr.New(cerr.KindConsistency, "txpool: nonce %d below account nonce %d", tx.Nonce, accountNonce)
	}
	balance := accounts.AccountBalance(sender)
	if balance.Cmp(tx.Cost()) < 0 {
		return Rejected, cerr.New(cerr.KindConsistency, "txpool: insufficient balance for sender %s", sender)
	}

	if len(p.byHash) >= p.maxSize {
		if !p.evictLowestPriorityLocked() {
			return Rejected, cerr.New(cerr.KindConsistency, "txpool: pool full")
		}
	}

	p.byHash[hash] = tx
	sub, ok := p.bySender[sender]
	if !ok {
		sub = make(map[uint64]senderEntry)
		p.bySender[sender] = sub
	}
	sub[tx.Nonce] = senderEntry{tx: tx}
	return Inserted, nil
}

// Remove deletes hash from the pool, reporting whether it existed, and
// prunes any now-empty per-sender submap.
func (p *Pool) Remove(hash types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash types.Hash) bool {
	tx, ok := p.byHash[hash]
	if !ok {
		return false
	}
	delete(p.byHash, hash)
	delete(p.pinned, hash)

	sender, _ := tx.CachedSender()
	if sub, ok := p.bySender[sender]; ok {
		delete(sub, tx.Nonce)
		if len(sub) == 0 {
			delete(p.bySender, sender)
		}
	}
	return true
}

// Pin marks hash as referenced by an in-flight period, protecting it from
// eviction until Unpin is called.
func (p *Pool) Pin(hash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pinned[hash] = struct{}{}
}

// Unpin releases a previous Pin.
func (p *Pool) Unpin(hash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pinned, hash)
}

// Contains reports whether hash is present.
func (p *Pool) Contains(hash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// Get returns the full transaction body for hash, if still pending.
func (p *Pool) Get(hash types.Hash) (*types.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.byHash[hash]
	return tx, ok
}

// Size returns the number of pending transactions.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Top returns a snapshot of the first n transactions by priority ordering.
// Same-sender transactions order by ascending nonce (lowest height first);
// across senders, higher gas price wins.
func (p *Pool) Top(n int) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.topLocked(n)
}

func (p *Pool) topLocked(n int) []*types.Transaction {
	minNonce := make(map[types.Address]uint64, len(p.bySender))
	for sender, sub := range p.bySender {
		min := ^uint64(0)
		for nonce := range sub {
			if nonce < min {
				min = nonce
			}
		}
		minNonce[sender] = min
	}

	all := make([]*types.Transaction, 0, len(p.byHash))
	for _, tx := range p.byHash {
		all = append(all, tx)
	}
	sort.Slice(all, func(i, j int) bool {
		return less(all[i], all[j], minNonce)
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// less implements spec.md §4.3's priority comparator: same sender orders by
// height = nonce - min_pending_nonce_for_sender (ties by higher gas price);
// different senders order by higher gas price.
func less(a, b *types.Transaction, minNonce map[types.Address]uint64) bool {
	senderA, _ := a.CachedSender()
	senderB, _ := b.CachedSender()
	if senderA == senderB {
		heightA := a.Nonce - minNonce[senderA]
		heightB := b.Nonce - minNonce[senderB]
		if heightA != heightB {
			return heightA < heightB
		}
		return a.GasPrice.Cmp(b.GasPrice) > 0
	}
	return a.GasPrice.Cmp(b.GasPrice) > 0
}

// evictLowestPriorityLocked removes the single lowest-priority unpinned
// transaction, reporting whether one was found to evict.
func (p *Pool) evictLowestPriorityLocked() bool {
	all := p.topLocked(-1)
	for i := len(all) - 1; i >= 0; i-- {
		hash := all[i].Hash()
		if _, pinned := p.pinned[hash]; pinned {
			continue
		}
		p.removeLocked(hash)
		return true
	}
	return false
}
