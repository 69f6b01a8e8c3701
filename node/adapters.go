// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/net/packet"
	"github.com/taraxa-go/taraxa-core/txpool"
	"github.com/taraxa-go/taraxa-core/types"
	"github.com/taraxa-go/taraxa-core/votes"
)

// voteSeam adapts votes.Manager to packet.VoteAdder, translating between
// votes.AddResult and packet.AddResult since packet deliberately does not
// import votes (the narrow dependency-injection seam of spec.md §9).
type voteSeam struct{ m *votes.Manager }

func (s voteSeam) Add(v *types.Vote) (packet.AddResult, error) {
	result, err := s.m.Add(v)
	switch result {
	case votes.Added:
		return packet.VoteAdded, err
	case votes.Duplicate:
		return packet.VoteDuplicate, err
	default:
		return packet.VoteInvalid, err
	}
}

// EquivocationCount drains and counts equivocating votes recorded by the
// manager since the last drain, without handing the packet seam the
// votes.Equivocation type itself (same narrow-seam rule as AddResult).
func (s voteSeam) EquivocationCount() int { return len(s.m.Equivocations()) }

// dagSeam adapts Node to packet.DAGInserter, tracking pivot-chain growth
// for the VDF staleness gate (spec.md §4.7) on every successful insert.
type dagSeam struct{ n *Node }

func (s dagSeam) Insert(block *types.DAGBlock, authorPub []byte) error {
	if err := s.n.dag.Insert(block, authorPub); err != nil {
		return err
	}
	s.n.growth.observe(block.Level)
	s.n.mu.Lock()
	if block.Level > s.n.dagLevel {
		s.n.dagLevel = block.Level
	}
	s.n.mu.Unlock()
	return nil
}

func (s dagSeam) Block(hash types.Hash) (*types.DAGBlock, bool) { return s.n.dag.Block(hash) }
func (s dagSeam) Tips() []types.Hash                            { return s.n.dag.Tips() }

// poolSeam adapts Node.pool to packet.PoolInserter: it recovers and caches
// a transaction's sender from its signature when none is cached yet (an
// unrecoverable signature is a malicious-peer error), and resolves the
// account view (nonce/balance) Insert's rejection checks need against the
// node's reference ledger.
type poolSeam struct{ n *Node }

func (s poolSeam) Insert(tx *types.Transaction) (packet.PoolInsertResult, error) {
	if _, ok := tx.CachedSender(); !ok {
		sender, err := crypto.RecoverAddress(tx.SigningHash(), tx.Sig)
		if err != nil {
			return packet.PoolRejected, cerr.New(cerr.KindMaliciousPeer, "node: recovering transaction sender: %v", err)
		}
		tx.SetSender(sender)
	}
	result, err := s.n.pool.Insert(tx, s.n.ledger)
	switch result {
	case txpool.Inserted:
		return packet.PoolInserted, err
	case txpool.Duplicate:
		return packet.PoolDuplicate, err
	default:
		return packet.PoolRejected, err
	}
}

func (s poolSeam) Contains(hash types.Hash) bool { return s.n.pool.Contains(hash) }
