// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package packet defines the wire packet taxonomy of spec.md §4.10/§6 as a
// tagged-union Packet interface, one struct per variant with its own
// Validate/Process methods — the design note in spec.md §9 ("polymorphic
// packet handlers... re-expressed as tagged variants of a Packet sum type
// with per-variant validate and process functions") applied directly,
// replacing the teacher's stubbed networking/router/chain_router.go
// inheritance shape. The exact packet taxonomy (three priority bands, ten
// packet types) is lifted from
// original_source/.../network/tarcap/packet_types.hpp's
// SubprotocolPacketType enum.
package packet

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/taraxa-go/taraxa-core/types"
)

// Priority is one of the three dispatch bands of spec.md §4.10.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityMid
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMid:
		return "mid"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Type enumerates every packet type this subprotocol carries, grouped by
// priority band in the same order as the original SubprotocolPacketType.
// Constants use a Type prefix so they don't collide with the identically
// named Packet-implementing struct in each variant's own file.
type Type uint32

const (
	// High priority: votes, get-next-votes, votes-bundle.
	TypeVote Type = iota
	TypeGetVotesSync
	TypeVotesSync

	// Mid priority: DAG block, DAG sync, transactions.
	TypeDagBlock
	TypeDagSync
	TypeTransaction

	// Low priority: status, PBFT sync, get-PBFT-sync, get-DAG-sync.
	TypeStatus
	TypeGetPbftSync
	TypePbftSync
	TypeGetDagSync
)

var names = map[Type]string{
	TypeVote:         "VotePacket",
	TypeGetVotesSync: "GetVotesSyncPacket",
	TypeVotesSync:    "VotesSyncPacket",
	TypeDagBlock:     "DagBlockPacket",
	TypeDagSync:      "DagSyncPacket",
	TypeTransaction:  "TransactionPacket",
	TypeStatus:       "StatusPacket",
	TypeGetPbftSync:  "GetPbftSyncPacket",
	TypePbftSync:     "PbftSyncPacket",
	TypeGetDagSync:   "GetDagSyncPacket",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UnknownPacket"
}

// Priority resolves t's dispatch band.
func (t Type) Priority() Priority {
	switch t {
	case TypeVote, TypeGetVotesSync, TypeVotesSync:
		return PriorityHigh
	case TypeDagBlock, TypeDagSync, TypeTransaction:
		return PriorityMid
	default:
		return PriorityLow
	}
}

// Packet is the tagged-union wire message interface. Validate checks
// shape/semantic validity (arity, signatures, VRF proofs — anything that
// can mark the sender malicious per spec.md §4.10); Process applies the
// already-validated packet's effect against the local Node.
type Packet interface {
	Type() Type
	Validate(n Node) error
	Process(ctx context.Context, n Node, from ids.NodeID) error
}

// Node is the narrow dependency-injection seam packet handlers run
// against — deliberately not the concrete node.Node type, per spec.md §9's
// design note that back-references from the network layer to consensus
// "become message channels or callback interfaces registered at wiring
// time" rather than owned references.
type Node interface {
	ChainID() uint64
	GenesisHash() types.Hash
	Status() Status

	Votes() VoteAdder
	DAG() DAGInserter
	Pool() PoolInserter
	Periods() PeriodApplier

	// Send transmits a reply/forwarded packet to peer. No handler in this
	// package calls it.
	Send(peer ids.NodeID, p Packet) error
}

// PeriodApplier is the slice of the node orchestrator's finalize pipeline
// (dagdb.Manager.PeriodSet followed by finalizer.Finalizer.Finalize) that
// PBFT sync packets drive when catching a peer's chain up to the local
// tip, or the local node up to a peer's.
type PeriodApplier interface {
	Apply(pd *types.PeriodData) error
}

// VoteAdder is the slice of votes.Manager packet handlers need.
type VoteAdder interface {
	Add(v *types.Vote) (AddResult, error)

	// EquivocationCount drains and returns how many votes the manager has
	// recorded as equivocating (same voter, same round/step, conflicting
	// block hash) since the last drain, per spec.md §4.6's "invalid/
	// equivocating votes count toward a malicious-peer score."
	EquivocationCount() int
}

// AddResult mirrors votes.AddResult without importing votes from this
// narrow seam (kept numerically identical; see node/adapters.go's voteSeam).
type AddResult uint8

const (
	VoteAdded AddResult = iota
	VoteDuplicate
	VoteInvalid
)

// DAGInserter is the slice of dagdb.Manager packet handlers need.
type DAGInserter interface {
	Insert(block *types.DAGBlock, authorPub []byte) error
	Block(hash types.Hash) (*types.DAGBlock, bool)
	Tips() []types.Hash
}

// PoolInserter is the slice of txpool.Pool packet handlers need.
type PoolInserter interface {
	Insert(tx *types.Transaction) (PoolInsertResult, error)
	Contains(hash types.Hash) bool
}

// PoolInsertResult mirrors txpool.InsertResult for the same reason as
// AddResult above.
type PoolInsertResult uint8

const (
	PoolInserted PoolInsertResult = iota
	PoolDuplicate
	PoolRejected
)

// Status is the gossiped chain-liveness snapshot of spec.md §4.10,
// carried in full (11-field) on handshake and as a 4-field update
// thereafter.
type Status struct {
	ChainID         uint64
	NetworkID       uint64
	GenesisHash     types.Hash
	ProtocolVersion uint32
	NodeVersion     string
	PBFTChainSize   uint64
	PBFTRound       uint32
	DAGLevel        uint64
	Syncing         bool
	IsLightNode     bool
	History         uint32
}
