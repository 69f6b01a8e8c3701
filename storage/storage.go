// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage defines the generic ordered key-value interface and the
// named column families of spec.md §4.11/§6. The concrete store is an
// external collaborator per spec.md §1's Non-goals; this package also
// ships a pebble-backed reference adapter (pebble_store.go) so the module
// is runnable standalone.
package storage

import "errors"

// ColumnFamily names one of the logical key spaces spec.md §4.11 lists
// verbatim.
type ColumnFamily string

const (
	CFDagBlocksByHash       ColumnFamily = "dag_blocks_by_hash"
	CFDagBlocksByLevel      ColumnFamily = "dag_blocks_by_level"
	CFTransactions          ColumnFamily = "transactions"
	CFPBFTBlocksByPeriod    ColumnFamily = "pbft_blocks_by_period"
	CFPBFTCertVotesByPeriod ColumnFamily = "pbft_cert_votes_by_period"
	CFPeriodData            ColumnFamily = "period_data"
	CFStateTrieNodes        ColumnFamily = "state_trie_nodes"
	CFFinalChainStateSnaps  ColumnFamily = "final_chain_state_snapshots"
	CFPeerInfo              ColumnFamily = "peer_info"
	CFNextVotesBundles      ColumnFamily = "next_votes_bundles"
)

// AllColumnFamilies enumerates every column family this module persists
// to, in the order spec.md §4.11 lists them.
var AllColumnFamilies = []ColumnFamily{
	CFDagBlocksByHash,
	CFDagBlocksByLevel,
	CFTransactions,
	CFPBFTBlocksByPeriod,
	CFPBFTCertVotesByPeriod,
	CFPeriodData,
	CFStateTrieNodes,
	CFFinalChainStateSnaps,
	CFPeerInfo,
	CFNextVotesBundles,
}

// ErrNotFound is returned by Get when the key is absent from the column
// family.
var ErrNotFound = errors.New("storage: key not found")

//go:generate mockgen -destination=storagemock/kv.go -package=storagemock github.com/taraxa-go/taraxa-core/storage KV,Batch,Iterator

// KV is a generic ordered, column-family-scoped key-value store with
// atomic cross-CF write batches, per spec.md §6.
type KV interface {
	Get(cf ColumnFamily, key []byte) ([]byte, error)
	Put(cf ColumnFamily, key, value []byte) error
	Delete(cf ColumnFamily, key []byte) error
	NewBatch() Batch
	NewIterator(cf ColumnFamily, start, end []byte) Iterator
	Close() error
}

// Batch accumulates writes across one or more column families for a
// single atomic commit.
type Batch interface {
	Put(cf ColumnFamily, key, value []byte)
	Delete(cf ColumnFamily, key []byte)
	Commit() error
}

// Iterator walks a column family's keys in ascending order over [start,
// end). A nil end means "to the end of the column family".
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}
