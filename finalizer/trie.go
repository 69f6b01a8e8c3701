// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalizer

import (
	"github.com/VictoriaMetrics/fastcache"

	"github.com/taraxa-go/taraxa-core/types"
)

// NodeCache memoizes binary-Merkle internal-node hashes keyed by their two
// children, the way a Merkle-Patricia trie's node cache avoids recomputing
// hashes for subtrees that recur across periods (most commonly the pair
// formed when an odd-length level is padded by duplicating its last
// node). Grounded on equa-blockchain-core's dependency surface, which pulls
// in `github.com/VictoriaMetrics/fastcache` for exactly this purpose — the
// teacher itself has no trie package to generalize, so the cache's shape
// here is this module's own, using fastcache only as the underlying store.
type NodeCache struct {
	cache *fastcache.Cache
}

// NewNodeCache allocates a NodeCache backed by an in-memory fastcache of
// roughly maxBytes capacity.
func NewNodeCache(maxBytes int) *NodeCache {
	return &NodeCache{cache: fastcache.New(maxBytes)}
}

func (c *NodeCache) parentHash(left, right types.Hash) types.Hash {
	key := append(append([]byte(nil), left[:]...), right[:]...)
	if dst, ok := c.cache.HasGet(nil, key); ok {
		return types.BytesToHash(dst)
	}
	parent := types.Keccak256(left[:], right[:])
	c.cache.Set(key, parent[:])
	return parent
}

// MerkleRoot builds a binary Merkle tree over leaves (each already a
// content hash: tx RLP hash or receipt RLP hash) and returns its root.
// Odd levels are padded by duplicating the last node, the same convention
// Bitcoin-style merkle trees use, which is precisely the repeated-subtree
// case the node cache is designed to skip recomputing.
func (c *NodeCache) MerkleRoot(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.EmptyHash
	}
	level := append([]types.Hash(nil), leaves...)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = c.parentHash(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// TransactionsRoot hashes tx RLP encodings into a merkle root, indexed by
// the order given (the ordered-by-DAG-inclusion order per spec.md §4.8).
func (c *NodeCache) TransactionsRoot(txs []*types.Transaction) types.Hash {
	leaves := make([]types.Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = types.Keccak256(tx.EncodeRLP())
	}
	return c.MerkleRoot(leaves)
}

// ReceiptsRoot hashes receipt RLP encodings into a merkle root, in the
// same order as the transactions that produced them.
func (c *NodeCache) ReceiptsRoot(receipts []*types.Receipt) types.Hash {
	leaves := make([]types.Hash, len(receipts))
	for i, r := range receipts {
		leaves[i] = types.Keccak256(r.EncodeRLP())
	}
	return c.MerkleRoot(leaves)
}
