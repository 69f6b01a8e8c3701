// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
	"sync"
)

// Account is the EVM-compatible state-trie leaf value for an address:
// nonce, balance, and (for contracts) code/storage trie roots.
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot Hash
	CodeHash    Hash
}

var (
	emptyCodeHashOnce sync.Once
	emptyCodeHash     Hash
)

// EmptyCodeHash is the Keccak-256 hash of the empty byte string, the
// CodeHash of every externally-owned (non-contract) account. Computed
// lazily (rather than as a package-level var) because types initializes
// before crypto registers the hasher via SetHasher.
func EmptyCodeHash() Hash {
	emptyCodeHashOnce.Do(func() { emptyCodeHash = Keccak256(nil) })
	return emptyCodeHash
}

// NewAccount returns a fresh externally-owned account with zero balance.
func NewAccount() *Account {
	return &Account{
		Balance:     new(big.Int),
		StorageRoot: EmptyHash,
		CodeHash:    EmptyCodeHash(),
	}
}

// IsContract reports whether the account has deployed code.
func (a *Account) IsContract() bool { return a.CodeHash != EmptyCodeHash() }

// ValidatorStats accumulates a single validator's contribution within one
// finalized period, the basis for reward distribution per spec.md §4.9.
type ValidatorStats struct {
	Address           Address
	DagBlocksAuthored uint32
	VotesCast         uint32
	VoteWeight        uint64
	WasProposer       bool
}
