// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// PeriodData bundles everything the finalizer needs to execute and commit
// one period atomically: the pivot-chain block, its ordered DAG block set,
// the transactions those blocks carry, and the cert-votes certifying it. Grounded on the original implementation's PeriodData struct
// (original_source/libraries/core_libs/consensus/include/final_chain/data.hpp),
// which carries this same bundle shape across the finalize boundary.
type PeriodData struct {
	PBFTBlock    *PBFTBlock
	DagBlocks    []*DAGBlock
	Transactions []*Transaction
	CertVotes    []*Vote

	// BonusVotesCount is a reserved field preserved from the original
	// implementation's wire format (additional reward-eligible next-votes
	// beyond the 2f+1 certifying threshold). Not yet assigned semantics by
	// spec.md; carried through so the on-disk/wire encoding stays forward
	// compatible with a future reward-eligibility rule.
	BonusVotesCount uint32
}

// DagBlockHashes returns the hashes of DagBlocks in their stored order.
func (p *PeriodData) DagBlockHashes() []Hash {
	out := make([]Hash, len(p.DagBlocks))
	for i, b := range p.DagBlocks {
		out[i] = b.Hash()
	}
	return out
}

// TransactionCount returns the total number of transactions across the
// period's DAG blocks.
func (p *PeriodData) TransactionCount() int { return len(p.Transactions) }
