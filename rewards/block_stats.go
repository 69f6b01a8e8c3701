// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rewards computes per-period validator and fee credits per
// spec.md §4.9. BlockStats is a direct structural port of
// original_source's rewards/block_stats.hpp (BlockStats/ValidatorStats,
// addTransaction/addVote) into Go value-receiver-friendly methods: the
// same accumulate-then-read shape, translated from private C++ members
// and HAS_RLP_FIELDS macros into plain exported Go structs.
package rewards

import (
	"math/big"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/types"
)

// ValidatorStats accumulates one validator's contribution to a period,
// mirroring original_source's rewards::BlockStats::ValidatorStats.
type ValidatorStats struct {
	// DagBlocksCount counts only DAG blocks that contributed >= 1 unique
	// transaction (first-inclusion wins); see rewards.go's ineligibility
	// rule for zero-unique-tx authors.
	DagBlocksCount uint32
	VoteWeight     uint64
	FeesReward     *big.Int
}

func newValidatorStats() *ValidatorStats {
	return &ValidatorStats{FeesReward: new(big.Int)}
}

// BlockStats accumulates reward-relevant statistics for one finalized
// period: the proposer, each DAG author's rewardable-block count, each
// cert-voter's weight, and per-transaction fee attribution.
type BlockStats struct {
	blockAuthor types.Address

	txFirstAuthor map[types.Hash]types.Address
	txFee         map[types.Hash]*big.Int

	validatorStats map[types.Address]*ValidatorStats

	totalDagBlocksCount uint32
	totalVotesWeight    uint64
	maxVotesWeight      uint64

	seenVotes map[types.Hash]struct{}
}

// NewBlockStats builds a BlockStats for the given finalized period, the
// cert-votes bundle certifying the *prior* period's block (reward
// accounting is one period delayed per spec.md §4.5), and the gas used by
// each transaction in the current period (for fee computation).
func NewBlockStats(current *types.PeriodData, priorCertVotes []*types.Vote, gasUsedByTx map[types.Hash]uint64) (*BlockStats, error) {
	bs := &BlockStats{
		blockAuthor:    current.PBFTBlock.Beneficiary,
		txFirstAuthor:  make(map[types.Hash]types.Address),
		txFee:          make(map[types.Hash]*big.Int),
		validatorStats: make(map[types.Address]*ValidatorStats),
		seenVotes:      make(map[types.Hash]struct{}),
	}
	if err := bs.processStats(current, gasUsedByTx); err != nil {
		return nil, err
	}
	for _, v := range priorCertVotes {
		bs.addVote(v)
	}
	return bs, nil
}

func (bs *BlockStats) validator(addr types.Address) *ValidatorStats {
	vs, ok := bs.validatorStats[addr]
	if !ok {
		vs = newValidatorStats()
		bs.validatorStats[addr] = vs
	}
	return vs
}

func (bs *BlockStats) processStats(current *types.PeriodData, gasUsedByTx map[types.Hash]uint64) error {
	bs.initFeeByTxHash(current.Transactions, gasUsedByTx)

	for _, block := range current.DagBlocks {
		author, err := blockAuthor(block)
		if err != nil {
			return err
		}

		contributed := false
		for _, txHash := range block.Transactions {
			if bs.addTransaction(txHash, author) {
				contributed = true
			}
		}
		if contributed {
			bs.validator(author).DagBlocksCount++
			bs.totalDagBlocksCount++
		}
	}
	return nil
}

// initFeeByTxHash prepares the fee-by-tx-hash map: gasUsed * gasPrice for
// each transaction in the period.
func (bs *BlockStats) initFeeByTxHash(txs []*types.Transaction, gasUsedByTx map[types.Hash]uint64) {
	for _, tx := range txs {
		hash := tx.Hash()
		gasUsed := gasUsedByTx[hash]
		fee := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(gasUsed))
		bs.txFee[hash] = fee
	}
}

// addTransaction maps txHash to validator on first sight and credits the
// transaction's fee to that validator. Returns true if txHash was unique.
func (bs *BlockStats) addTransaction(txHash types.Hash, validator types.Address) bool {
	if _, exists := bs.txFirstAuthor[txHash]; exists {
		return false
	}
	bs.txFirstAuthor[txHash] = validator
	if fee, ok := bs.txFee[txHash]; ok {
		bs.validator(validator).FeesReward.Add(bs.validator(validator).FeesReward, fee)
	}
	return true
}

// addVote records a unique cert-vote's weight against its signer. Returns
// true if the vote was unique.
func (bs *BlockStats) addVote(vote *types.Vote) bool {
	voteHash := vote.Hash()
	if _, exists := bs.seenVotes[voteHash]; exists {
		return false
	}
	bs.seenVotes[voteHash] = struct{}{}

	voter, ok := vote.CachedVoter()
	if !ok {
		var err error
		voter, err = crypto.RecoverAddress(vote.SigningHash(), vote.SignerSig)
		if err != nil {
			return false
		}
		vote.SetVoter(voter)
	}

	weight := vote.Weight()
	bs.validator(voter).VoteWeight += weight
	bs.totalVotesWeight += weight
	if weight > bs.maxVotesWeight {
		bs.maxVotesWeight = weight
	}
	return true
}

func blockAuthor(block *types.DAGBlock) (types.Address, error) {
	if a, ok := block.CachedAuthor(); ok {
		return a, nil
	}
	a, err := crypto.RecoverAddress(block.SigningHash(), block.AuthorSig)
	if err != nil {
		return types.Address{}, err
	}
	block.SetAuthor(a)
	return a, nil
}
