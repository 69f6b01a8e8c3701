// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package finalizer executes the period finalizer pipeline of spec.md
// §4.8: order-hash assertion, per-transaction EVM invocation, trie root
// accumulation, reward computation, and period persistence. The EVM
// itself is an injected collaborator (out of scope per spec.md's
// Non-goals) shaped after abaderin-bsc's core/state_processor.go call
// convention `(statedb, header, tx) -> receipt`, not its contents.
package finalizer

import (
	"context"
	"math/big"

	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/rewards"
	"github.com/taraxa-go/taraxa-core/types"
)

// BlockContext is the execution context an EVM implementation needs for
// one period, per spec.md §4.8 step 3.
type BlockContext struct {
	Author    types.Address
	Timestamp uint64
	GasLimit  uint64
	Number    uint64
}

//go:generate mockgen -destination=finalizermock/evm.go -package=finalizermock github.com/taraxa-go/taraxa-core/finalizer EVM

// EVM applies a single transaction against stateRoot and returns the
// resulting state root and receipt. Implementations are expected to set
// Receipt.GasUsed; Finalize accumulates CumulativeGasUsed itself.
type EVM interface {
	Apply(stateRoot types.Hash, ctx BlockContext, tx *types.Transaction) (types.Hash, *types.Receipt, error)
}

// Store persists one finalized period's artifacts in a single atomic
// write batch, per spec.md §4.8 step 6.
type Store interface {
	PersistPeriod(header *types.BlockHeader, receipts []*types.Receipt, txs []*types.Transaction, stateRoot types.Hash, period uint64) error
}

// Result is everything Finalize produced for one period.
type Result struct {
	Header       *types.BlockHeader
	Receipts     []*types.Receipt
	StateRoot    types.Hash
	Distribution *rewards.Distribution
}

// Finalizer executes the six-step pipeline for one finalized period.
type Finalizer struct {
	evm         EVM
	trieCache   *NodeCache
	store       Store
	baseReward  *big.Int
	rewardSplit rewards.Split
}

// New constructs a Finalizer.
func New(evm EVM, trieCache *NodeCache, store Store, baseReward *big.Int, split rewards.Split) *Finalizer {
	return &Finalizer{evm: evm, trieCache: trieCache, store: store, baseReward: baseReward, rewardSplit: split}
}

// errOrderMismatch is returned when the locally recomputed order_hash
// disagrees with the one signed into period.PBFTBlock. Finalize's only
// caller, node.Apply, always calls it after confirming 2f+1 cert-vote
// weight for this exact PBFTBlock.Hash() — a hash that already commits to
// OrderHash (types.PBFTBlock.Hash's doc comment) — so this check never
// runs in the pre-quorum window spec.md §4.8 step 2 describes; it only
// ever fires once quorum has certified the very order_hash being
// rechecked. That makes the immediate symptom "this node's own DAG/
// period-set view disagrees with what the network already certified," not
// proof that the certifying quorum itself signed a bad value, so it is
// still attributed to the data's immediate source (KindMaliciousPeer)
// rather than escalated to a local KindConsistency halt.
func errOrderMismatch(got, want types.Hash) error {
	return cerr.New(cerr.KindMaliciousPeer, "finalizer: order_hash mismatch: computed %x, pbft block has %x", got[:], want[:])
}

// Finalize executes spec.md §4.8's pipeline for one period.
//
//   - orderedDagBlocks/orderedTxHashes must be in the period set's
//     canonical order (dagdb.Manager.PeriodSet's output, and its
//     first-inclusion-deduplicated transaction order).
//   - priorCertVotes is the cert-vote bundle that certified the *previous*
//     period's block, fed to the rewards engine per spec.md §4.5's one-
//     period reward delay.
func (f *Finalizer) Finalize(ctx context.Context, period *types.PeriodData, orderedDagBlocks, orderedTxHashes []types.Hash, prevStateRoot types.Hash, priorCertVotes []*types.Vote) (*Result, error) {
	orderHash := types.ComputeOrderHash(orderedDagBlocks, orderedTxHashes)
	if orderHash != period.PBFTBlock.OrderHash {
		return nil, errOrderMismatch(orderHash, period.PBFTBlock.OrderHash)
	}

	txByHash := make(map[types.Hash]*types.Transaction, len(period.Transactions))
	for _, tx := range period.Transactions {
		txByHash[tx.Hash()] = tx
	}

	blockCtx := BlockContext{
		Author:    period.PBFTBlock.Beneficiary,
		Timestamp: period.PBFTBlock.Timestamp,
		GasLimit:  0,
		Number:    period.PBFTBlock.Period,
	}

	orderedTxs := make([]*types.Transaction, 0, len(orderedTxHashes))
	receipts := make([]*types.Receipt, 0, len(orderedTxHashes))
	gasUsedByTx := make(map[types.Hash]uint64, len(orderedTxHashes))

	stateRoot := prevStateRoot
	var cumulativeGasUsed uint64
	for _, txHash := range orderedTxHashes {
		tx, ok := txByHash[txHash]
		if !ok {
			return nil, cerr.New(cerr.KindConsistency, "finalizer: ordered tx hash %x not present in period data", txHash[:])
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		newRoot, receipt, err := f.evm.Apply(stateRoot, blockCtx, tx)
		if err != nil {
			return nil, cerr.Wrap(cerr.KindConsistency, err)
		}
		stateRoot = newRoot

		cumulativeGasUsed += receipt.GasUsed
		receipt.CumulativeGasUsed = cumulativeGasUsed

		orderedTxs = append(orderedTxs, tx)
		receipts = append(receipts, receipt)
		gasUsedByTx[txHash] = receipt.GasUsed
	}

	txRoot := f.trieCache.TransactionsRoot(orderedTxs)
	receiptsRoot := f.trieCache.ReceiptsRoot(receipts)
	bloom := logBloom(receipts)

	bs, err := rewards.NewBlockStats(period, priorCertVotes, gasUsedByTx)
	if err != nil {
		return nil, err
	}
	dist := rewards.Compute(bs, f.baseReward, f.rewardSplit)

	var totalReward big.Int
	for _, credit := range dist.Credits {
		totalReward.Add(&totalReward, credit)
	}

	header := &types.BlockHeader{
		ParentHash:  period.PBFTBlock.PrevBlockHash,
		UncleHash:   types.EmptyUncleHash(),
		Coinbase:    period.PBFTBlock.Beneficiary,
		StateRoot:   stateRoot,
		TxRoot:      txRoot,
		ReceiptRoot: receiptsRoot,
		Bloom:       bloom,
		Number:      period.PBFTBlock.Period,
		GasUsed:     cumulativeGasUsed,
		Timestamp:   period.PBFTBlock.Timestamp,
	}

	if f.store != nil {
		if err := f.store.PersistPeriod(header, receipts, orderedTxs, stateRoot, period.PBFTBlock.Period); err != nil {
			return nil, cerr.Wrap(cerr.KindStorage, err)
		}
	}

	return &Result{Header: header, Receipts: receipts, StateRoot: stateRoot, Distribution: dist}, nil
}
