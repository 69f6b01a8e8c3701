// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"

	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/types"
)

// Apply implements packet.PeriodApplier, the six-step pipeline of
// spec.md §4.8 driven either by the local PBFT engine reaching its own
// 2f+1 cert-vote quorum, or by a PbftSyncPacket catching this node up to
// a peer's chain. Both paths converge here so state-root determinism
// (spec.md §8's "after both finalize period p, their state_root for p is
// equal") does not depend on which path produced the PeriodData.
func (n *Node) Apply(pd *types.PeriodData) error {
	if pd == nil || pd.PBFTBlock == nil {
		return cerr.New(cerr.KindMaliciousPeer, "node: empty period data")
	}

	n.mu.RLock()
	expected := n.nextPeriod
	prevStateRoot := n.stateRoot
	priorCertVotes := n.certVotesByPeriod[pd.PBFTBlock.Period-1]
	n.mu.RUnlock()

	if pd.PBFTBlock.Period != expected {
		return cerr.New(cerr.KindTransientPeer, "node: period %d applied out of order, expected %d", pd.PBFTBlock.Period, expected)
	}
	if len(pd.CertVotes) == 0 {
		return cerr.New(cerr.KindMaliciousPeer, "node: period %d carries no cert votes", pd.PBFTBlock.Period)
	}

	blockHash := pd.PBFTBlock.Hash()
	round := pd.CertVotes[0].Sortition.Round
	if !n.voteMgr.HasTwoTPlus1(pd.PBFTBlock.Period, round, types.StepCertVote, blockHash) {
		return cerr.New(cerr.KindMaliciousPeer, "node: period %d lacks 2f+1 cert-vote weight for its block", pd.PBFTBlock.Period)
	}

	ctx := context.Background()
	orderedDagBlocks, err := n.dag.PeriodSet(ctx, pd.PBFTBlock.DagBlockHash)
	if err != nil {
		return cerr.Wrap(cerr.KindConsistency, err)
	}
	orderedTxHashes, err := n.orderedTxHashesFor(orderedDagBlocks)
	if err != nil {
		return err
	}

	result, err := n.final.Finalize(ctx, pd, orderedDagBlocks, orderedTxHashes, prevStateRoot, priorCertVotes)
	if err != nil {
		return err
	}

	for addr, amount := range result.Distribution.Credits {
		n.ledger.Credit(addr, amount)
	}
	for _, tx := range pd.Transactions {
		n.pool.Remove(tx.Hash())
	}

	n.mu.Lock()
	n.stateRoot = result.StateRoot
	n.headers[pd.PBFTBlock.Period] = result.Header
	n.periodAnchor[pd.PBFTBlock.Period+1] = blockHash
	n.certVotesByPeriod[pd.PBFTBlock.Period] = pd.CertVotes
	n.nextPeriod = pd.PBFTBlock.Period + 1
	n.mu.Unlock()

	if n.m != nil {
		n.m.PeriodsFinalized.Inc()
	}
	n.pbftEngine.CatchUpTo(pd.PBFTBlock.Period)
	return nil
}

// orderedTxHashesFor gathers the concatenated, first-inclusion-deduped
// transaction hash order across orderedDagBlocks, per spec.md §4.8 step 1.
func (n *Node) orderedTxHashesFor(orderedDagBlocks []types.Hash) ([]types.Hash, error) {
	seen := make(map[types.Hash]struct{})
	out := make([]types.Hash, 0, len(orderedDagBlocks))
	for _, h := range orderedDagBlocks {
		block, ok := n.dag.Block(h)
		if !ok {
			return nil, cerr.New(cerr.KindConsistency, "node: period-set dag block %x missing from dag store", h[:])
		}
		for _, txHash := range block.Transactions {
			if _, dup := seen[txHash]; dup {
				continue
			}
			seen[txHash] = struct{}{}
			out = append(out, txHash)
		}
	}
	return out, nil
}

// Header returns the finalized block header for period, if committed.
func (n *Node) Header(period uint64) (*types.BlockHeader, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.headers[period]
	return h, ok
}

// StateRoot returns the latest committed state root.
func (n *Node) StateRoot() types.Hash {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stateRoot
}
