// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"sort"
	"time"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vdf"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/dagdb"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/pbft"
	"github.com/taraxa-go/taraxa-core/sortition"
	"github.com/taraxa-go/taraxa-core/types"
)

// maxDagBlockTransactions bounds how many pool transactions a single DAG
// block proposal carries, leaving the rest for later blocks.
const maxDagBlockTransactions = 1000

// vdfProofWidth is the fixed per-component byte width DAGBlock.VDFProof is
// packed at: the Wesolowski modulus is RSA-2048, so both Y and Pi fit in
// 256 bytes, and padding both to that width lets dagdb.Manager.Insert's
// split-in-half decode recover them regardless of each value's natural
// (leading-zero-stripped) big.Int encoding length.
const vdfProofWidth = 256

// proposeDagBlock builds, solves the VDF for, signs, and inserts a new DAG
// block extending the heaviest current tip, per spec.md §4.4/§4.7. It
// returns (nil, nil) only if the DAG reports no tips; on a brand new chain
// the only tip is genesis, which it extends.
func (n *Node) proposeDagBlock(ctx context.Context) (*types.DAGBlock, error) {
	tips := n.dag.Tips()
	if len(tips) == 0 {
		return nil, nil
	}
	pivot, extraTips := n.choosePivot(tips)
	level := n.levelOf(pivot) + 1

	periodHash := n.periodHashOf(pivot)
	vrfMsg := types.Keccak256(pivot[:], periodKey(level))
	vrfProof := n.identity.VRF.Prove(vrfMsg[:])
	vrfOutput, err := vrf.Output(vrfProof)
	if err != nil {
		return nil, cerr.Wrap(cerr.KindConsistency, err)
	}

	gate := sortition.NewDifficultyGate(n.cfg.VDF)
	difficulty := gate.Difficulty(n.growth.staleness(), vrfOutput)
	challenge := dagdb.VDFChallenge(level, periodHash)
	proof, err := vdf.Solve(ctx, challenge, difficulty)
	if err != nil {
		return nil, err
	}

	pending := n.pool.Top(maxDagBlockTransactions)
	txHashes := make([]types.Hash, len(pending))
	for i, tx := range pending {
		txHashes[i] = tx.Hash()
	}

	block := &types.DAGBlock{
		Pivot:        pivot,
		Tips:         extraTips,
		Level:        level,
		Timestamp:    uint64(time.Now().Unix()),
		VDFProof:     append(padLeft(proof.Y, vdfProofWidth), padLeft(proof.Pi, vdfProofWidth)...),
		VRFProof:     vrfProof,
		Transactions: txHashes,
	}
	sig, err := crypto.Sign(n.identity.Sign, block.Hash())
	if err != nil {
		return nil, err
	}
	block.AuthorSig = sig

	if err := n.DAG().Insert(block, n.identity.Sign.PublicKey()); err != nil {
		return nil, err
	}
	return block, nil
}

// choosePivot selects the tip with the greatest level as the new block's
// pivot parent (extending the heaviest known chain), with the rest of the
// known tips, in ascending hash order, kept on as its extra parents.
func (n *Node) choosePivot(tips []types.Hash) (types.Hash, []types.Hash) {
	sorted := append([]types.Hash(nil), tips...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	best := sorted[0]
	bestLevel := n.levelOf(best)
	for _, t := range sorted[1:] {
		if lvl := n.levelOf(t); lvl > bestLevel {
			best, bestLevel = t, lvl
		}
	}
	rest := make([]types.Hash, 0, len(sorted)-1)
	for _, t := range sorted {
		if t != best {
			rest = append(rest, t)
		}
	}
	return best, rest
}

// levelOf returns a known block's DAG level, or 0 for the genesis hash or
// an unknown hash.
func (n *Node) levelOf(h types.Hash) uint64 {
	if h == n.genesis.Hash {
		return 0
	}
	if b, ok := n.dag.Block(h); ok {
		return b.Level
	}
	return 0
}

// padLeft zero-pads b on the left to width bytes; b is returned unchanged
// if it is already that length or longer.
func padLeft(b []byte, width int) []byte {
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

// dagAnchor picks the current pivot-chain tip a new PBFT block proposal
// anchors its period to, per spec.md §4.5 — the GHOST-capped deepest block
// PivotChain already resolves to, or genesis before any DAG block exists.
func (n *Node) dagAnchor() types.Hash {
	chain := n.dag.PivotChain()
	if len(chain) == 0 {
		return n.genesis.Hash
	}
	return chain[len(chain)-1]
}

// proposeCommitteeWeight is the expected-committee-size threshold the
// propose step's VRF sortition is weighed against. Unlike soft/cert/next
// votes, spec.md's sortition thresholds are not broken out per step for
// the propose step itself; CommitteeSize is the natural stand-in, since
// sortition.Weigh treats its threshold argument as the expected sample
// count out of the full stake-weighted validator set.
func (n *Node) proposeCommitteeWeight() uint64 { return uint64(n.cfg.PBFT.CommitteeSize) }

// proposePBFTBlock attempts this node's step-1 proposal for the engine's
// current period, returning (nil, nil) if this node's VRF ticket did not
// win proposer selection for the round.
func (n *Node) proposePBFTBlock(ctx context.Context) (*pbft.Proposal, error) {
	st := n.pbftEngine.CurrentState()

	n.mu.RLock()
	prevHash := n.periodAnchor[st.Period]
	n.mu.RUnlock()

	anchor := n.dagAnchor()
	orderedDagBlocks, err := n.dag.PreviewPeriodSet(ctx, anchor)
	if err != nil {
		return nil, err
	}
	orderedTxHashes, err := n.orderedTxHashesFor(orderedDagBlocks)
	if err != nil {
		return nil, err
	}
	orderHash := types.ComputeOrderHash(orderedDagBlocks, orderedTxHashes)

	beneficiary := n.identity.Sign.Address()
	stake := n.stakeView.Stake(st.Period, beneficiary)
	total := n.stakeView.TotalStake(st.Period)

	return n.pbftEngine.Propose(prevHash, anchor, orderHash, uint64(time.Now().Unix()), n.proposeCommitteeWeight(), stake, total)
}
