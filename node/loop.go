// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"sync"
	"time"

	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/pbft"
	"github.com/taraxa-go/taraxa-core/types"
)

// tickInterval is how often the step loop re-checks whether the current
// step's condition (a proposal present, 2f+1 reached, the step's deadline
// passed) has changed. It is unrelated to StepTimeout, which governs when a
// step gives up waiting and advances.
const tickInterval = 20 * time.Millisecond

// dagProposeInterval paces this node's own DAG block production,
// independent of the PBFT period/round/step cycle, per spec.md §4.4's "DAG
// blocks are proposed continuously".
const dagProposeInterval = 500 * time.Millisecond

// roundCache tracks the per-(period,round) state the step loop accumulates
// locally: the proposal this node put forward (proposal exchange across
// peers rides the same votes.Manager quorum checks below but this package
// does not itself model a wire proposal-broadcast packet), the value
// carried into cert/next-vote steps, and when the current step began.
type roundCache struct {
	mu sync.Mutex

	period uint64
	round  uint32
	step   types.PBFTStep

	stepStart time.Time

	proposal       *pbft.Proposal
	certValue      *types.Hash
	nextCarryValue *types.Hash
	votedThisStep  bool

	// pendingCarry holds the value a just-closed round's 2f+1 next-votes
	// bundle settled on, surviving the period/round-change reset below so
	// the new round's soft/cert-vote steps see it as nextCarryValue per
	// spec.md §4.5's carry-over rule.
	pendingCarry *types.Hash
}

// Start launches the gossip dispatcher, the DAG proposer, and the PBFT step
// loop as background workers and returns immediately; call Stop to shut
// them down. Starting an already-running node is an error.
func (n *Node) Start(ctx context.Context) error {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if n.runCancel != nil {
		return cerr.New(cerr.KindConsistency, "node: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.runCancel = cancel

	n.dispatcher.Start()
	n.runWG.Add(2)
	go func() { defer n.runWG.Done(); n.runDagProposer(runCtx) }()
	go func() { defer n.runWG.Done(); n.runPBFTLoop(runCtx) }()
	return nil
}

// Stop signals the background workers to exit and waits for them, bounded
// by ctx's deadline, then stops the dispatcher. The workers' context is
// cancelled at once, so no new DAG/PBFT work starts and a VDF solve in
// progress ends at its next ctx check; the dispatcher finishes the packets
// its workers hold but does not drain its queues, and it keeps accepting
// Enqueue calls. If ctx expires first, Stop returns ctx's error without
// stopping the dispatcher.
func (n *Node) Stop(ctx context.Context) error {
	n.runMu.Lock()
	cancel := n.runCancel
	n.runCancel = nil
	n.runMu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() { n.runWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	n.dispatcher.Stop()
	return nil
}

// runDagProposer periodically attempts to mine and insert a new DAG block.
// A proposal attempt that doesn't solve or insert (e.g. no tips yet) is
// silently retried on the next tick; solve failures from VDF difficulty
// being momentarily unreachable are not distinguished from "nothing to
// propose yet" here since both just mean "try again next tick".
func (n *Node) runDagProposer(ctx context.Context) {
	ticker := time.NewTicker(dagProposeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.proposeDagBlock(ctx); err != nil {
				n.log.Debug("dag block proposal failed", "err", err)
			}
		}
	}
}

// runPBFTLoop drives the per-period round/step state machine described in
// spec.md §4.5 until ctx is cancelled.
func (n *Node) runPBFTLoop(ctx context.Context) {
	rc := &roundCache{}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.pbftTick(ctx, rc)
		}
	}
}

// pbftTick advances the engine by at most one observable action: syncing
// rc to the engine's current (period, round, step), attempting that step's
// action once, and — if the step's deadline has passed without the
// distinguished condition for the next step being met — moving the engine
// on (AdvanceStep within a round, AdvanceRound via any 2f+1 next-votes
// bundle observed).
func (n *Node) pbftTick(ctx context.Context, rc *roundCache) {
	st := n.pbftEngine.CurrentState()

	rc.mu.Lock()
	if rc.period != st.Period || rc.round != st.Round {
		rc.period, rc.round = st.Period, st.Round
		rc.proposal, rc.certValue = nil, nil
		rc.nextCarryValue, rc.pendingCarry = rc.pendingCarry, nil
	}
	if rc.step != st.Step {
		rc.step = st.Step
		rc.stepStart = time.Now()
		rc.votedThisStep = false
	}
	stepStart := rc.stepStart
	rc.mu.Unlock()

	switch st.Step {
	case types.StepPropose:
		n.tickPropose(ctx, rc)
	case types.StepSoftVote:
		n.tickSoftVote(rc)
	case types.StepCertVote:
		n.tickCertVote(st, rc)
	default:
		n.tickNextVote(st, rc)
	}

	candidate := n.candidateHash(rc)
	if finalized, ok := n.pbftEngine.TryFinalize(candidate); ok {
		finalized.CertVotes = n.voteMgr.VotesFor(st.Period, st.Round, types.StepCertVote, candidate)
		n.finalizeLocally(finalized, rc)
		return
	}

	if time.Since(stepStart) < n.pbftEngine.StepTimeout() {
		return
	}
	if bundle, ok := n.voteMgr.NextVotesBundle(st.Period, st.Round); ok {
		value := bundle.Votes[0].BlockHash
		n.pbftEngine.AdvanceRound(value)
		rc.mu.Lock()
		rc.pendingCarry = &value
		rc.mu.Unlock()
		return
	}
	n.pbftEngine.AdvanceStep()
}

// candidateHash is the block hash this round is converging on: the
// cert-voted value once set, else the proposal's block hash, else the
// null (empty) hash, matching TryFinalize's "value with >= 2f+1 cert
// votes" check regardless of which path produced that value.
func (n *Node) candidateHash(rc *roundCache) types.Hash {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.certValue != nil {
		return *rc.certValue
	}
	if rc.proposal != nil {
		return rc.proposal.Block.Hash()
	}
	return types.EmptyHash
}

func (n *Node) tickPropose(ctx context.Context, rc *roundCache) {
	rc.mu.Lock()
	already := rc.votedThisStep
	rc.mu.Unlock()
	if already {
		return
	}
	proposal, err := n.proposePBFTBlock(ctx)
	if err != nil || proposal == nil {
		return
	}
	rc.mu.Lock()
	rc.proposal = proposal
	rc.votedThisStep = true
	rc.mu.Unlock()
}

func (n *Node) tickSoftVote(rc *roundCache) {
	rc.mu.Lock()
	already := rc.votedThisStep
	proposal := rc.proposal
	carry := rc.nextCarryValue
	rc.mu.Unlock()
	if already {
		return
	}

	var target types.Hash
	switch {
	case proposal != nil:
		target = proposal.Block.Hash()
	case carry != nil:
		target = *carry
	default:
		return
	}
	vote, err := n.pbftEngine.SoftVote(target)
	if err != nil || vote == nil {
		return
	}
	n.voteMgr.Add(vote)
	rc.mu.Lock()
	rc.votedThisStep = true
	rc.mu.Unlock()
}

func (n *Node) tickCertVote(st pbft.State, rc *roundCache) {
	rc.mu.Lock()
	already := rc.votedThisStep
	proposal := rc.proposal
	carry := rc.nextCarryValue
	rc.mu.Unlock()
	if already {
		return
	}

	var target types.Hash
	switch {
	case proposal != nil:
		target = proposal.Block.Hash()
	case carry != nil:
		target = *carry
	default:
		return
	}
	if !n.voteMgr.HasTwoTPlus1(st.Period, st.Round, types.StepSoftVote, target) {
		return
	}
	vote, err := n.pbftEngine.CertVote(target)
	if err != nil || vote == nil {
		return
	}
	n.voteMgr.Add(vote)
	rc.mu.Lock()
	v := target
	rc.certValue = &v
	rc.votedThisStep = true
	rc.mu.Unlock()
}

func (n *Node) tickNextVote(st pbft.State, rc *roundCache) {
	rc.mu.Lock()
	already := rc.votedThisStep
	certValue := rc.certValue
	carry := rc.nextCarryValue
	rc.mu.Unlock()
	if already {
		return
	}

	var certForVote *types.Hash
	if certValue != nil && n.voteMgr.HasTwoTPlus1(st.Period, st.Round, types.StepCertVote, *certValue) {
		certForVote = certValue
	}
	vote, err := n.pbftEngine.NextVote(certForVote, carry)
	if err != nil || vote == nil {
		return
	}
	n.voteMgr.Add(vote)
	rc.mu.Lock()
	rc.votedThisStep = true
	rc.mu.Unlock()
}

// finalizeLocally assembles the PeriodData for a value this node's own
// engine observed reach 2f+1 cert votes, and runs it through Apply, the
// same pipeline a PbftSyncPacket drives for a peer's already-finalized
// period. Only a round this node itself proposed in can be finalized here,
// since the concrete PBFTBlock body for a peer's winning proposal is not
// held locally without a wire proposal-broadcast channel (spec.md's fixed
// ten-packet-type taxonomy has none); a peer-won round instead reaches this
// node later through Apply via its own PbftSyncPacket catch-up.
func (n *Node) finalizeLocally(f *pbft.Finalized, rc *roundCache) {
	rc.mu.Lock()
	proposal := rc.proposal
	rc.mu.Unlock()
	if proposal == nil || proposal.Block.Hash() != f.BlockHash {
		return
	}
	block := proposal.Block

	// Preview only: the committing PeriodSet call happens once, inside
	// Apply, so the inPeriod bookkeeping advances exactly once per period
	// regardless of how many times this node re-derives the same ordering
	// while assembling the PeriodData below.
	orderedDagBlocks, err := n.dag.PreviewPeriodSet(context.Background(), block.DagBlockHash)
	if err != nil {
		return
	}
	dagBlocks := make([]*types.DAGBlock, 0, len(orderedDagBlocks))
	txs := make([]*types.Transaction, 0)
	for _, h := range orderedDagBlocks {
		b, ok := n.dag.Block(h)
		if !ok {
			continue
		}
		dagBlocks = append(dagBlocks, b)
		for _, txHash := range b.Transactions {
			if tx, ok := n.pool.Get(txHash); ok {
				txs = append(txs, tx)
			}
		}
	}

	pd := &types.PeriodData{
		PBFTBlock:    block,
		DagBlocks:    dagBlocks,
		Transactions: txs,
		CertVotes:    f.CertVotes,
	}
	if err := n.Apply(pd); err != nil {
		n.log.Debug("local finalization apply failed", "period", f.Period, "err", err)
	}
}
