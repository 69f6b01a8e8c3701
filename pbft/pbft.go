// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pbft implements the per-period PBFT round/step state machine
// described in spec.md §4.5: propose, soft-vote, cert-vote, and next-vote
// steps driving a round to either finalization or round-change. Grounded
// structurally on the teacher's engine/chain/consensus_real.go (a
// mutex-guarded state struct with explicit AddBlock/ProcessVote/Finalize
// transition methods rather than an implicit goroutine loop) — the state
// machine here is driven by an external stepper (see node/) the same way
// ChainConsensus is driven by its caller, generalized from k/alpha/beta
// single-round sampling to this spec's period/round/step/lockedValue state.
package pbft

import (
	"math/rand"
	"sync"
	"time"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/sortition"
	"github.com/taraxa-go/taraxa-core/types"
	"github.com/taraxa-go/taraxa-core/votes"
)

// Proposal is a candidate PBFT block broadcast during the propose step,
// carrying the VRF ticket used to break ties among concurrent proposers.
type Proposal struct {
	Block      *types.PBFTBlock
	VRFProof   types.VRFProof
	VRFOutput  types.VRFOutput
	ProposedBy types.Address
}

// State is the PBFT engine's current position, per spec.md §4.5.
type State struct {
	Period        uint64
	Round         uint32
	Step          types.PBFTStep
	LockedValue   *types.Hash
	ProposedValue *types.Hash
}

// Finalized is emitted when a value accumulates >= 2f+1 cert votes.
type Finalized struct {
	Period    uint64
	BlockHash types.Hash
	CertVotes []*types.Vote
}

// Engine drives one period's PBFT round/step state machine. It holds no
// network I/O itself: callers feed it proposals/votes observed from peers
// and the local identity, and read back the votes/proposals it produces to
// broadcast.
type Engine struct {
	mu sync.Mutex

	state State
	cfg   config.PBFT

	signKey     *crypto.PrivateKey
	vrfKey      *vrf.PrivateKey
	beneficiary types.Address

	votes *votes.Manager
}

// New constructs an Engine for the given identity, starting at period 1,
// round 1, the propose step.
func New(cfg config.PBFT, signKey *crypto.PrivateKey, vrfKey *vrf.PrivateKey, vm *votes.Manager, startPeriod uint64) *Engine {
	return &Engine{
		state:       State{Period: startPeriod, Round: 1, Step: types.StepPropose},
		cfg:         cfg,
		signKey:     signKey,
		vrfKey:      vrfKey,
		beneficiary: signKey.Address(),
		votes:       vm,
	}
}

// CurrentState returns a copy of the engine's current state.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StepTimeout returns the nominal timeout (with additive jitter, to break
// proposer ties per spec.md §4.5) for the current step.
func (e *Engine) StepTimeout() time.Duration {
	e.mu.Lock()
	step := e.state.Step
	e.mu.Unlock()
	base := e.cfg.StepTimeout(uint32(step))
	jitter := time.Duration(rand.Int63n(int64(base) / 10))
	return base + jitter
}

// sortitionFor builds the VRF sortition ticket for the engine's current
// (period, round, step).
func (e *Engine) sortitionFor(blockHash types.Hash) (types.VRFSortition, types.VRFProof, types.VRFOutput) {
	sort := types.VRFSortition{Period: e.state.Period, Round: e.state.Round, Step: e.state.Step}
	proof, output := sortition.Prove(e.vrfKey, sort, blockHash)
	sort.VRFProof = proof
	return sort, proof, output
}

// Propose constructs and signs a new PBFT block anchored at dagAnchor, for
// broadcast as this node's step-1 proposal. Returns (nil, nil) if the VRF
// ticket did not elect this node, matching spec.md
// §4.5's "if sortition elects this node as proposer" gate — callers check
// Proposal == nil before broadcasting.
func (e *Engine) Propose(prevBlockHash, dagAnchor, orderHash types.Hash, timestamp uint64, committeeWeight, stake, totalStake uint64) (*Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Step != types.StepPropose {
		return nil, cerr.New(cerr.KindConsistency, "pbft: Propose called outside the propose step")
	}

	block := &types.PBFTBlock{
		Period:        e.state.Period,
		PrevBlockHash: prevBlockHash,
		DagBlockHash:  dagAnchor,
		OrderHash:     orderHash,
		Beneficiary:   e.beneficiary,
		Timestamp:     timestamp,
	}
	sig, err := crypto.Sign(e.signKey, block.SigningHash())
	if err != nil {
		return nil, err
	}
	block.Signature = sig

	_, proof, output := e.sortitionFor(block.Hash())
	weight := sortition.Weigh(output, stake, totalStake, committeeWeight)
	if weight == 0 {
		return nil, nil
	}
	return &Proposal{Block: block, VRFProof: proof, VRFOutput: output, ProposedBy: e.beneficiary}, nil
}

// SelectProposal picks the valid proposal with the lowest VRF output, per
// spec.md §4.5's step-2 tie-break rule.
func SelectProposal(proposals []*Proposal) *Proposal {
	var best *Proposal
	for _, p := range proposals {
		if best == nil || less(p.VRFOutput, best.VRFOutput) {
			best = p
		}
	}
	return best
}

func less(a, b types.VRFOutput) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// SoftVote casts a soft vote for blockHash: either the lowest-VRF-output
// valid proposal, or — per the carry-over rule — a value carried by a
// prior round's next-votes bundle reaching 2f+1.
func (e *Engine) SoftVote(blockHash types.Hash) (*types.Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Step != types.StepSoftVote {
		return nil, cerr.New(cerr.KindConsistency, "pbft: SoftVote called outside the soft-vote step")
	}
	return e.castVoteLocked(blockHash)
}

// CertVote casts a cert vote for blockHash once >= 2f+1 soft votes have
// accumulated for it.
func (e *Engine) CertVote(blockHash types.Hash) (*types.Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Step != types.StepCertVote {
		return nil, cerr.New(cerr.KindConsistency, "pbft: CertVote called outside the cert-vote step")
	}
	if !e.votes.HasTwoTPlus1(e.state.Period, e.state.Round, types.StepSoftVote, blockHash) {
		return nil, cerr.New(cerr.KindConsistency, "pbft: cert-vote requires 2f+1 soft votes first")
	}
	value := blockHash
	e.state.ProposedValue = &value
	return e.castVoteLocked(blockHash)
}

// NextVote casts a next-vote at the engine's current step (4+): for the
// cert value if 2f+1 cert votes were observed, else for a value carried
// over by 2f+1 next-votes from the prior step, else NULL (types.EmptyHash).
func (e *Engine) NextVote(certValue *types.Hash, priorNextVotesValue *types.Hash) (*types.Vote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Step < types.StepFirstFinish {
		return nil, cerr.New(cerr.KindConsistency, "pbft: NextVote called before the first next-vote step")
	}

	var target types.Hash
	switch {
	case certValue != nil:
		target = *certValue
		e.state.LockedValue = certValue
	case priorNextVotesValue != nil:
		target = *priorNextVotesValue
	default:
		target = types.EmptyHash
	}
	return e.castVoteLocked(target)
}

func (e *Engine) castVoteLocked(blockHash types.Hash) (*types.Vote, error) {
	sort, _, _ := e.sortitionFor(blockHash)
	v := types.NewVote(blockHash, sort)
	sig, err := crypto.Sign(e.signKey, v.SigningHash())
	if err != nil {
		return nil, err
	}
	v.SignerSig = sig
	v.SetVoter(e.beneficiary)
	return v, nil
}

// TryFinalize reports whether blockHash has reached >= 2f+1 cert-vote
// weight; if so it returns the Finalized event and advances the engine to
// the next period's propose step. Finalization is terminal for the period:
// once finalized, the engine never revisits round/step state for it.
func (e *Engine) TryFinalize(blockHash types.Hash) (*Finalized, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.votes.HasTwoTPlus1(e.state.Period, e.state.Round, types.StepCertVote, blockHash) {
		return nil, false
	}

	finalized := &Finalized{Period: e.state.Period, BlockHash: blockHash}
	e.state = State{Period: e.state.Period + 1, Round: 1, Step: types.StepPropose}
	return finalized, true
}

// AdvanceRound moves the engine to round+1 given a next-votes bundle that
// reached 2f+1 for either a concrete value or NULL, applying the safety
// rule: a locked value only unlocks on observing 2f+1 next-votes for a
// different value, or for NULL, from a later round.
func (e *Engine) AdvanceRound(bundleValue types.Hash) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.LockedValue != nil && *e.state.LockedValue != bundleValue {
		e.state.LockedValue = nil
	}
	e.state.Round++
	e.state.Step = types.StepPropose
	e.state.ProposedValue = nil
}

// CatchUpTo fast-forwards the engine to the propose step of period+1,
// discarding any in-progress round/step/lock state for the period just
// applied. Used by node/ when a period is committed via the PBFT sync
// flow (spec.md §4.10) rather than through this engine's own
// propose/soft/cert/next-vote sequence; a no-op if the engine is already
// at or past that period.
func (e *Engine) CatchUpTo(period uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Period > period {
		return
	}
	e.state = State{Period: period + 1, Round: 1, Step: types.StepPropose}
}

// AdvanceStep moves from the current step to the next one within the same
// round (propose -> soft -> cert -> first-next-vote -> second-next-vote ->
// ...), used when a step's deadline passes without the condition for the
// next distinguished step (quorum, proposal receipt) being met yet.
func (e *Engine) AdvanceStep() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Step++
}
