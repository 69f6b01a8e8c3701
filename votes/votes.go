// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package votes verifies, deduplicates, and tallies PBFT votes per
// spec.md §4.6. Generalized from the teacher's quorum/threshold family
// (quorum/static.go's response-counting map, threshold/threshold.go's
// weight-accumulation shape) from a single flat tally into one bucketed
// by (period, round, step, voted_hash), sharded by (period, round) so
// concurrent steps within different rounds never contend on the same
// lock, per SPEC_FULL.md's concurrency model.
package votes

import (
	"sync"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/sortition"
	"github.com/taraxa-go/taraxa-core/types"
)

// AddResult is the outcome of Add.
type AddResult uint8

const (
	Added AddResult = iota
	Duplicate
	Invalid
)

// StakeQuery resolves the DPOS stake snapshot a vote is validated against,
// taken at period - delegation_delay per spec.md §4.6.
type StakeQuery interface {
	Stake(period uint64, voter types.Address) uint64
	TotalStake(period uint64) uint64
	VRFPublicKey(voter types.Address) (*vrf.PublicKey, bool)
}

// ThresholdFunc resolves the step-specific sortition threshold τ_s.
type ThresholdFunc func(step types.PBFTStep) uint64

type roundKey struct {
	period uint64
	round  uint32
}

type voteKey struct {
	step      types.PBFTStep
	blockHash types.Hash
}

type round struct {
	mu sync.Mutex
	// byVoteHash dedupes by the vote's own content hash.
	byVoteHash map[types.Hash]*types.Vote
	// buckets groups validated votes by (step, blockHash) for weight tally.
	buckets map[voteKey][]*types.Vote
	// voterSeen detects equivocation: same voter, same (step) voting for two
	// different block hashes.
	voterSeen map[types.PBFTStep]map[types.Address]types.Hash
}

func newRound() *round {
	return &round{
		byVoteHash: make(map[types.Hash]*types.Vote),
		buckets:    make(map[voteKey][]*types.Vote),
		voterSeen:  make(map[types.PBFTStep]map[types.Address]types.Hash),
	}
}

// Equivocation records a detected double-vote by the same voter within one
// (period, round, step).
type Equivocation struct {
	Voter  types.Address
	Period uint64
	Round  uint32
	Step   types.PBFTStep
	First  types.Hash
	Second types.Hash
}

// Manager verifies, dedupes, and tallies votes across rounds.
type Manager struct {
	mu     sync.RWMutex
	rounds map[roundKey]*round

	stake     StakeQuery
	threshold ThresholdFunc

	equivMu sync.Mutex
	equivs  []Equivocation
}

// New constructs a Manager.
func New(stake StakeQuery, threshold ThresholdFunc) *Manager {
	return &Manager{
		rounds:    make(map[roundKey]*round),
		stake:     stake,
		threshold: threshold,
	}
}

func (m *Manager) roundFor(period uint64, r uint32) *round {
	key := roundKey{period: period, round: r}

	m.mu.RLock()
	rd, ok := m.rounds[key]
	m.mu.RUnlock()
	if ok {
		return rd
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rd, ok := m.rounds[key]; ok {
		return rd
	}
	rd = newRound()
	m.rounds[key] = rd
	return rd
}

// Add verifies and admits vote, or reports why it was rejected.
func (m *Manager) Add(vote *types.Vote) (AddResult, error) {
	voteHash := vote.Hash()
	sortitionPeriod := vote.Sortition.Period

	voter, ok := vote.CachedVoter()
	if !ok {
		pub, err := crypto.Recover(vote.SigningHash(), vote.SignerSig)
		if err != nil {
			return Invalid, err
		}
		voter = crypto.PubkeyToAddress(pub)
		vote.SetVoter(voter)
	}

	vrfPub, ok := m.stake.VRFPublicKey(voter)
	if !ok {
		return Invalid, errInvalidVoter(voter)
	}
	stake := m.stake.Stake(sortitionPeriod, voter)
	if stake == 0 {
		return Invalid, errNoStake(voter)
	}
	totalStake := m.stake.TotalStake(sortitionPeriod)
	threshold := m.threshold(vote.Sortition.Step)

	weight, err := sortition.VerifyAndWeigh(vrfPub, vote.Sortition.VRFProof, vote.Sortition, vote.BlockHash, stake, totalStake, threshold)
	if err != nil {
		return Invalid, err
	}
	if weight == 0 {
		return Invalid, errNotElected(voter)
	}
	vote.SetWeight(weight)

	rd := m.roundFor(vote.Sortition.Period, vote.Sortition.Round)
	rd.mu.Lock()
	defer rd.mu.Unlock()

	if _, exists := rd.byVoteHash[voteHash]; exists {
		return Duplicate, nil
	}

	if seen, ok := rd.voterSeen[vote.Sortition.Step]; ok {
		if prior, ok := seen[voter]; ok && prior != vote.BlockHash {
			m.recordEquivocation(Equivocation{
				Voter:  voter,
				Period: vote.Sortition.Period,
				Round:  vote.Sortition.Round,
				Step:   vote.Sortition.Step,
				First:  prior,
				Second: vote.BlockHash,
			})
		}
	} else {
		rd.voterSeen[vote.Sortition.Step] = make(map[types.Address]types.Hash)
	}
	rd.voterSeen[vote.Sortition.Step][voter] = vote.BlockHash

	rd.byVoteHash[voteHash] = vote
	key := voteKey{step: vote.Sortition.Step, blockHash: vote.BlockHash}
	rd.buckets[key] = append(rd.buckets[key], vote)
	return Added, nil
}

func (m *Manager) recordEquivocation(e Equivocation) {
	m.equivMu.Lock()
	defer m.equivMu.Unlock()
	m.equivs = append(m.equivs, e)
}

// Equivocations drains and returns all equivocations recorded so far.
func (m *Manager) Equivocations() []Equivocation {
	m.equivMu.Lock()
	defer m.equivMu.Unlock()
	out := m.equivs
	m.equivs = nil
	return out
}

// Weight returns the sum of validated weights for (period, round, step,
// votedHash).
func (m *Manager) Weight(period uint64, r uint32, step types.PBFTStep, votedHash types.Hash) uint64 {
	rd := m.roundFor(period, r)
	rd.mu.Lock()
	defer rd.mu.Unlock()
	var total uint64
	for _, v := range rd.buckets[voteKey{step: step, blockHash: votedHash}] {
		total += v.Weight()
	}
	return total
}

// VotesFor returns a copy of the validated votes accumulated for (period,
// round, step, votedHash), for a caller (node/'s finalization path) that
// needs the concrete vote set once quorum is reached, not just its weight.
func (m *Manager) VotesFor(period uint64, r uint32, step types.PBFTStep, votedHash types.Hash) []*types.Vote {
	rd := m.roundFor(period, r)
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return append([]*types.Vote(nil), rd.buckets[voteKey{step: step, blockHash: votedHash}]...)
}

// HasTwoTPlus1 reports whether (period, round, step, votedHash) has
// accumulated at least the 2f+1 threshold for that step.
func (m *Manager) HasTwoTPlus1(period uint64, r uint32, step types.PBFTStep, votedHash types.Hash) bool {
	committee := m.threshold(step)
	quorum := sortition.TwoFPlusOne(committee)
	return m.Weight(period, r, step, votedHash) >= quorum
}

// NextVotesBundle returns the set of next-votes for (period, round) that
// together reach 2f+1 weight on a single value, if present.
func (m *Manager) NextVotesBundle(period uint64, r uint32) (types.VoteBundle, bool) {
	rd := m.roundFor(period, r)
	rd.mu.Lock()
	defer rd.mu.Unlock()

	quorum := sortition.TwoFPlusOne(m.threshold(types.StepFirstFinish))
	for key, votes := range rd.buckets {
		if key.step < types.StepFirstFinish {
			continue
		}
		var total uint64
		for _, v := range votes {
			total += v.Weight()
		}
		if total >= quorum {
			return types.VoteBundle{Votes: append([]*types.Vote(nil), votes...)}, true
		}
	}
	return types.VoteBundle{}, false
}
