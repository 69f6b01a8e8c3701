// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pbft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
	"github.com/taraxa-go/taraxa-core/votes"
)

type fakeStake struct {
	vrfKeys map[types.Address]*vrf.PublicKey
	stakes  map[types.Address]uint64
	total   uint64
}

func newFakeStake() *fakeStake {
	return &fakeStake{vrfKeys: make(map[types.Address]*vrf.PublicKey), stakes: make(map[types.Address]uint64)}
}

func (f *fakeStake) Stake(period uint64, voter types.Address) uint64 { return f.stakes[voter] }
func (f *fakeStake) TotalStake(period uint64) uint64                 { return f.total }
func (f *fakeStake) VRFPublicKey(voter types.Address) (*vrf.PublicKey, bool) {
	k, ok := f.vrfKeys[voter]
	return k, ok
}

// alwaysElectThreshold matches the fixture's total stake of 100, forcing
// the sortition probability to exactly 1 so a fully-staked single voter
// deterministically reaches 2f+1 (67) with weight 99, the same reasoning
// used by votes_test.go's identically named helper.
func alwaysElectThreshold(step types.PBFTStep) uint64 { return 100 }

func testCfg() config.PBFT {
	return config.PBFT{Lambda: 2 * time.Second, LambdaExpCap: 8, CommitteeSize: 20}
}

func newEngineAndIdentity(t *testing.T) (*Engine, *votes.Manager, *fakeStake, *crypto.PrivateKey, *vrf.PrivateKey) {
	t.Helper()
	signKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	vrfKey, err := vrf.GenerateKey()
	require.NoError(t, err)

	stake := newFakeStake()
	stake.vrfKeys[signKey.Address()] = vrfKey.Public()
	stake.stakes[signKey.Address()] = 100
	stake.total = 100

	vm := votes.New(stake, alwaysElectThreshold)
	e := New(testCfg(), signKey, vrfKey, vm, 1)
	return e, vm, stake, signKey, vrfKey
}

func TestNewEngineStartsAtProposeStep(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	st := e.CurrentState()
	require.Equal(t, uint64(1), st.Period)
	require.Equal(t, uint32(1), st.Round)
	require.Equal(t, types.StepPropose, st.Step)
}

func TestProposeElectedWithFullStakeAndMatchingThreshold(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	prop, err := e.Propose(types.Hash{9}, types.Hash{1}, types.Hash{2}, 100, 100, 100, 100)
	require.NoError(t, err)
	require.NotNil(t, prop)
	require.Equal(t, uint64(1), prop.Block.Period)
	require.Equal(t, types.Hash{1}, prop.Block.DagBlockHash)
}

func TestProposeRejectsOutsideProposeStep(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	e.AdvanceStep()
	_, err := e.Propose(types.Hash{9}, types.Hash{1}, types.Hash{2}, 100, 100, 100, 100)
	require.Error(t, err)
}

func TestSelectProposalPicksLowestVRFOutput(t *testing.T) {
	low := &Proposal{VRFOutput: types.VRFOutput{0, 0, 1}}
	high := &Proposal{VRFOutput: types.VRFOutput{0, 1, 0}}
	best := SelectProposal([]*Proposal{high, low})
	require.Same(t, low, best)
}

func TestCertVoteRequiresSoftQuorumFirst(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	e.AdvanceStep() // soft
	e.AdvanceStep() // cert
	_, err := e.CertVote(types.Hash{1})
	require.Error(t, err)
}

func TestFullRoundReachesCertQuorumAndFinalizes(t *testing.T) {
	e, vm, stake, signKey, vrfKey := newEngineAndIdentity(t)
	blockHash := types.Hash{1}

	// soft step: cast and admit a soft vote so cert-vote's quorum check passes.
	e.AdvanceStep()
	softVote, err := e.SoftVote(blockHash)
	require.NoError(t, err)
	res, err := vm.Add(softVote)
	require.NoError(t, err)
	require.Equal(t, votes.Added, res)
	require.True(t, vm.HasTwoTPlus1(1, 1, types.StepSoftVote, blockHash))

	// cert step: cast and admit a cert vote, then finalize.
	e.AdvanceStep()
	certVote, err := e.CertVote(blockHash)
	require.NoError(t, err)
	res, err = vm.Add(certVote)
	require.NoError(t, err)
	require.Equal(t, votes.Added, res)

	finalized, ok := e.TryFinalize(blockHash)
	require.True(t, ok)
	require.Equal(t, uint64(1), finalized.Period)
	require.Equal(t, blockHash, finalized.BlockHash)

	st := e.CurrentState()
	require.Equal(t, uint64(2), st.Period)
	require.Equal(t, uint32(1), st.Round)
	require.Equal(t, types.StepPropose, st.Step)

	_ = stake
	_ = signKey
	_ = vrfKey
}

func TestNextVoteLocksOnCertValue(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	for e.CurrentState().Step < types.StepFirstFinish {
		e.AdvanceStep()
	}
	certValue := types.Hash{7}
	v, err := e.NextVote(&certValue, nil)
	require.NoError(t, err)
	require.Equal(t, certValue, v.BlockHash)
	require.NotNil(t, e.CurrentState().LockedValue)
	require.Equal(t, certValue, *e.CurrentState().LockedValue)
}

func TestNextVoteFallsBackToNullWithNoCarryOver(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	for e.CurrentState().Step < types.StepFirstFinish {
		e.AdvanceStep()
	}
	v, err := e.NextVote(nil, nil)
	require.NoError(t, err)
	require.Equal(t, types.EmptyHash, v.BlockHash)
}

func TestAdvanceRoundUnlocksOnDifferentBundleValue(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	locked := types.Hash{7}
	for e.CurrentState().Step < types.StepFirstFinish {
		e.AdvanceStep()
	}
	_, err := e.NextVote(&locked, nil)
	require.NoError(t, err)
	require.NotNil(t, e.CurrentState().LockedValue)

	e.AdvanceRound(types.EmptyHash)
	st := e.CurrentState()
	require.Nil(t, st.LockedValue)
	require.Equal(t, uint32(2), st.Round)
	require.Equal(t, types.StepPropose, st.Step)
}

func TestAdvanceRoundKeepsLockWhenBundleMatches(t *testing.T) {
	e, _, _, _, _ := newEngineAndIdentity(t)
	locked := types.Hash{7}
	for e.CurrentState().Step < types.StepFirstFinish {
		e.AdvanceStep()
	}
	_, err := e.NextVote(&locked, nil)
	require.NoError(t, err)

	e.AdvanceRound(locked)
	st := e.CurrentState()
	require.NotNil(t, st.LockedValue)
	require.Equal(t, locked, *st.LockedValue)
}
