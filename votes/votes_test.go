// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
)

type fakeStake struct {
	vrfKeys map[types.Address]*vrf.PublicKey
	stakes  map[types.Address]uint64
	total   uint64
}

func newFakeStake() *fakeStake {
	return &fakeStake{
		vrfKeys: make(map[types.Address]*vrf.PublicKey),
		stakes:  make(map[types.Address]uint64),
	}
}

func (f *fakeStake) Stake(period uint64, voter types.Address) uint64 { return f.stakes[voter] }
func (f *fakeStake) TotalStake(period uint64) uint64                 { return f.total }
func (f *fakeStake) VRFPublicKey(voter types.Address) (*vrf.PublicKey, bool) {
	k, ok := f.vrfKeys[voter]
	return k, ok
}

// alwaysElectThreshold returns a threshold equal to the fixture total stake
// (100 in every test below), forcing the binomial sortition probability to
// exactly 1 so Weigh deterministically awards weight = stake-1 regardless
// of the VRF output's actual bit pattern, and 2f+1 of that same threshold
// (67) is comfortably below a single fully-staked voter's weight (99) so
// quorum is reached deterministically too.
func alwaysElectThreshold(step types.PBFTStep) uint64 { return 100 }

type votingIdentity struct {
	signKey *crypto.PrivateKey
	vrfKey  *vrf.PrivateKey
	addr    types.Address
}

func newVotingIdentity(t *testing.T) votingIdentity {
	t.Helper()
	signKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	vrfKey, err := vrf.GenerateKey()
	require.NoError(t, err)
	return votingIdentity{signKey: signKey, vrfKey: vrfKey, addr: signKey.Address()}
}

func castVote(t *testing.T, id votingIdentity, blockHash types.Hash, sort types.VRFSortition) *types.Vote {
	t.Helper()
	msg := sort.Message(blockHash)
	proof := id.vrfKey.Prove(msg[:])
	sort.VRFProof = proof

	v := types.NewVote(blockHash, sort)
	sig, err := crypto.Sign(id.signKey, v.SigningHash())
	require.NoError(t, err)
	v.SignerSig = sig
	return v
}

func TestAddValidVoteAccumulatesWeight(t *testing.T) {
	id := newVotingIdentity(t)
	stake := newFakeStake()
	stake.vrfKeys[id.addr] = id.vrfKey.Public()
	stake.stakes[id.addr] = 100
	stake.total = 100

	m := New(stake, alwaysElectThreshold)
	blockHash := types.Hash{1}
	sort := types.VRFSortition{Period: 1, Round: 1, Step: types.StepSoftVote}
	v := castVote(t, id, blockHash, sort)

	res, err := m.Add(v)
	require.NoError(t, err)
	require.Equal(t, Added, res)
	require.Greater(t, m.Weight(1, 1, types.StepSoftVote, blockHash), uint64(0))
}

func TestAddDuplicateVote(t *testing.T) {
	id := newVotingIdentity(t)
	stake := newFakeStake()
	stake.vrfKeys[id.addr] = id.vrfKey.Public()
	stake.stakes[id.addr] = 100
	stake.total = 100

	m := New(stake, alwaysElectThreshold)
	blockHash := types.Hash{1}
	sort := types.VRFSortition{Period: 1, Round: 1, Step: types.StepSoftVote}
	v := castVote(t, id, blockHash, sort)

	_, err := m.Add(v)
	require.NoError(t, err)
	res, err := m.Add(v)
	require.NoError(t, err)
	require.Equal(t, Duplicate, res)
}

func TestAddRejectsUnknownVoter(t *testing.T) {
	id := newVotingIdentity(t)
	stake := newFakeStake()

	m := New(stake, alwaysElectThreshold)
	blockHash := types.Hash{1}
	sort := types.VRFSortition{Period: 1, Round: 1, Step: types.StepSoftVote}
	v := castVote(t, id, blockHash, sort)

	res, err := m.Add(v)
	require.Error(t, err)
	require.Equal(t, Invalid, res)
}

func TestEquivocationDetected(t *testing.T) {
	id := newVotingIdentity(t)
	stake := newFakeStake()
	stake.vrfKeys[id.addr] = id.vrfKey.Public()
	stake.stakes[id.addr] = 100
	stake.total = 100

	m := New(stake, alwaysElectThreshold)
	sort := types.VRFSortition{Period: 1, Round: 1, Step: types.StepSoftVote}

	v1 := castVote(t, id, types.Hash{1}, sort)
	v2 := castVote(t, id, types.Hash{2}, sort)

	_, err := m.Add(v1)
	require.NoError(t, err)
	_, err = m.Add(v2)
	require.NoError(t, err)

	equivs := m.Equivocations()
	require.Len(t, equivs, 1)
	require.Equal(t, id.addr, equivs[0].Voter)
}

func TestNextVotesBundleRequiresQuorum(t *testing.T) {
	id := newVotingIdentity(t)
	stake := newFakeStake()
	stake.vrfKeys[id.addr] = id.vrfKey.Public()
	stake.stakes[id.addr] = 100
	stake.total = 100

	m := New(stake, alwaysElectThreshold)
	blockHash := types.Hash{1}
	sort := types.VRFSortition{Period: 1, Round: 1, Step: types.StepFirstFinish}
	v := castVote(t, id, blockHash, sort)

	_, ok := m.NextVotesBundle(1, 1)
	require.False(t, ok)

	_, err := m.Add(v)
	require.NoError(t, err)

	bundle, ok := m.NextVotesBundle(1, 1)
	require.True(t, ok)
	require.Len(t, bundle.Votes, 1)
}
