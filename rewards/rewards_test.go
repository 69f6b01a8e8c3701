// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rewards

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/types"
)

func signedDagBlock(t *testing.T, key *crypto.PrivateKey, txs []types.Hash) *types.DAGBlock {
	t.Helper()
	b := &types.DAGBlock{Transactions: txs}
	sig, err := crypto.Sign(key, b.SigningHash())
	require.NoError(t, err)
	b.AuthorSig = sig
	return b
}

func signedVote(t *testing.T, key *crypto.PrivateKey, blockHash types.Hash, weight uint64) *types.Vote {
	t.Helper()
	v := types.NewVote(blockHash, types.VRFSortition{Period: 1, Round: 1, Step: types.StepCertVote})
	sig, err := crypto.Sign(key, v.SigningHash())
	require.NoError(t, err)
	v.SignerSig = sig
	v.SetWeight(weight)
	return v
}

func TestBlockStatsCountsOnlyRewardableDagBlocks(t *testing.T) {
	proposerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	authorKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	emptyAuthorKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	tx1 := types.Hash{1}
	tx2 := types.Hash{2}
	fruitfulBlock := signedDagBlock(t, authorKey, []types.Hash{tx1, tx2})
	emptyBlock := signedDagBlock(t, emptyAuthorKey, nil)

	pbftBlock := &types.PBFTBlock{Beneficiary: proposerKey.Address()}
	period := &types.PeriodData{
		PBFTBlock: pbftBlock,
		DagBlocks: []*types.DAGBlock{fruitfulBlock, emptyBlock},
	}

	bs, err := NewBlockStats(period, nil, nil)
	require.NoError(t, err)

	require.Equal(t, uint32(1), bs.totalDagBlocksCount)
	require.Equal(t, uint32(1), bs.validatorStats[authorKey.Address()].DagBlocksCount)
	_, ok := bs.validatorStats[emptyAuthorKey.Address()]
	require.False(t, ok)
}

func TestBlockStatsFirstInclusionWinsFees(t *testing.T) {
	authorA, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	authorB, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	proposerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	sharedTx := types.Hash{9}
	blockA := signedDagBlock(t, authorA, []types.Hash{sharedTx})
	blockB := signedDagBlock(t, authorB, []types.Hash{sharedTx})

	tx := types.NewTransaction(0, big.NewInt(10), 21000, nil, big.NewInt(0), nil, 1)
	period := &types.PeriodData{
		PBFTBlock:    &types.PBFTBlock{Beneficiary: proposerKey.Address()},
		DagBlocks:    []*types.DAGBlock{blockA, blockB},
		Transactions: []*types.Transaction{tx},
	}
	gasUsed := map[types.Hash]uint64{tx.Hash(): 21000}

	bs, err := NewBlockStats(period, nil, gasUsed)
	require.NoError(t, err)

	require.Equal(t, uint32(1), bs.validatorStats[authorA.Address()].DagBlocksCount)
	_, ok := bs.validatorStats[authorB.Address()]
	require.False(t, ok, "second block's duplicate tx must not make author B rewardable")
	require.Equal(t, big.NewInt(210000), bs.validatorStats[authorA.Address()].FeesReward)
}

func TestComputeDistributesProposerVotersAndDagAuthors(t *testing.T) {
	proposerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	dagAuthorKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	voterKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	block := signedDagBlock(t, dagAuthorKey, []types.Hash{{5}})
	period := &types.PeriodData{
		PBFTBlock: &types.PBFTBlock{Beneficiary: proposerKey.Address()},
		DagBlocks: []*types.DAGBlock{block},
	}
	priorCertVotes := []*types.Vote{signedVote(t, voterKey, types.Hash{3}, 100)}

	bs, err := NewBlockStats(period, priorCertVotes, nil)
	require.NoError(t, err)

	dist := Compute(bs, big.NewInt(1_000_000), DefaultSplit)

	require.True(t, dist.Credits[voterKey.Address()].Cmp(big.NewInt(500_000)) == 0)
	require.True(t, dist.Credits[dagAuthorKey.Address()].Cmp(big.NewInt(350_000)) == 0)
	// proposer gets its 15% share plus all floor-division dust (none here,
	// since both pools divide evenly against single claimants).
	require.True(t, dist.Credits[proposerKey.Address()].Cmp(big.NewInt(150_000)) == 0)
}

func TestComputeSweepsUnclaimedPoolsToProposer(t *testing.T) {
	proposerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	period := &types.PeriodData{PBFTBlock: &types.PBFTBlock{Beneficiary: proposerKey.Address()}}
	bs, err := NewBlockStats(period, nil, nil)
	require.NoError(t, err)

	dist := Compute(bs, big.NewInt(1_000_000), DefaultSplit)
	require.True(t, dist.Credits[proposerKey.Address()].Cmp(big.NewInt(1_000_000)) == 0)
}
