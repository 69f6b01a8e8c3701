// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/config"
	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/crypto/vrf"
	"github.com/taraxa-go/taraxa-core/types"
	"github.com/taraxa-go/taraxa-core/validators"
)

// testCfg returns parameters tuned so a single fully-staked validator
// always wins sortition (committee size == threshold == total stake,
// the same full-stake/full-threshold construction pbft_test.go and
// votes_test.go use to force weight deterministically) and a cheap VDF
// difficulty so proposeDagBlock's Solve call returns quickly.
func testCfg() config.Parameters {
	cfg := config.Local()
	cfg.PBFT.CommitteeSize = 100
	cfg.Sort.SoftThreshold = 100
	cfg.Sort.CertThreshold = 100
	cfg.Sort.NextThreshold = 100
	cfg.Sort.DelegationDelay = 0
	cfg.VDF.DifficultyMin = 4
	cfg.VDF.DifficultyMax = 4
	cfg.VDF.DifficultyStale = 4
	cfg.VDF.StaleAfterBlocks = 1000
	return cfg
}

// newTestNode builds a Node with a single validator holding the entire
// stake, registered for period 1 (the snapshot delegation-delay lookback
// resolves to with DelegationDelay 0).
func newTestNode(t *testing.T) (*Node, *crypto.PrivateKey) {
	t.Helper()
	signKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	vrfKey, err := vrf.GenerateKey()
	require.NoError(t, err)

	cfg := testCfg()
	gen := Genesis{Hash: types.Hash{0xAA}}
	id := Identity{NodeID: ids.GenerateTestNodeID(), Sign: signKey, VRF: vrfKey}

	n, err := New(cfg, cfg.ChainID, id, gen, nil, nil, nil)
	require.NoError(t, err)

	snap := validators.NewSnapshot([]validators.Validator{
		{Address: signKey.Address(), Stake: 100, VRFKey: vrfKey.Public()},
	})
	n.Validators().SetSnapshot(1, snap)
	return n, signKey
}

func TestNodeProposeDagBlockExtendsGenesis(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	block, err := n.proposeDagBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, block)
	require.Equal(t, n.genesis.Hash, block.Pivot)
	require.Equal(t, uint64(1), block.Level)

	tips := n.dag.Tips()
	require.Len(t, tips, 1)
	require.Equal(t, block.Hash(), tips[0])
}

func TestNodeFullPBFTCycleFinalizesFirstPeriod(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	dagBlock, err := n.proposeDagBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, dagBlock)

	proposal, err := n.proposePBFTBlock(ctx)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.Equal(t, dagBlock.Hash(), proposal.Block.DagBlockHash)

	blockHash := proposal.Block.Hash()

	n.pbftEngine.AdvanceStep() // propose -> soft-vote
	softVote, err := n.pbftEngine.SoftVote(blockHash)
	require.NoError(t, err)
	require.NotNil(t, softVote)
	_, err = n.voteMgr.Add(softVote)
	require.NoError(t, err)

	n.pbftEngine.AdvanceStep() // soft-vote -> cert-vote
	certVote, err := n.pbftEngine.CertVote(blockHash)
	require.NoError(t, err)
	require.NotNil(t, certVote)
	_, err = n.voteMgr.Add(certVote)
	require.NoError(t, err)

	finalized, ok := n.pbftEngine.TryFinalize(blockHash)
	require.True(t, ok)
	require.Equal(t, uint64(1), finalized.Period)
	require.Equal(t, blockHash, finalized.BlockHash)
	finalized.CertVotes = n.voteMgr.VotesFor(1, 1, types.StepCertVote, blockHash)
	require.NotEmpty(t, finalized.CertVotes)

	rc := &roundCache{proposal: proposal}
	n.finalizeLocally(finalized, rc)

	header, ok := n.Header(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), header.Number)
	require.Equal(t, uint64(2), n.nextPeriod)
	require.Equal(t, uint32(1), n.pbftEngine.CurrentState().Round)
	require.Equal(t, uint64(2), n.pbftEngine.CurrentState().Period)
}

func TestNodeStartStopLifecycle(t *testing.T) {
	n, _ := newTestNode(t)
	ctx := context.Background()

	require.NoError(t, n.Start(ctx))
	require.Error(t, n.Start(ctx)) // already running

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, n.Stop(stopCtx))
	require.NoError(t, n.Stop(stopCtx)) // stopping an already-stopped node is a no-op

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Stop(stopCtx))
}
