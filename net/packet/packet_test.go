// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"
	"math/big"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/types"
)

// fakeNode is a minimal packet.Node double for exercising Process without
// the real votes/dagdb/txpool managers.
type fakeNode struct {
	chainID     uint64
	genesisHash types.Hash

	voteResult    AddResult
	voteErr       error
	votesSeen     int
	equivocations int

	dagInsertErr error
	dagSeen      int

	poolInsertErr error
	poolSeen      int

	periodErr  error
	periodsSeen int

	sent []Packet
}

func (n *fakeNode) ChainID() uint64         { return n.chainID }
func (n *fakeNode) GenesisHash() types.Hash { return n.genesisHash }
func (n *fakeNode) Status() Status          { return Status{} }
func (n *fakeNode) Votes() VoteAdder        { return n }
func (n *fakeNode) DAG() DAGInserter        { return n }
func (n *fakeNode) Pool() PoolInserter      { return &fakePool{n} }
func (n *fakeNode) Periods() PeriodApplier  { return n }

// fakePool implements PoolInserter against a fakeNode, kept as a separate
// type since DAGInserter and PoolInserter both name a method Insert with
// different signatures, which one receiver type cannot satisfy at once.
type fakePool struct{ n *fakeNode }

func (p *fakePool) Insert(tx *types.Transaction) (PoolInsertResult, error) {
	p.n.poolSeen++
	if p.n.poolInsertErr != nil {
		return PoolRejected, p.n.poolInsertErr
	}
	return PoolInserted, nil
}

func (p *fakePool) Contains(hash types.Hash) bool { return false }

func (n *fakeNode) Send(peer ids.NodeID, p Packet) error {
	n.sent = append(n.sent, p)
	return nil
}

func (n *fakeNode) Add(v *types.Vote) (AddResult, error) {
	n.votesSeen++
	return n.voteResult, n.voteErr
}

func (n *fakeNode) EquivocationCount() int {
	count := n.equivocations
	n.equivocations = 0
	return count
}

func (n *fakeNode) Insert(block *types.DAGBlock, authorPub []byte) error {
	n.dagSeen++
	return n.dagInsertErr
}

func (n *fakeNode) Block(hash types.Hash) (*types.DAGBlock, bool) { return nil, false }
func (n *fakeNode) Tips() []types.Hash                            { return nil }

func (n *fakeNode) Apply(pd *types.PeriodData) error {
	n.periodsSeen++
	return n.periodErr
}

func TestStatusPacketRLPRoundTrip(t *testing.T) {
	p := &StatusPacket{Status: Status{
		ChainID:         841,
		NetworkID:       1,
		GenesisHash:     types.Hash{1, 2, 3},
		ProtocolVersion: 3,
		NodeVersion:     "v1.0.0",
		PBFTChainSize:   100,
		PBFTRound:       4,
		DAGLevel:        200,
		Syncing:         true,
		IsLightNode:     false,
		History:         5,
	}}
	decoded, err := DecodeStatusPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, p.Status, decoded.Status)
}

func TestStatusPacketValidateRejectsMismatch(t *testing.T) {
	n := &fakeNode{chainID: 841, genesisHash: types.Hash{9}}
	p := &StatusPacket{Status: Status{ChainID: 999, GenesisHash: n.genesisHash}}
	require.Error(t, p.Validate(n))

	p2 := &StatusPacket{Status: Status{ChainID: n.chainID, GenesisHash: types.Hash{1}}}
	require.Error(t, p2.Validate(n))

	p3 := &StatusPacket{Status: Status{ChainID: n.chainID, GenesisHash: n.genesisHash}}
	require.NoError(t, p3.Validate(n))
}

func TestStatusUpdatePacketRLPRoundTrip(t *testing.T) {
	p := &StatusUpdatePacket{PBFTChainSize: 10, PBFTRound: 2, DAGLevel: 30, Syncing: false}
	decoded, err := DecodeStatusUpdatePacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, *p, *decoded)
}

func signedVote(t *testing.T) *types.Vote {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	v := types.NewVote(types.Hash{1}, types.VRFSortition{Period: 1, Round: 1, Step: types.StepSoftVote})
	sig, err := crypto.Sign(priv, v.SigningHash())
	require.NoError(t, err)
	v.SignerSig = sig
	return v
}

func TestVotePacketRLPRoundTrip(t *testing.T) {
	v := signedVote(t)
	p := &VotePacket{Vote: v}
	decoded, err := DecodeVotePacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, v.Hash(), decoded.Vote.Hash())
}

func TestVotePacketProcessMarksMaliciousOnInvalid(t *testing.T) {
	node := &fakeNode{voteResult: VoteInvalid}
	p := &VotePacket{Vote: signedVote(t)}
	err := p.Process(context.Background(), node, ids.NodeID{})
	require.Error(t, err)
	require.Equal(t, 1, node.votesSeen)
}

func TestVotePacketProcessAcceptsAddedOrDuplicate(t *testing.T) {
	for _, result := range []AddResult{VoteAdded, VoteDuplicate} {
		node := &fakeNode{voteResult: result}
		p := &VotePacket{Vote: signedVote(t)}
		require.NoError(t, p.Process(context.Background(), node, ids.NodeID{}))
	}
}

func TestVotePacketProcessMarksMaliciousOnEquivocation(t *testing.T) {
	node := &fakeNode{voteResult: VoteAdded, equivocations: 1}
	p := &VotePacket{Vote: signedVote(t)}
	require.Error(t, p.Process(context.Background(), node, ids.NodeID{}))
}

func TestGetVotesSyncPacketRLPRoundTrip(t *testing.T) {
	p := &GetVotesSyncPacket{Period: 7, Round: 3}
	decoded, err := DecodeGetVotesSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, *p, *decoded)
}

func TestVotesSyncPacketRLPRoundTripAndValidate(t *testing.T) {
	p := &VotesSyncPacket{Votes: []*types.Vote{signedVote(t), signedVote(t)}}
	require.NoError(t, p.Validate(&fakeNode{}))

	decoded, err := DecodeVotesSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Len(t, decoded.Votes, 2)

	empty := &VotesSyncPacket{}
	require.Error(t, empty.Validate(&fakeNode{}))
}

func signedTransaction(t *testing.T, nonce uint64, to *types.Address) *types.Transaction {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	tx := types.NewTransaction(nonce, big.NewInt(1), 21000, to, big.NewInt(1), nil, 841)
	sig, err := crypto.Sign(priv, tx.SigningHash())
	require.NoError(t, err)
	tx.Sig = sig
	return tx
}

func TestTransactionPacketRLPRoundTrip(t *testing.T) {
	var to types.Address
	to[0] = 2
	p := &TransactionPacket{Transactions: []*types.Transaction{signedTransaction(t, 0, &to)}}
	require.NoError(t, p.Validate(&fakeNode{}))

	decoded, err := DecodeTransactionPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Len(t, decoded.Transactions, 1)
	require.Equal(t, p.Transactions[0].Hash(), decoded.Transactions[0].Hash())
}

func TestTransactionPacketRejectsEmpty(t *testing.T) {
	require.Error(t, (&TransactionPacket{}).Validate(&fakeNode{}))
}

func signedDagBlock(t *testing.T) *types.DAGBlock {
	t.Helper()
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	b := &types.DAGBlock{Pivot: types.Hash{1}, Level: 1, Timestamp: 1}
	sig, err := crypto.Sign(priv, b.SigningHash())
	require.NoError(t, err)
	b.AuthorSig = sig
	return b
}

func TestDagBlockPacketRLPRoundTrip(t *testing.T) {
	p := &DagBlockPacket{Block: signedDagBlock(t)}
	decoded, err := DecodeDagBlockPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, p.Block.Hash(), decoded.Block.Hash())
}

func TestGetDagSyncPacketRLPRoundTrip(t *testing.T) {
	p := &GetDagSyncPacket{KnownTips: []types.Hash{{1}, {2}}}
	decoded, err := DecodeGetDagSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, p.KnownTips, decoded.KnownTips)
}

func TestDagSyncPacketRLPRoundTrip(t *testing.T) {
	p := &DagSyncPacket{Blocks: []*types.DAGBlock{signedDagBlock(t)}}
	decoded, err := DecodeDagSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Len(t, decoded.Blocks, 1)
	require.Equal(t, p.Blocks[0].Hash(), decoded.Blocks[0].Hash())
}

func TestGetPbftSyncPacketRLPRoundTrip(t *testing.T) {
	p := &GetPbftSyncPacket{FromPeriod: 42}
	decoded, err := DecodeGetPbftSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.Equal(t, *p, *decoded)
}

func TestPbftSyncPacketRLPRoundTripAndValidate(t *testing.T) {
	priv, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	pbftBlock := &types.PBFTBlock{Period: 1, Timestamp: 1}
	sig, err := crypto.Sign(priv, pbftBlock.SigningHash())
	require.NoError(t, err)
	pbftBlock.Signature = sig

	pd := &types.PeriodData{
		PBFTBlock:       pbftBlock,
		DagBlocks:       []*types.DAGBlock{signedDagBlock(t)},
		Transactions:    nil,
		CertVotes:       []*types.Vote{signedVote(t)},
		BonusVotesCount: 2,
	}
	p := &PbftSyncPacket{Periods: []*types.PeriodData{pd}, HasMore: true}
	require.NoError(t, p.Validate(&fakeNode{}))

	decoded, err := DecodePbftSyncPacketRLP(p.EncodeRLP())
	require.NoError(t, err)
	require.True(t, decoded.HasMore)
	require.Len(t, decoded.Periods, 1)
	require.Equal(t, pbftBlock.Hash(), decoded.Periods[0].PBFTBlock.Hash())
	require.Len(t, decoded.Periods[0].DagBlocks, 1)
	require.Len(t, decoded.Periods[0].CertVotes, 1)
	require.EqualValues(t, 2, decoded.Periods[0].BonusVotesCount)

	require.Error(t, (&PbftSyncPacket{}).Validate(&fakeNode{}))
}

func TestTypePriorityBands(t *testing.T) {
	require.Equal(t, PriorityHigh, TypeVote.Priority())
	require.Equal(t, PriorityHigh, TypeGetVotesSync.Priority())
	require.Equal(t, PriorityHigh, TypeVotesSync.Priority())
	require.Equal(t, PriorityMid, TypeDagBlock.Priority())
	require.Equal(t, PriorityMid, TypeDagSync.Priority())
	require.Equal(t, PriorityMid, TypeTransaction.Priority())
	require.Equal(t, PriorityLow, TypeStatus.Priority())
	require.Equal(t, PriorityLow, TypeGetPbftSync.Priority())
	require.Equal(t, PriorityLow, TypePbftSync.Priority())
	require.Equal(t, PriorityLow, TypeGetDagSync.Priority())
}
