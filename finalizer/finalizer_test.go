// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalizer

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/finalizer/finalizermock"
	"github.com/taraxa-go/taraxa-core/rewards"
	"github.com/taraxa-go/taraxa-core/types"
)

type stubEVM struct {
	callCount int
}

func (s *stubEVM) Apply(stateRoot types.Hash, ctx BlockContext, tx *types.Transaction) (types.Hash, *types.Receipt, error) {
	s.callCount++
	txHash := tx.Hash()
	next := types.Keccak256(stateRoot[:], txHash[:])
	return next, &types.Receipt{TxHash: tx.Hash(), Status: types.ReceiptStatusSuccessful, GasUsed: 21000}, nil
}

type recordingStore struct {
	header *types.BlockHeader
}

func (r *recordingStore) PersistPeriod(header *types.BlockHeader, receipts []*types.Receipt, txs []*types.Transaction, stateRoot types.Hash, period uint64) error {
	r.header = header
	return nil
}

func signedDagBlockWithTxs(t *testing.T, key *crypto.PrivateKey, txs []types.Hash) *types.DAGBlock {
	t.Helper()
	b := &types.DAGBlock{Transactions: txs}
	sig, err := crypto.Sign(key, b.SigningHash())
	require.NoError(t, err)
	b.AuthorSig = sig
	return b
}

func TestFinalizeRejectsOrderHashMismatch(t *testing.T) {
	evm := &stubEVM{}
	f := New(evm, NewNodeCache(1024), nil, big.NewInt(1000), rewards.DefaultSplit)

	period := &types.PeriodData{
		PBFTBlock: &types.PBFTBlock{OrderHash: types.Hash{0xAA}},
	}
	_, err := f.Finalize(context.Background(), period, nil, nil, types.EmptyHash, nil)
	require.Error(t, err)
}

func TestFinalizeExecutesTransactionsInOrderAndPersists(t *testing.T) {
	authorKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	proposerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	tx1 := types.NewTransaction(0, big.NewInt(1), 21000, nil, big.NewInt(0), nil, 1)
	tx2 := types.NewTransaction(1, big.NewInt(1), 21000, nil, big.NewInt(0), nil, 1)
	dagBlock := signedDagBlockWithTxs(t, authorKey, []types.Hash{tx1.Hash(), tx2.Hash()})

	orderedDagBlocks := []types.Hash{dagBlock.Hash()}
	orderedTxHashes := []types.Hash{tx1.Hash(), tx2.Hash()}
	orderHash := types.ComputeOrderHash(orderedDagBlocks, orderedTxHashes)

	period := &types.PeriodData{
		PBFTBlock:    &types.PBFTBlock{OrderHash: orderHash, Beneficiary: proposerKey.Address(), Period: 5},
		DagBlocks:    []*types.DAGBlock{dagBlock},
		Transactions: []*types.Transaction{tx1, tx2},
	}

	evm := &stubEVM{}
	store := &recordingStore{}
	f := New(evm, NewNodeCache(4096), store, big.NewInt(1_000_000), rewards.DefaultSplit)

	result, err := f.Finalize(context.Background(), period, orderedDagBlocks, orderedTxHashes, types.EmptyHash, nil)
	require.NoError(t, err)
	require.Equal(t, 2, evm.callCount)
	require.Len(t, result.Receipts, 2)
	require.Equal(t, uint64(21000), result.Receipts[0].CumulativeGasUsed)
	require.Equal(t, uint64(42000), result.Receipts[1].CumulativeGasUsed)
	require.Equal(t, uint64(42000), result.Header.GasUsed)
	require.NotNil(t, store.header)
	require.Equal(t, result.Header, store.header)

	require.True(t, result.Distribution.Credits[proposerKey.Address()].Sign() > 0)
	require.True(t, result.Distribution.Credits[authorKey.Address()].Sign() > 0)
}

// TestFinalizeCallsEVMForEachTransactionInOrder uses a go.uber.org/mock
// fake in place of stubEVM to assert the *exact* call sequence the six-step
// pipeline promises (one Apply per transaction, in order), which a
// call-counting hand fake can't express as precisely as gomock's .After.
func TestFinalizeCallsEVMForEachTransactionInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	evm := finalizermock.NewMockEVM(ctrl)

	authorKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)

	tx1 := types.NewTransaction(0, big.NewInt(1), 21000, nil, big.NewInt(0), nil, 1)
	tx2 := types.NewTransaction(1, big.NewInt(1), 21000, nil, big.NewInt(0), nil, 1)
	dagBlock := signedDagBlockWithTxs(t, authorKey, []types.Hash{tx1.Hash(), tx2.Hash()})

	orderedDagBlocks := []types.Hash{dagBlock.Hash()}
	orderedTxHashes := []types.Hash{tx1.Hash(), tx2.Hash()}
	orderHash := types.ComputeOrderHash(orderedDagBlocks, orderedTxHashes)

	period := &types.PeriodData{
		PBFTBlock:    &types.PBFTBlock{OrderHash: orderHash, Period: 7},
		DagBlocks:    []*types.DAGBlock{dagBlock},
		Transactions: []*types.Transaction{tx1, tx2},
	}

	midRoot := types.Keccak256([]byte("mid"))
	finalRoot := types.Keccak256([]byte("final"))
	first := evm.EXPECT().
		Apply(types.EmptyHash, gomock.Any(), tx1).
		Return(midRoot, &types.Receipt{TxHash: tx1.Hash(), Status: types.ReceiptStatusSuccessful, GasUsed: 21000}, nil)
	evm.EXPECT().
		Apply(midRoot, gomock.Any(), tx2).
		Return(finalRoot, &types.Receipt{TxHash: tx2.Hash(), Status: types.ReceiptStatusSuccessful, GasUsed: 21000}, nil).
		After(first)

	f := New(evm, NewNodeCache(1024), &recordingStore{}, big.NewInt(0), rewards.DefaultSplit)
	result, err := f.Finalize(context.Background(), period, orderedDagBlocks, orderedTxHashes, types.EmptyHash, nil)
	require.NoError(t, err)
	require.Equal(t, finalRoot, result.StateRoot)
}
