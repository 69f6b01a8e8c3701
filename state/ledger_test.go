// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-go/taraxa-core/finalizer"
	"github.com/taraxa-go/taraxa-core/types"
)

func TestLedgerAccountQuery(t *testing.T) {
	l := NewLedger()
	var addr types.Address
	addr[0] = 1

	require.EqualValues(t, 0, l.AccountNonce(addr))
	require.EqualValues(t, 0, l.AccountBalance(addr).Sign())

	l.SetBalance(addr, big.NewInt(100000))
	require.EqualValues(t, 100000, l.AccountBalance(addr).Int64())
}

// TestSimpleEVMScenarioOne mirrors spec.md §8 scenario 1: value=1, gas=21000,
// gas_price=1 from A (balance 100000) to B.
func TestSimpleEVMScenarioOne(t *testing.T) {
	l := NewLedger()
	var a, b, author types.Address
	a[0], b[0], author[0] = 1, 2, 3
	l.SetBalance(a, big.NewInt(100000))

	tx := types.NewTransaction(0, big.NewInt(1), 21000, &b, big.NewInt(1), nil, 841)
	tx.SetSender(a)

	evm := &SimpleEVM{Ledger: l}
	blockCtx := finalizer.BlockContext{Author: author, Timestamp: 1, Number: 1}
	_, receipt, err := evm.Apply(types.EmptyHash, blockCtx, tx)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	require.EqualValues(t, 1, l.AccountNonce(a))
	require.EqualValues(t, 100000-1-21000, l.AccountBalance(a).Int64())
	require.EqualValues(t, 1, l.AccountBalance(b).Int64())
	require.EqualValues(t, 21000, l.AccountBalance(author).Int64())
}

func TestSimpleEVMRejectsNonceMismatch(t *testing.T) {
	l := NewLedger()
	var a, b types.Address
	a[0], b[0] = 1, 2
	l.SetBalance(a, big.NewInt(100000))

	tx := types.NewTransaction(5, big.NewInt(1), 21000, &b, big.NewInt(1), nil, 841)
	tx.SetSender(a)

	evm := &SimpleEVM{Ledger: l}
	_, _, err := evm.Apply(types.EmptyHash, finalizer.BlockContext{}, tx)
	require.Error(t, err)
}

func TestSimpleEVMContractCreationCredits(t *testing.T) {
	l := NewLedger()
	var a types.Address
	a[0] = 1
	l.SetBalance(a, big.NewInt(100000))

	tx := types.NewTransaction(0, big.NewInt(1), 53000, nil, big.NewInt(10), []byte{0x60}, 841)
	tx.SetSender(a)

	evm := &SimpleEVM{Ledger: l}
	_, receipt, err := evm.Apply(types.EmptyHash, finalizer.BlockContext{}, tx)
	require.NoError(t, err)
	require.NotNil(t, receipt.ContractAddress)
	require.EqualValues(t, 10, l.AccountBalance(*receipt.ContractAddress).Int64())
}
