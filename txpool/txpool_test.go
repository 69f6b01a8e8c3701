// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/taraxa-go/taraxa-core/crypto"
	"github.com/taraxa-go/taraxa-core/types"
)

type fakeAccounts struct {
	nonces   map[types.Address]uint64
	balances map[types.Address]*big.Int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		nonces:   make(map[types.Address]uint64),
		balances: make(map[types.Address]*big.Int),
	}
}

func (f *fakeAccounts) AccountNonce(addr types.Address) uint64 { return f.nonces[addr] }

func (f *fakeAccounts) AccountBalance(addr types.Address) *big.Int {
	if b, ok := f.balances[addr]; ok {
		return b
	}
	return big.NewInt(0)
}

func makeTx(t *testing.T, sender types.Address, nonce uint64, gasPrice int64, chainID uint64) *types.Transaction {
	t.Helper()
	to := types.Address{0xAA}
	tx := types.NewTransaction(nonce, big.NewInt(gasPrice), 21000, &to, big.NewInt(0), nil, chainID)
	tx.SetSender(sender)
	return tx
}

func TestInsertAndContains(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1_000_000)

	tx := makeTx(t, sender, 0, 10, 1)
	res, err := pool.Insert(tx, accounts)
	require.NoError(t, err)
	require.Equal(t, Inserted, res)
	require.True(t, pool.Contains(tx.Hash()))
	require.Equal(t, 1, pool.Size())
}

func TestInsertDuplicate(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1_000_000)

	tx := makeTx(t, sender, 0, 10, 1)
	_, err := pool.Insert(tx, accounts)
	require.NoError(t, err)
	res, err := pool.Insert(tx, accounts)
	require.NoError(t, err)
	require.Equal(t, Duplicate, res)
}

func TestInsertRejectsWrongChainID(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1_000_000)

	tx := makeTx(t, sender, 0, 10, 99)
	res, err := pool.Insert(tx, accounts)
	require.Error(t, err)
	require.Equal(t, Rejected, res)
}

func TestInsertRejectsInsufficientBalance(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1)

	tx := makeTx(t, sender, 0, 10, 1)
	res, err := pool.Insert(tx, accounts)
	require.Error(t, err)
	require.Equal(t, Rejected, res)
}

func TestInsertRejectsStaleNonce(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1_000_000)
	accounts.nonces[sender] = 5

	tx := makeTx(t, sender, 2, 10, 1)
	res, err := pool.Insert(tx, accounts)
	require.Error(t, err)
	require.Equal(t, Rejected, res)
}

func TestTopOrdersBySenderHeightThenGasPrice(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	s1 := types.Address{1}
	s2 := types.Address{2}
	accounts.balances[s1] = big.NewInt(1_000_000)
	accounts.balances[s2] = big.NewInt(1_000_000)

	tx1 := makeTx(t, s1, 0, 5, 1)
	tx2 := makeTx(t, s1, 1, 100, 1) // higher gas price but higher height, should rank after tx1
	tx3 := makeTx(t, s2, 0, 50, 1)

	for _, tx := range []*types.Transaction{tx1, tx2, tx3} {
		_, err := pool.Insert(tx, accounts)
		require.NoError(t, err)
	}

	top := pool.Top(-1)
	require.Len(t, top, 3)
	require.Equal(t, tx1.Hash(), top[0].Hash())
}

func TestRemoveAndPin(t *testing.T) {
	pool := New(10, 1)
	accounts := newFakeAccounts()
	sender := types.Address{1}
	accounts.balances[sender] = big.NewInt(1_000_000)

	tx := makeTx(t, sender, 0, 10, 1)
	_, err := pool.Insert(tx, accounts)
	require.NoError(t, err)

	require.True(t, pool.Remove(tx.Hash()))
	require.False(t, pool.Remove(tx.Hash()))
	require.Equal(t, 0, pool.Size())
}

func TestEvictionRetainsPinned(t *testing.T) {
	pool := New(1, 1)
	accounts := newFakeAccounts()
	s1 := types.Address{1}
	s2 := types.Address{2}
	accounts.balances[s1] = big.NewInt(1_000_000)
	accounts.balances[s2] = big.NewInt(1_000_000)

	tx1 := makeTx(t, s1, 0, 10, 1)
	_, err := pool.Insert(tx1, accounts)
	require.NoError(t, err)
	pool.Pin(tx1.Hash())

	tx2 := makeTx(t, s2, 0, 100, 1)
	res, err := pool.Insert(tx2, accounts)
	require.Error(t, err)
	require.Equal(t, Rejected, res)
	require.True(t, pool.Contains(tx1.Hash()))
}
