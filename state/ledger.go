// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state is the in-process reference account ledger node/ wires up
// as the default txpool.AccountQuery and finalizer.EVM collaborators when
// no external state machine is configured. Its Apply implements only
// plain value transfer (nonce increment, balance debit/credit, gas fee to
// the block author) — it is a stand-in for the real EVM interpreter, which
// spec.md §1 explicitly places out of scope, the same way mem_store.go
// stands in for the external KV store. Grounded on types.Account's field
// shape and on abaderin-bsc/core/state_processor.go's
// `(statedb, header, tx) -> receipt` call convention that finalizer.EVM
// already follows.
package state

import (
	"math/big"
	"sync"

	"github.com/taraxa-go/taraxa-core/finalizer"
	"github.com/taraxa-go/taraxa-core/internal/cerr"
	"github.com/taraxa-go/taraxa-core/types"
)

// Ledger is a mutex-guarded map of account address to account state,
// mirroring the teacher's pervasive mutex-guarded-map idiom (see dagdb,
// txpool, votes).
type Ledger struct {
	mu       sync.RWMutex
	accounts map[types.Address]*types.Account
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[types.Address]*types.Account)}
}

// SetBalance credits addr's balance, creating the account if absent. Used
// to seed genesis allocations.
func (l *Ledger) SetBalance(addr types.Address, balance *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.accountLocked(addr)
	a.Balance = new(big.Int).Set(balance)
}

func (l *Ledger) accountLocked(addr types.Address) *types.Account {
	a, ok := l.accounts[addr]
	if !ok {
		a = types.NewAccount()
		l.accounts[addr] = a
	}
	return a
}

// Account returns a copy of addr's account state, or a fresh zero account
// if unset — per spec.md §3's "missing entry ≡ zero-initialized".
func (l *Ledger) Account(addr types.Address) types.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[addr]; ok {
		return *a
	}
	return *types.NewAccount()
}

// AccountNonce implements txpool.AccountQuery.
func (l *Ledger) AccountNonce(addr types.Address) uint64 {
	return l.Account(addr).Nonce
}

// AccountBalance implements txpool.AccountQuery.
func (l *Ledger) AccountBalance(addr types.Address) *big.Int {
	return l.Account(addr).Balance
}

// Credit adds amount to addr's balance. A nil or zero amount is a no-op.
func (l *Ledger) Credit(addr types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.accountLocked(addr)
	a.Balance.Add(a.Balance, amount)
}

// SimpleEVM implements finalizer.EVM as plain value transfer: it debits
// the sender nonce/value/gas, credits the recipient (for contract creation,
// which this reference ledger does not execute, the value is credited to a
// fixed contract-creation address), and credits the gas fee to ctx.Author. Real opcode execution,
// contract storage, and logs are out of scope per spec.md §1.
type SimpleEVM struct {
	Ledger *Ledger
}

var _ finalizer.EVM = (*SimpleEVM)(nil)

// Apply executes tx against the ledger and returns the (unchanged, since
// this reference ledger has no trie) state root placeholder and receipt.
// stateRoot is threaded through unmodified — the reference ledger has no
// Merkle state trie of its own, only the flat account map — since
// computing one is part of the out-of-scope EVM interpreter.
func (e *SimpleEVM) Apply(stateRoot types.Hash, ctx finalizer.BlockContext, tx *types.Transaction) (types.Hash, *types.Receipt, error) {
	sender, ok := tx.CachedSender()
	if !ok {
		return stateRoot, nil, cerr.New(cerr.KindConsistency, "state: transaction sender not recovered before Apply")
	}

	e.Ledger.mu.Lock()
	from := e.Ledger.accountLocked(sender)
	if from.Nonce != tx.Nonce {
		e.Ledger.mu.Unlock()
		return stateRoot, nil, cerr.New(cerr.KindConsistency, "state: nonce mismatch for %x: account %d, tx %d", sender[:], from.Nonce, tx.Nonce)
	}
	cost := tx.Cost()
	if from.Balance.Cmp(cost) < 0 {
		e.Ledger.mu.Unlock()
		return stateRoot, nil, cerr.New(cerr.KindConsistency, "state: insufficient balance for %x", sender[:])
	}
	from.Balance.Sub(from.Balance, cost)
	from.Nonce++

	var contractAddr *types.Address
	if tx.To != nil {
		to := e.Ledger.accountLocked(*tx.To)
		to.Balance.Add(to.Balance, tx.Value)
	} else {
		addr := contractCreationAddress(sender, tx.Nonce)
		acct := e.Ledger.accountLocked(addr)
		acct.Balance.Add(acct.Balance, tx.Value)
		contractAddr = &addr
	}
	e.Ledger.mu.Unlock()

	fee := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(tx.GasLimit))
	e.Ledger.Credit(ctx.Author, fee)

	receipt := &types.Receipt{
		TxHash:          tx.Hash(),
		Status:          types.ReceiptStatusSuccessful,
		GasUsed:         tx.GasLimit,
		ContractAddress: contractAddr,
	}
	return stateRoot, receipt, nil
}

func contractCreationAddress(sender types.Address, nonce uint64) types.Address {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(nonce >> (56 - 8*i))
	}
	h := types.Keccak256(sender[:], buf[:])
	return types.BytesToAddress(h[len(h)-types.AddressLength:])
}
