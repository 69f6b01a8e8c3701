// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
	"sync/atomic"

	"github.com/taraxa-go/taraxa-core/rlp"
)

// TxStatus is the lifecycle state of a transaction: pending -> included ->
// executed, per spec.md §3's lifecycle rules.
type TxStatus uint8

const (
	TxStatusPending TxStatus = iota
	TxStatusIncluded
	TxStatusExecuted
)

// Transaction is a signed ledger transaction.
type Transaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *Address // nil => contract creation
	Value    *big.Int
	Data     []byte
	ChainID  uint64
	Sig      Signature

	status atomic.Uint32

	hash   atomic.Pointer[Hash]
	sender atomic.Pointer[Address]
}

// NewTransaction constructs an unsigned transaction.
func NewTransaction(nonce uint64, gasPrice *big.Int, gasLimit uint64, to *Address, value *big.Int, data []byte, chainID uint64) *Transaction {
	return &Transaction{
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: gasLimit,
		To:       to,
		Value:    value,
		Data:     data,
		ChainID:  chainID,
	}
}

// Status returns the transaction's current lifecycle status.
func (t *Transaction) Status() TxStatus { return TxStatus(t.status.Load()) }

// SetStatus transitions the transaction's lifecycle status.
func (t *Transaction) SetStatus(s TxStatus) { t.status.Store(uint32(s)) }

// unsignedItem builds the RLP item over the unsigned fields plus chain_id,
// the exact payload spec.md §3 defines the transaction hash (and signing
// payload) over.
func (t *Transaction) unsignedItem() rlp.Item {
	to := rlp.String(nil)
	if t.To != nil {
		to = rlp.String(t.To[:])
	}
	gasPrice := new(big.Int)
	if t.GasPrice != nil {
		gasPrice = t.GasPrice
	}
	value := new(big.Int)
	if t.Value != nil {
		value = t.Value
	}
	return rlp.List(
		rlp.Uint64(t.Nonce),
		rlp.String(gasPrice.Bytes()),
		rlp.Uint64(t.GasLimit),
		to,
		rlp.String(value.Bytes()),
		rlp.String(t.Data),
		rlp.Uint64(t.ChainID),
	)
}

// SigningHash is the hash signed by the sender, and the transaction's
// canonical Hash.
func (t *Transaction) SigningHash() Hash {
	return Keccak256(rlp.Encode(t.unsignedItem()))
}

// Hash returns (and caches) the transaction hash.
func (t *Transaction) Hash() Hash {
	if h := t.hash.Load(); h != nil {
		return *h
	}
	h := t.SigningHash()
	t.hash.Store(&h)
	return h
}

// EncodeRLP encodes the full signed transaction (unsigned fields + sig).
func (t *Transaction) EncodeRLP() []byte {
	unsigned, _ := t.unsignedItem().List(7)
	return rlp.Encode(rlp.List(append(append([]rlp.Item(nil), unsigned...), rlp.String(t.Sig[:]))...))
}

// DecodeTransactionRLP decodes a transaction previously produced by EncodeRLP.
func DecodeTransactionRLP(data []byte) (*Transaction, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(8)
	if err != nil {
		return nil, err
	}
	nonce, err := fields[0].Uint64()
	if err != nil {
		return nil, err
	}
	gasLimit, err := fields[2].Uint64()
	if err != nil {
		return nil, err
	}
	chainID, err := fields[6].Uint64()
	if err != nil {
		return nil, err
	}
	var to *Address
	if b := fields[3].Bytes(); len(b) > 0 {
		a := BytesToAddress(b)
		to = &a
	}
	sigBytes := fields[7].Bytes()
	if len(sigBytes) != SignatureLength {
		return nil, rlp.ErrUnexpectedListSize
	}
	var sig Signature
	copy(sig[:], sigBytes)

	tx := &Transaction{
		Nonce:    nonce,
		GasPrice: new(big.Int).SetBytes(fields[1].Bytes()),
		GasLimit: gasLimit,
		To:       to,
		Value:    new(big.Int).SetBytes(fields[4].Bytes()),
		Data:     append([]byte(nil), fields[5].Bytes()...),
		ChainID:  chainID,
		Sig:      sig,
	}
	return tx, nil
}

// Cost returns value + gasPrice*gasLimit, the balance an account must cover
// to admit the transaction.
func (t *Transaction) Cost() *big.Int {
	cost := new(big.Int).Mul(t.GasPrice, new(big.Int).SetUint64(t.GasLimit))
	return cost.Add(cost, t.Value)
}

// IsContractCreation reports whether To is absent.
func (t *Transaction) IsContractCreation() bool { return t.To == nil }

// CachedSender returns the cached sender address set by SetSender, if any.
func (t *Transaction) CachedSender() (Address, bool) {
	if a := t.sender.Load(); a != nil {
		return *a, true
	}
	return Address{}, false
}

// SetSender caches the recovered sender address.
func (t *Transaction) SetSender(a Address) { t.sender.Store(&a) }
