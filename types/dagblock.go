// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"sync/atomic"

	"github.com/taraxa-go/taraxa-core/rlp"
)

// DAGBlock is a block proposed continuously into the block-DAG, gated by a
// VDF proof-of-delay, per spec.md §3/§4.4.
type DAGBlock struct {
	Pivot        Hash   // hash of the parent DAG block on the main chain
	Tips         []Hash // extra parents
	Level        uint64 // 1 + max(level(pivot), max(level(tips)))
	Timestamp    uint64
	VDFProof     []byte // Wesolowski proof bytes, variable length
	VRFProof     VRFProof
	Transactions []Hash // transaction hashes included (full bodies travel alongside)
	AuthorSig    Signature

	hash   atomic.Pointer[Hash]
	author atomic.Pointer[Address]
}

// CachedAuthor returns the author address recovered for this block in a
// prior call, if any, avoiding repeated signature recovery.
func (b *DAGBlock) CachedAuthor() (Address, bool) {
	if a := b.author.Load(); a != nil {
		return *a, true
	}
	return Address{}, false
}

// SetAuthor caches the recovered author address.
func (b *DAGBlock) SetAuthor(addr Address) { b.author.Store(&addr) }

// unsignedItem builds the RLP item over everything except AuthorSig, the
// exact payload the block hash is computed over per spec.md §3.
func (b *DAGBlock) unsignedItem() rlp.Item {
	tips := make([]rlp.Item, len(b.Tips))
	for i, t := range b.Tips {
		tips[i] = rlp.String(t[:])
	}
	txs := make([]rlp.Item, len(b.Transactions))
	for i, h := range b.Transactions {
		txs[i] = rlp.String(h[:])
	}
	return rlp.List(
		rlp.String(b.Pivot[:]),
		rlp.List(tips...),
		rlp.Uint64(b.Level),
		rlp.Uint64(b.Timestamp),
		rlp.String(b.VDFProof),
		rlp.String(b.VRFProof[:]),
		rlp.List(txs...),
	)
}

// Hash returns (and caches) the block hash: Keccak of the canonical RLP over
// everything except AuthorSig.
func (b *DAGBlock) Hash() Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := Keccak256(rlp.Encode(b.unsignedItem()))
	b.hash.Store(&h)
	return h
}

// SigningHash is the hash the author's signature covers (equal to Hash).
func (b *DAGBlock) SigningHash() Hash { return b.Hash() }

// Parents returns pivot followed by tips, the block's full parent set.
func (b *DAGBlock) Parents() []Hash {
	out := make([]Hash, 0, 1+len(b.Tips))
	out = append(out, b.Pivot)
	return append(out, b.Tips...)
}

// EncodeRLP encodes the full DAG block (unsigned fields + AuthorSig).
func (b *DAGBlock) EncodeRLP() []byte {
	unsigned, _ := b.unsignedItem().List(7)
	return rlp.Encode(rlp.List(append(append([]rlp.Item(nil), unsigned...), rlp.String(b.AuthorSig[:]))...))
}

// DecodeDAGBlockRLP decodes a DAG block previously produced by EncodeRLP.
func DecodeDAGBlockRLP(data []byte) (*DAGBlock, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(8)
	if err != nil {
		return nil, err
	}
	tipItems, err := fields[1].List(-1)
	if err != nil {
		return nil, err
	}
	tips := make([]Hash, len(tipItems))
	for i, ti := range tipItems {
		tips[i] = BytesToHash(ti.Bytes())
	}
	level, err := fields[2].Uint64()
	if err != nil {
		return nil, err
	}
	timestamp, err := fields[3].Uint64()
	if err != nil {
		return nil, err
	}
	vrfBytes := fields[5].Bytes()
	if len(vrfBytes) != VRFProofLength {
		return nil, rlp.ErrUnexpectedListSize
	}
	txItems, err := fields[6].List(-1)
	if err != nil {
		return nil, err
	}
	txs := make([]Hash, len(txItems))
	for i, ti := range txItems {
		txs[i] = BytesToHash(ti.Bytes())
	}
	sigBytes := fields[7].Bytes()
	if len(sigBytes) != SignatureLength {
		return nil, rlp.ErrUnexpectedListSize
	}

	b := &DAGBlock{
		Pivot:        BytesToHash(fields[0].Bytes()),
		Tips:         tips,
		Level:        level,
		Timestamp:    timestamp,
		VDFProof:     append([]byte(nil), fields[4].Bytes()...),
		Transactions: txs,
	}
	copy(b.VRFProof[:], vrfBytes)
	copy(b.AuthorSig[:], sigBytes)
	return b, nil
}
