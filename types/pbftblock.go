// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"sync/atomic"

	"github.com/taraxa-go/taraxa-core/rlp"
)

// PBFTBlock is the pivot-chain block a period is finalized around: it names
// the DAG anchor block whose period-set of DAG blocks gets ordered and
// executed, per spec.md §3/§4.5.
type PBFTBlock struct {
	Period        uint64
	PrevBlockHash Hash
	DagBlockHash  Hash // the DAG anchor block for this period
	OrderHash     Hash // Keccak over the deterministic period-set ordering
	Beneficiary   Address
	Timestamp     uint64
	Signature     Signature

	hash atomic.Pointer[Hash]
}

func (b *PBFTBlock) unsignedItem() rlp.Item {
	return rlp.List(
		rlp.Uint64(b.Period),
		rlp.String(b.PrevBlockHash[:]),
		rlp.String(b.DagBlockHash[:]),
		rlp.String(b.OrderHash[:]),
		rlp.String(b.Beneficiary[:]),
		rlp.Uint64(b.Timestamp),
	)
}

// SigningHash is the hash the proposer's signature covers.
func (b *PBFTBlock) SigningHash() Hash {
	return Keccak256(rlp.Encode(b.unsignedItem()))
}

// Hash returns (and caches) the block hash, which also commits to the
// proposer signature so that re-signing a block never silently changes its
// identity mid-round.
func (b *PBFTBlock) Hash() Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := Keccak256(rlp.Encode(b.unsignedItem()), b.Signature[:])
	b.hash.Store(&h)
	return h
}

// EncodeRLP encodes the full signed PBFT block.
func (b *PBFTBlock) EncodeRLP() []byte {
	unsigned, _ := b.unsignedItem().List(6)
	return rlp.Encode(rlp.List(append(append([]rlp.Item(nil), unsigned...), rlp.String(b.Signature[:]))...))
}

// DecodePBFTBlockRLP decodes a PBFT block previously produced by EncodeRLP.
func DecodePBFTBlockRLP(data []byte) (*PBFTBlock, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(7)
	if err != nil {
		return nil, err
	}
	period, err := fields[0].Uint64()
	if err != nil {
		return nil, err
	}
	timestamp, err := fields[5].Uint64()
	if err != nil {
		return nil, err
	}
	sigBytes := fields[6].Bytes()
	if len(sigBytes) != SignatureLength {
		return nil, rlp.ErrUnexpectedListSize
	}

	b := &PBFTBlock{
		Period:        period,
		PrevBlockHash: BytesToHash(fields[1].Bytes()),
		DagBlockHash:  BytesToHash(fields[2].Bytes()),
		OrderHash:     BytesToHash(fields[3].Bytes()),
		Beneficiary:   BytesToAddress(fields[4].Bytes()),
		Timestamp:     timestamp,
	}
	copy(b.Signature[:], sigBytes)
	return b, nil
}

// ComputeOrderHash hashes the period's canonical order per spec.md §4.8:
// an RLP list of DAG block hashes (in period-set topological order)
// followed by an RLP list of transaction hashes (in concatenated DAG
// order, first-inclusion wins for duplicates across blocks — callers
// dedupe orderedTxHashes before calling this).
func ComputeOrderHash(orderedDagBlocks, orderedTxHashes []Hash) Hash {
	dagItems := make([]rlp.Item, len(orderedDagBlocks))
	for i, h := range orderedDagBlocks {
		dagItems[i] = rlp.String(h[:])
	}
	txItems := make([]rlp.Item, len(orderedTxHashes))
	for i, h := range orderedTxHashes {
		txItems[i] = rlp.String(h[:])
	}
	return Keccak256(rlp.Encode(rlp.List(dagItems...)), rlp.Encode(rlp.List(txItems...)))
}
