// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/taraxa-go/taraxa-core/rlp"
)

// BlockHeader is the Ethereum-compatible executed-block header produced by
// the period finalizer, per spec.md §4.8. Field order and semantics mirror
// go-ethereum's core/types.Header so the header hash and RLP encoding are
// directly interoperable with existing EVM tooling.
type BlockHeader struct {
	ParentHash  Hash
	UncleHash   Hash // always EmptyUncleHash; no uncles in a DAG-anchored chain
	Coinbase    Address
	StateRoot   Hash
	TxRoot      Hash
	ReceiptRoot Hash
	Bloom       [256]byte
	Difficulty  *big.Int // always zero; retained for EVM opcode compatibility
	Number      uint64   // period number
	GasLimit    uint64
	GasUsed     uint64
	Timestamp   uint64
	ExtraData   []byte
	MixDigest   Hash // unused, retained for header-shape compatibility
	Nonce       [8]byte

	hash atomic.Pointer[Hash]
}

var (
	emptyUncleHashOnce sync.Once
	emptyUncleHash     Hash
)

// EmptyUncleHash is the Keccak-256 hash of an RLP-encoded empty list, the
// fixed UncleHash of every header in this chain. Computed lazily for the
// same reason as EmptyCodeHash: types initializes before crypto registers
// the hasher.
func EmptyUncleHash() Hash {
	emptyUncleHashOnce.Do(func() { emptyUncleHash = Keccak256(rlp.Encode(rlp.List())) })
	return emptyUncleHash
}

func (h *BlockHeader) item() rlp.Item {
	difficulty := new(big.Int)
	if h.Difficulty != nil {
		difficulty = h.Difficulty
	}
	return rlp.List(
		rlp.String(h.ParentHash[:]),
		rlp.String(h.UncleHash[:]),
		rlp.String(h.Coinbase[:]),
		rlp.String(h.StateRoot[:]),
		rlp.String(h.TxRoot[:]),
		rlp.String(h.ReceiptRoot[:]),
		rlp.String(h.Bloom[:]),
		rlp.String(difficulty.Bytes()),
		rlp.Uint64(h.Number),
		rlp.Uint64(h.GasLimit),
		rlp.Uint64(h.GasUsed),
		rlp.Uint64(h.Timestamp),
		rlp.String(h.ExtraData),
		rlp.String(h.MixDigest[:]),
		rlp.String(h.Nonce[:]),
	)
}

// Hash returns (and caches) the header hash.
func (h *BlockHeader) Hash() Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	hash := Keccak256(rlp.Encode(h.item()))
	h.hash.Store(&hash)
	return hash
}

// EncodeRLP encodes the header.
func (h *BlockHeader) EncodeRLP() []byte {
	return rlp.Encode(h.item())
}

// DecodeBlockHeaderRLP decodes a header previously produced by EncodeRLP.
func DecodeBlockHeaderRLP(data []byte) (*BlockHeader, error) {
	it, err := rlp.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := it.List(15)
	if err != nil {
		return nil, err
	}
	number, err := fields[8].Uint64()
	if err != nil {
		return nil, err
	}
	gasLimit, err := fields[9].Uint64()
	if err != nil {
		return nil, err
	}
	gasUsed, err := fields[10].Uint64()
	if err != nil {
		return nil, err
	}
	timestamp, err := fields[11].Uint64()
	if err != nil {
		return nil, err
	}
	bloomBytes := fields[6].Bytes()
	if len(bloomBytes) != 256 {
		return nil, rlp.ErrUnexpectedListSize
	}
	nonceBytes := fields[14].Bytes()
	if len(nonceBytes) != 8 {
		return nil, rlp.ErrUnexpectedListSize
	}

	h := &BlockHeader{
		ParentHash:  BytesToHash(fields[0].Bytes()),
		UncleHash:   BytesToHash(fields[1].Bytes()),
		Coinbase:    BytesToAddress(fields[2].Bytes()),
		StateRoot:   BytesToHash(fields[3].Bytes()),
		TxRoot:      BytesToHash(fields[4].Bytes()),
		ReceiptRoot: BytesToHash(fields[5].Bytes()),
		Difficulty:  new(big.Int).SetBytes(fields[7].Bytes()),
		Number:      number,
		GasLimit:    gasLimit,
		GasUsed:     gasUsed,
		Timestamp:   timestamp,
		ExtraData:   append([]byte(nil), fields[12].Bytes()...),
		MixDigest:   BytesToHash(fields[13].Bytes()),
	}
	copy(h.Bloom[:], bloomBytes)
	copy(h.Nonce[:], nonceBytes)
	return h, nil
}
