// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package finalizer

import "github.com/taraxa-go/taraxa-core/types"

// addBloomBytes ORs the 3 bits the Ethereum-compatible bloom convention
// derives from Keccak256(data) into bloom, matching the `log_bloom` field
// BlockHeader carries (the same convention the pack's go-ethereum-family
// repos' aliased Bloom types implement).
func addBloomBytes(bloom *[256]byte, data []byte) {
	hash := types.Keccak256(data)
	for i := 0; i < 3; i++ {
		bitIndex := (uint(hash[2*i])<<8 | uint(hash[2*i+1])) & 2047
		byteIndex := 255 - bitIndex/8
		bitInByte := bitIndex % 8
		bloom[byteIndex] |= 1 << bitInByte
	}
}

// logBloom computes the bloom filter covering every log's address and
// topics across receipts, per spec.md §4.8 step 4.
func logBloom(receipts []*types.Receipt) [256]byte {
	var bloom [256]byte
	for _, r := range receipts {
		for _, lg := range r.Logs {
			addBloomBytes(&bloom, lg.Address[:])
			for _, topic := range lg.Topics {
				addBloomBytes(&bloom, topic[:])
			}
		}
	}
	return bloom
}
